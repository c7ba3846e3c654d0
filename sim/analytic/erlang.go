// Package analytic provides closed-form blocking results for loss systems,
// used to check simulated statistics.
package analytic

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for non-positive rates, negative server counts
// or a threshold outside [0, servers).
var ErrInvalidInput = errors.New("invalid analytic input")

// OfferedLoad is the traffic intensity a = λ/μ in Erlangs.
func OfferedLoad(arrivalRate, departureRate float64) (float64, error) {
	if arrivalRate <= 0 || departureRate <= 0 {
		return 0, fmt.Errorf("%w: rates must be positive, got λ=%v μ=%v", ErrInvalidInput, arrivalRate, departureRate)
	}
	return arrivalRate / departureRate, nil
}

// ErlangB returns the blocking probability of an M/M/c/c system with the given
// number of servers and offered load, using the recurrence
// B(0)=1, B(k) = a·B(k-1) / (k + a·B(k-1)).
func ErlangB(servers int, offered float64) (float64, error) {
	if servers < 0 {
		return 0, fmt.Errorf("%w: servers must be non-negative, got %d", ErrInvalidInput, servers)
	}
	if offered < 0 {
		return 0, fmt.Errorf("%w: offered load must be non-negative, got %v", ErrInvalidInput, offered)
	}
	b := 1.0
	for k := 1; k <= servers; k++ {
		b = offered * b / (float64(k) + offered*b)
	}
	return b, nil
}

// CarriedLoad is the mean number of busy servers, a·(1-B). It is the expected
// value of the simulated server utilisation.
func CarriedLoad(servers int, offered float64) (float64, error) {
	b, err := ErlangB(servers, offered)
	if err != nil {
		return 0, err
	}
	return offered * (1 - b), nil
}

// GuardChannelBlocking holds the per-class blocking of a trunk reservation system.
type GuardChannelBlocking struct {
	Handover float64
	NewCall  float64
}

// Aggregate weighs handover blocking against new-call blocking.
func (g GuardChannelBlocking) Aggregate(handoverWeight float64) float64 {
	return g.NewCall + handoverWeight*g.Handover
}

// GuardChannel solves the birth-death chain of a pool where threshold servers are
// reserved for handovers. Below servers-threshold busy servers both classes
// arrive (rate λh+λn); above it only handovers do. New calls are blocked in
// every state with at least servers-threshold busy servers, handovers only when
// all servers are busy.
func GuardChannel(servers, threshold int, handoverRate, newCallRate, departureRate float64) (GuardChannelBlocking, error) {
	if servers <= 0 {
		return GuardChannelBlocking{}, fmt.Errorf("%w: servers must be positive, got %d", ErrInvalidInput, servers)
	}
	if threshold < 0 || threshold >= servers {
		return GuardChannelBlocking{}, fmt.Errorf("%w: threshold must be in [0, %d), got %d", ErrInvalidInput, servers, threshold)
	}
	if handoverRate <= 0 || newCallRate <= 0 || departureRate <= 0 {
		return GuardChannelBlocking{}, fmt.Errorf("%w: rates must be positive", ErrInvalidInput)
	}

	cutoff := servers - threshold
	p := make([]float64, servers+1)
	p[0] = 1
	total := 1.0
	for k := 1; k <= servers; k++ {
		lambda := handoverRate
		if k-1 < cutoff {
			lambda += newCallRate
		}
		p[k] = p[k-1] * lambda / (float64(k) * departureRate)
		total += p[k]
	}

	var newCall float64
	for k := cutoff; k <= servers; k++ {
		newCall += p[k]
	}
	return GuardChannelBlocking{
		Handover: p[servers] / total,
		NewCall:  newCall / total,
	}, nil
}
