package sim

import "fmt"

// AdmissionPolicy decides whether an arrival on a path may take a server.
// A positive decision is always followed by ServerPool.Allocate; a pool that
// turns out to be full still blocks the arrival.
type AdmissionPolicy interface {
	Admit(path Path, pool *ServerPool) bool
	Name() string
}

// LossAdmission is the plain M/M/c/c rule: admit while any server is free.
type LossAdmission struct{}

func (LossAdmission) Admit(_ Path, pool *ServerPool) bool {
	return pool.IsAvailable()
}

func (LossAdmission) Name() string { return PolicyLoss }

// ReservationAdmission keeps Threshold servers for handover traffic.
// New calls are admitted only while more than Threshold servers are free;
// handovers may use any free server, including the reserved band.
type ReservationAdmission struct {
	Threshold int
}

func (r ReservationAdmission) Admit(path Path, pool *ServerPool) bool {
	if pool.AvailableCount() > r.Threshold {
		return true
	}
	return path == PathHandover && pool.IsAvailable()
}

func (ReservationAdmission) Name() string { return PolicyReservation }

// AlwaysAdmit admits every arrival and leaves capacity checks to the pool.
type AlwaysAdmit struct{}

func (AlwaysAdmit) Admit(Path, *ServerPool) bool { return true }

func (AlwaysAdmit) Name() string { return "always-admit" }

// NewAdmissionPolicy creates the admission policy named in cfg.
func NewAdmissionPolicy(cfg Config) (AdmissionPolicy, error) {
	switch cfg.Policy {
	case PolicyLoss:
		return LossAdmission{}, nil
	case PolicyReservation:
		return ReservationAdmission{Threshold: cfg.Threshold}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q: %w", cfg.Policy, ErrInvalidConfiguration)
	}
}
