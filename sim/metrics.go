// Tracks run counters and the end-of-run statistics of a loss simulation.

package sim

import (
	"fmt"
	"io"

	"github.com/uber-go/tally/v4"
)

// runMetrics holds the tally instruments updated while events are processed.
type runMetrics struct {
	arrivals [numPaths]tally.Counter
	admitted [numPaths]tally.Counter
	blocked  [numPaths]tally.Counter
	departed [numPaths]tally.Counter

	busyServers tally.Gauge
}

func newRunMetrics(scope tally.Scope) *runMetrics {
	m := &runMetrics{busyServers: scope.Gauge("busy_servers")}
	for _, p := range Paths {
		tagged := scope.Tagged(map[string]string{"path": p.String()})
		m.arrivals[p] = tagged.Counter("arrivals")
		m.admitted[p] = tagged.Counter("admitted")
		m.blocked[p] = tagged.Counter("blocked")
		m.departed[p] = tagged.Counter("departed")
	}
	return m
}

// Results is a read-only snapshot of a run's outcome.
type Results struct {
	Policy string `json:"policy"`

	Arrivals         int `json:"arrivals"`
	HandoverArrivals int `json:"handover_arrivals"`
	NewCallArrivals  int `json:"newcall_arrivals"`
	Departed         int `json:"departed"`
	Blocked          int `json:"blocked"`
	HandoverBlocked  int `json:"handover_blocked"`
	NewCallBlocked   int `json:"newcall_blocked"`
	// Incomplete counts clients still in service when the run stopped.
	Incomplete int `json:"incomplete"`

	SimTime float64 `json:"sim_time"`
	// BlockingProbability is blocked/arrivals for the loss policy and the
	// weighted aggregate for the reservation policy.
	BlockingProbability float64 `json:"blocking_probability"`
	HandoverBlocking    float64 `json:"handover_blocking"`
	NewCallBlocking     float64 `json:"newcall_blocking"`
	Utilisation         float64 `json:"utilisation"`
}

// Results computes the statistics of the events processed so far.
func (sim *Simulator) Results() *Results {
	ev := sim.Events
	r := &Results{
		Policy:           sim.Policy.Name(),
		Arrivals:         sim.TotalArrivals(),
		HandoverArrivals: sim.arrivals[PathHandover],
		NewCallArrivals:  sim.arrivals[PathNewCall],
		Departed:         len(ev.Departed()),
		Blocked:          ev.BlockedTotal(),
		HandoverBlocked:  len(ev.Blocked(PathHandover)),
		NewCallBlocked:   len(ev.Blocked(PathNewCall)),
		SimTime:          sim.Clock,
	}
	r.Incomplete = r.Arrivals - r.Departed - r.Blocked
	r.HandoverBlocking = fraction(r.HandoverBlocked, r.HandoverArrivals)
	r.NewCallBlocking = fraction(r.NewCallBlocked, r.NewCallArrivals)
	if sim.Config.Policy == PolicyReservation {
		r.BlockingProbability = AggregateBlocking(r.NewCallBlocking, r.HandoverBlocking, sim.Config.HandoverWeight)
	} else {
		r.BlockingProbability = fraction(r.Blocked, r.Arrivals)
	}
	r.Utilisation = utilisation(ev.Departed(), sim.Clock)
	return r
}

// AggregateBlocking weighs handover blocking against new-call blocking.
func AggregateBlocking(newCall, handover, handoverWeight float64) float64 {
	return newCall + handoverWeight*handover
}

func fraction(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// utilisation is the service time delivered to departed clients per unit of simulated time.
func utilisation(departed []*Event, clock float64) float64 {
	if clock <= 0 {
		return 0
	}
	var served float64
	for _, e := range departed {
		served += e.ServiceTime()
	}
	return served / clock
}

// Print writes a human-readable report.
func (r *Results) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Results ===")
	fmt.Fprintf(w, "Policy               : %s\n", r.Policy)
	fmt.Fprintf(w, "Arrivals             : %d\n", r.Arrivals)
	if r.Policy == PolicyReservation {
		fmt.Fprintf(w, "  Handover           : %d\n", r.HandoverArrivals)
		fmt.Fprintf(w, "  New call           : %d\n", r.NewCallArrivals)
	}
	fmt.Fprintf(w, "Incomplete           : %d\n", r.Incomplete)
	fmt.Fprintf(w, "Departures           : %d\n", r.Departed)
	fmt.Fprintf(w, "Blocked              : %d\n", r.Blocked)
	if r.Policy == PolicyReservation {
		fmt.Fprintf(w, "  Handover blocked   : %d (%.6f)\n", r.HandoverBlocked, r.HandoverBlocking)
		fmt.Fprintf(w, "  New call blocked   : %d (%.6f)\n", r.NewCallBlocked, r.NewCallBlocking)
	}
	fmt.Fprintf(w, "Blocking rate        : %.6f\n", r.BlockingProbability)
	fmt.Fprintf(w, "Server utilisation   : %.6f\n", r.Utilisation)
	fmt.Fprintf(w, "Simulated time       : %.4f\n", r.SimTime)
}
