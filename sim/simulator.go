// sim/simulator.go
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
)

// Simulator is the core object that holds simulation time, the server pool and the event loop.
// A Simulator runs once; build a new one for every run.
type Simulator struct {
	// Clock is the time of the most recently processed event.
	Clock  float64
	Config Config
	// Events holds pending events and the departed/blocked bookkeeping.
	Events  *EventScheduler
	Servers *ServerPool
	Policy  AdmissionPolicy

	streams  [numPaths]ArrivalStream
	active   []Path
	service  RandomVariateSource
	arrivals [numPaths]int
	started  bool
	metrics  *runMetrics
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithVariateSource replaces every random stream (arrivals of all paths and
// service times) with src. Used to drive runs from a deterministic sequence.
func WithVariateSource(src RandomVariateSource) Option {
	return func(s *Simulator) {
		for p := range s.streams {
			s.streams[p].Source = src
		}
		s.service = src
	}
}

// WithAdmissionPolicy overrides the policy derived from Config.Policy.
func WithAdmissionPolicy(p AdmissionPolicy) Option {
	return func(s *Simulator) {
		s.Policy = p
	}
}

// WithMetricsScope reports run counters to scope.
func WithMetricsScope(scope tally.Scope) Option {
	return func(s *Simulator) {
		s.metrics = newRunMetrics(scope)
	}
}

// NewSimulator validates cfg and builds a simulator ready to run.
// Without options, random streams are derived from cfg.Seed.
func NewSimulator(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := NewAdmissionPolicy(cfg)
	if err != nil {
		return nil, err
	}
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	s := &Simulator{
		Config:  cfg,
		Events:  NewEventScheduler(),
		Servers: NewServerPool(cfg.TotalServers),
		Policy:  policy,
		service: NewExpSampler(rng.ForSubsystem(SubsystemService)),
		metrics: newRunMetrics(tally.NoopScope),
	}
	for _, st := range cfg.streams() {
		st.Source = NewExpSampler(rng.ForSubsystem(SubsystemArrivals(st.Path)))
		s.streams[st.Path] = st
		s.active = append(s.active, st.Path)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Arrivals returns the number of arrivals processed on path.
func (sim *Simulator) Arrivals(p Path) int {
	if !p.valid() {
		return 0
	}
	return sim.arrivals[p]
}

// TotalArrivals returns the number of arrivals processed on all paths.
func (sim *Simulator) TotalArrivals() int {
	n := 0
	for _, a := range sim.arrivals {
		n += a
	}
	return n
}

// Done reports whether the configured number of arrivals has been processed.
func (sim *Simulator) Done() bool {
	return sim.TotalArrivals() >= sim.Config.TotalArrivals
}

// Step processes exactly one event. It returns done=true once the arrival
// target is reached; further calls are no-ops. Errors are fatal to the run.
func (sim *Simulator) Step() (bool, error) {
	if sim.Done() {
		return true, nil
	}
	if !sim.started {
		if err := sim.start(); err != nil {
			return false, err
		}
	}

	ev, err := sim.Events.PopEarliest()
	if err != nil {
		return false, fmt.Errorf("after %d arrivals at t=%v: %w", sim.TotalArrivals(), sim.Clock, err)
	}
	sim.Clock = ev.Time()
	logrus.Debugf("[t=%.6f] Executing %s", sim.Clock, ev)

	switch ev.Kind() {
	case Arrival:
		err = sim.handleArrival(ev)
	case Departure:
		err = sim.handleDeparture(ev)
	default:
		err = fmt.Errorf("processing %s: %w", ev, ErrInvalidState)
	}
	if err != nil {
		return false, err
	}
	sim.metrics.busyServers.Update(float64(sim.Servers.BusyCount()))
	return sim.Done(), nil
}

// Run processes events until the arrival target is reached.
func (sim *Simulator) Run() (*Results, error) {
	return sim.RunContext(context.Background())
}

// RunContext is Run with cancellation checked between events.
func (sim *Simulator) RunContext(ctx context.Context) (*Results, error) {
	logrus.Infof("Starting %s simulation with %d servers, %d arrivals",
		sim.Policy.Name(), sim.Config.TotalServers, sim.Config.TotalArrivals)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done, err := sim.Step()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	logrus.Infof("[t=%.6f] Simulation ended after %d arrivals", sim.Clock, sim.TotalArrivals())
	return sim.Results(), nil
}

func (sim *Simulator) start() error {
	streams := make([]ArrivalStream, 0, len(sim.active))
	for _, p := range sim.active {
		streams = append(streams, sim.streams[p])
	}
	if err := sim.Events.Start(streams, sim.Config.DepartureRate, sim.service); err != nil {
		return err
	}
	sim.started = true
	return nil
}

// handleArrival counts the arrival, schedules the path's next arrival, then
// either serves or blocks the client.
func (sim *Simulator) handleArrival(ev *Event) error {
	path := ev.Path
	sim.arrivals[path]++
	sim.metrics.arrivals[path].Inc(1)

	st := sim.streams[path]
	next := NewArrival(path, ev.Time(), st.Rate, sim.Config.DepartureRate, st.Source, sim.service)
	if err := sim.Events.Insert(next); err != nil {
		return err
	}

	if !sim.Policy.Admit(path, sim.Servers) {
		return sim.block(ev)
	}
	id, err := sim.Servers.Allocate()
	if errors.Is(err, ErrNoCapacity) {
		logrus.Warnf("[t=%.6f] %s admitted %s with no free server", sim.Clock, sim.Policy.Name(), ev)
		return sim.block(ev)
	}
	if err != nil {
		return err
	}
	if err := ev.AssignServer(id); err != nil {
		return err
	}
	sim.metrics.admitted[path].Inc(1)
	return sim.Events.Insert(ev)
}

func (sim *Simulator) block(ev *Event) error {
	sim.metrics.blocked[ev.Path].Inc(1)
	return sim.Events.RecordBlocked(ev)
}

func (sim *Simulator) handleDeparture(ev *Event) error {
	id, ok := ev.ServerID()
	if !ok {
		return fmt.Errorf("departure without server %s: %w", ev, ErrInvalidState)
	}
	if err := sim.Servers.Release(id); err != nil {
		return err
	}
	sim.metrics.departed[ev.Path].Inc(1)
	return sim.Events.RecordDeparture(ev)
}
