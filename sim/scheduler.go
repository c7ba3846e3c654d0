package sim

import (
	"container/heap"
	"fmt"
)

// eventHeap implements heap.Interface.
// Ordering: time → insertion sequence, so events at equal times leave in FIFO order.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].Time(), h[j].Time()
	if ti != tj {
		return ti < tj
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// ArrivalStream is one Poisson arrival process feeding the scheduler.
type ArrivalStream struct {
	Path   Path
	Rate   float64
	Source RandomVariateSource
}

// EventScheduler keeps pending events in time order and the terminal
// bookkeeping of departed and blocked clients.
type EventScheduler struct {
	pending  eventHeap
	nextSeq  uint64
	departed []*Event
	blocked  [numPaths][]*Event
}

// NewEventScheduler creates an empty scheduler.
func NewEventScheduler() *EventScheduler {
	s := &EventScheduler{pending: make(eventHeap, 0)}
	heap.Init(&s.pending)
	return s
}

// Start seeds one first arrival per stream. The earliest first-arrival time is
// subtracted from every seed so that all streams start their clocks at 0 and the
// earliest seed arrives at time 0.
func (s *EventScheduler) Start(streams []ArrivalStream, departureRate float64, service RandomVariateSource) error {
	if len(streams) == 0 {
		return fmt.Errorf("starting scheduler with no arrival streams: %w", ErrInvalidConfiguration)
	}
	seeds := make([]*Event, 0, len(streams))
	start := 0.0
	for i, st := range streams {
		e := NewArrival(st.Path, 0, st.Rate, departureRate, st.Source, service)
		if i == 0 || e.ArrivalTime < start {
			start = e.ArrivalTime
		}
		seeds = append(seeds, e)
	}
	for _, e := range seeds {
		if err := e.Shift(start); err != nil {
			return err
		}
		if err := s.Insert(e); err != nil {
			return err
		}
	}
	return nil
}

// Insert schedules e. Events at equal times are popped in insertion order.
func (s *EventScheduler) Insert(e *Event) error {
	if e.state != stateNew && e.state != stateInFlight {
		return fmt.Errorf("inserting %s: %w", e, ErrInvalidState)
	}
	e.seq = s.nextSeq
	s.nextSeq++
	e.state = statePending
	heap.Push(&s.pending, e)
	return nil
}

// PopEarliest removes and returns the pending event with the smallest time.
func (s *EventScheduler) PopEarliest() (*Event, error) {
	if s.pending.Len() == 0 {
		return nil, ErrEmptyQueue
	}
	e := heap.Pop(&s.pending).(*Event)
	e.state = stateInFlight
	return e, nil
}

// Peek returns the next event without removing it, or nil.
func (s *EventScheduler) Peek() *Event {
	if s.pending.Len() == 0 {
		return nil
	}
	return s.pending[0]
}

// Len returns the number of pending events.
func (s *EventScheduler) Len() int {
	return s.pending.Len()
}

// PendingDepartures counts served clients that have not yet departed.
func (s *EventScheduler) PendingDepartures() int {
	n := 0
	for _, e := range s.pending {
		if e.kind == Departure {
			n++
		}
	}
	return n
}

// RecordDeparture retires a popped departure.
func (s *EventScheduler) RecordDeparture(e *Event) error {
	if e.state != stateInFlight || e.kind != Departure {
		return fmt.Errorf("recording departure of %s: %w", e, ErrInvalidState)
	}
	e.state = stateDeparted
	s.departed = append(s.departed, e)
	return nil
}

// RecordBlocked retires a popped arrival into its path's blocked collection.
func (s *EventScheduler) RecordBlocked(e *Event) error {
	if e.state != stateInFlight || e.kind != Arrival {
		return fmt.Errorf("recording blocked %s: %w", e, ErrInvalidState)
	}
	e.state = stateBlocked
	s.blocked[e.Path] = append(s.blocked[e.Path], e)
	return nil
}

// Departed returns the departed events in departure order.
// The returned slice is internal storage; callers MUST NOT modify it.
func (s *EventScheduler) Departed() []*Event {
	return s.departed
}

// Blocked returns the blocked events of path in arrival order.
// The returned slice is internal storage; callers MUST NOT modify it.
func (s *EventScheduler) Blocked(p Path) []*Event {
	if !p.valid() {
		return nil
	}
	return s.blocked[p]
}

// BlockedTotal counts blocked events across all paths.
func (s *EventScheduler) BlockedTotal() int {
	n := 0
	for _, b := range s.blocked {
		n += len(b)
	}
	return n
}
