package sim

import "fmt"

// EventKind is the phase an event is in.
type EventKind int

const (
	// Arrival is a client entering the system.
	Arrival EventKind = iota
	// Departure is a served client's completion, freeing its server.
	Departure
)

func (k EventKind) String() string {
	switch k {
	case Arrival:
		return "arrival"
	case Departure:
		return "departure"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Path is the traffic class of an event. The loss policy uses PathPlain only;
// the reservation policy splits traffic into Handover and NewCall.
type Path int

const (
	PathPlain Path = iota
	PathHandover
	PathNewCall

	numPaths
)

// Paths lists every traffic class in reporting order.
var Paths = []Path{PathPlain, PathHandover, PathNewCall}

func (p Path) String() string {
	switch p {
	case PathPlain:
		return "plain"
	case PathHandover:
		return "handover"
	case PathNewCall:
		return "newcall"
	default:
		return fmt.Sprintf("Path(%d)", int(p))
	}
}

func (p Path) valid() bool {
	return p >= PathPlain && p < numPaths
}

// eventState tracks which collection owns an event.
type eventState int

const (
	stateNew      eventState = iota // created, not yet scheduled
	statePending                    // in the scheduler's pending heap
	stateInFlight                   // popped, being processed
	stateDeparted
	stateBlocked
)

// Event is one scheduled occurrence: a client arriving and, once served,
// the same client departing.
type Event struct {
	ArrivalTime   float64
	DepartureTime float64
	Path          Path

	kind     EventKind
	serverID int // 0 until AssignServer
	state    eventState
	seq      uint64 // insertion sequence, set by EventScheduler.Insert
}

// NewArrival creates an arrival on path whose arrival time is reference plus an
// exponential inter-arrival gap, and whose departure follows after an
// exponential service time. Inter-arrival and service draws use separate sources.
func NewArrival(path Path, reference, arrivalRate, departureRate float64, interArrival, service RandomVariateSource) *Event {
	if !path.valid() {
		panic(fmt.Sprintf("NewArrival: unknown path %d", int(path)))
	}
	arrival := reference + interArrival.Exponential(arrivalRate)
	return &Event{
		ArrivalTime:   arrival,
		DepartureTime: arrival + service.Exponential(departureRate),
		Path:          path,
		kind:          Arrival,
	}
}

// Kind returns the event's current phase.
func (e *Event) Kind() EventKind {
	return e.kind
}

// Time is the arrival time while the event is an arrival and the departure time afterwards.
func (e *Event) Time() float64 {
	if e.kind == Arrival {
		return e.ArrivalTime
	}
	return e.DepartureTime
}

// ServiceTime is the time the client holds its server.
func (e *Event) ServiceTime() float64 {
	return e.DepartureTime - e.ArrivalTime
}

// ServerID returns the bound server and whether one has been assigned.
func (e *Event) ServerID() (int, bool) {
	return e.serverID, e.serverID > 0
}

// AssignServer binds the admitted arrival to server id and turns it into a
// departure. It may be called exactly once per arrival.
func (e *Event) AssignServer(id int) error {
	if e.kind != Arrival || e.serverID != 0 {
		return fmt.Errorf("assigning server %d to %s: %w", id, e, ErrInvalidState)
	}
	if id <= 0 {
		return fmt.Errorf("assigning non-positive server id %d: %w", id, ErrInvalidState)
	}
	e.serverID = id
	e.kind = Departure
	return nil
}

// Shift moves both timestamps back by offset. Only unscheduled events may be shifted.
func (e *Event) Shift(offset float64) error {
	if e.state != stateNew {
		return fmt.Errorf("shifting scheduled %s: %w", e, ErrInvalidState)
	}
	e.ArrivalTime -= offset
	e.DepartureTime -= offset
	return nil
}

func (e *Event) String() string {
	if id, ok := e.ServerID(); ok {
		return fmt.Sprintf("%s %s at %.6f (server %d)", e.Path, e.kind, e.Time(), id)
	}
	return fmt.Sprintf("%s %s at %.6f", e.Path, e.kind, e.Time())
}
