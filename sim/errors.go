package sim

import "errors"

// Sentinel errors returned by the simulation kernel. Call sites wrap them
// with context; callers match with errors.Is.
var (
	// ErrInvalidConfiguration is returned before a run starts when the
	// configuration cannot describe a loss system.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNoCapacity is returned by ServerPool.Allocate when every server is
	// busy. The simulator turns it into a blocked arrival.
	ErrNoCapacity = errors.New("no free server")

	// ErrInvalidServer is returned when releasing a server that is not busy.
	ErrInvalidServer = errors.New("invalid server")

	// ErrInvalidState is returned on an illegal event transition, such as
	// assigning a server twice or retiring an event that is still pending.
	ErrInvalidState = errors.New("invalid event state")

	// ErrEmptyQueue is returned by EventScheduler.PopEarliest when nothing is
	// pending. In a correctly driven run it never happens.
	ErrEmptyQueue = errors.New("event queue is empty")
)
