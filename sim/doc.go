// Package sim provides the discrete-event engine for loss (M/M/c/c) systems.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: Event lifecycle (arrival → departure) and traffic paths
//   - scheduler.go: time-ordered pending events and departed/blocked bookkeeping
//   - servers.go: the fixed pool of servers
//   - simulator.go: the event loop and admission handling
//
// # Policies
//
// Two admission policies are provided:
//   - loss: a single traffic class, blocked only when every server is busy
//   - reservation: Threshold servers are reserved for handover traffic;
//     new calls are blocked once only the reserved band is free
//
// # Reproducibility
//
// All randomness comes from RandomVariateSource values. By default they are
// derived from Config.Seed through PartitionedRNG, one stream per arrival path
// plus one for service times. There is no package-level mutable state, so
// independent simulators may run concurrently.
//
// Analytic counterparts of the simulated statistics live in sim/analytic.
package sim
