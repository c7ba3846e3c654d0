package sim

import "testing"

// seqVariates returns queued draws in order, then fallback forever.
// The requested rate is ignored.
type seqVariates struct {
	vals     []float64
	next     int
	fallback float64
}

func newSeqVariates(fallback float64, vals ...float64) *seqVariates {
	return &seqVariates{vals: vals, fallback: fallback}
}

func (s *seqVariates) Exponential(float64) float64 {
	if s.next < len(s.vals) {
		v := s.vals[s.next]
		s.next++
		return v
	}
	return s.fallback
}

// newTestEvent builds an arrival at arrival whose service lasts service.
func newTestEvent(path Path, arrival, service float64) *Event {
	src := newSeqVariates(1, arrival, service)
	return NewArrival(path, 0, 1, 1, src, src)
}

// checkPoolInvariant fails t if free and busy overlap or do not cover 1..N.
func checkPoolInvariant(t testing.TB, p *ServerPool) {
	t.Helper()
	seen := make(map[int]bool, p.Size())
	for _, id := range p.Free() {
		seen[id] = true
	}
	for _, id := range p.Busy() {
		if seen[id] {
			t.Fatalf("server %d is both free and busy", id)
		}
		seen[id] = true
	}
	if len(seen) != p.Size() {
		t.Fatalf("free+busy = %d ids, want %d", len(seen), p.Size())
	}
	for id := 1; id <= p.Size(); id++ {
		if !seen[id] {
			t.Fatalf("server %d missing from free and busy", id)
		}
	}
}
