package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateBlocking_WeighsHandovers(t *testing.T) {
	assert.InDelta(t, 0.03, AggregateBlocking(0.02, 0.001, 10), 1e-12)
	assert.Equal(t, 0.02, AggregateBlocking(0.02, 0.5, 0))
}

func TestFraction_ZeroDenominator(t *testing.T) {
	assert.Equal(t, 0.0, fraction(3, 0))
	assert.Equal(t, 0.25, fraction(1, 4))
}

func TestUtilisation_ZeroClock_ReturnsZero(t *testing.T) {
	departed := []*Event{newTestEvent(PathPlain, 0, 2)}
	assert.Equal(t, 0.0, utilisation(departed, 0))
	assert.Equal(t, 0.5, utilisation(departed, 4))
}

func TestResultsPrint_LossOmitsPerPathLines(t *testing.T) {
	r := &Results{Policy: PolicyLoss, Arrivals: 10, Departed: 8, Blocked: 2, BlockingProbability: 0.2}
	var buf bytes.Buffer

	r.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "Blocking rate        : 0.200000")
	assert.NotContains(t, out, "Handover blocked")
}

func TestResultsPrint_ReservationShowsPerPathLines(t *testing.T) {
	r := &Results{
		Policy: PolicyReservation, Arrivals: 10, HandoverArrivals: 4, NewCallArrivals: 6,
		HandoverBlocked: 1, NewCallBlocked: 3, Blocked: 4,
		HandoverBlocking: 0.25, NewCallBlocking: 0.5,
	}
	var buf bytes.Buffer

	r.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "  Handover           : 4")
	assert.Contains(t, out, "  Handover blocked   : 1 (0.250000)")
	assert.Contains(t, out, "  New call blocked   : 3 (0.500000)")
}
