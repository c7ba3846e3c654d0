package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/loss-sim/loss-sim/sim"
)

func smallSweep() sweepParams {
	return sweepParams{
		Servers:        4,
		Arrivals:       2000,
		DepartureRate:  1,
		From:           0.5,
		To:             4,
		Points:         4,
		Target:         0.05,
		Seed:           1,
		Threshold:      1,
		HandoverRate:   0.5,
		HandoverWeight: 10,
	}
}

func TestSweepLoss_LogSpacedRatesWithAnalyticReference(t *testing.T) {
	points, err := sweepLoss(smallSweep())
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.InDelta(t, 0.5, points[0].ArrivalRate, 1e-12)
	assert.InDelta(t, 4.0, points[3].ArrivalRate, 1e-12)
	// log spacing: constant ratio between neighbours
	assert.InDelta(t, points[1].ArrivalRate/points[0].ArrivalRate, points[2].ArrivalRate/points[1].ArrivalRate, 1e-9)
	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].AnalyticBlocking, points[i-1].AnalyticBlocking)
	}
}

func TestSweepReservation_LinearRates(t *testing.T) {
	p := smallSweep()
	p.From, p.To = 0.5, 2

	points, err := sweepReservation(p)
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.InDelta(t, 0.5, points[1].NewCallRate-points[0].NewCallRate, 1e-12)
	for _, pt := range points {
		assert.InDelta(t, pt.NewCallBlocking+10*pt.HandoverBlocking, pt.Aggregate, 1e-12)
		assert.Greater(t, pt.AnalyticAggregate, 0.0)
	}
}

func TestSweep_InvalidRange_ReturnsError(t *testing.T) {
	p := smallSweep()
	p.From, p.To = 2, 1
	_, err := sweepLoss(p)
	assert.Error(t, err)

	p = smallSweep()
	p.Points = 1
	_, err = sweepReservation(p)
	assert.Error(t, err)
}

func TestBestUnder_PicksLastValueBelowTarget(t *testing.T) {
	assert.Equal(t, 2, bestUnder([]float64{0.001, 0.005, 0.009, 0.02}, 0.01))
	assert.Equal(t, -1, bestUnder([]float64{0.5, 0.6}, 0.01))
	assert.Equal(t, -1, bestUnder(nil, 0.01))
}

func TestPrintLossSweep_ReportsBestRate(t *testing.T) {
	points := []lossPoint{
		{ArrivalRate: 0.01, Blocking: 0.001, AnalyticBlocking: 0.002},
		{ArrivalRate: 0.02, Blocking: 0.03, AnalyticBlocking: 0.02},
	}
	var buf bytes.Buffer

	printLossSweep(&buf, points, 0.01)

	out := buf.String()
	assert.Contains(t, out, "erlang_b")
	assert.Contains(t, out, "Mean deviation from Erlang-B: 0.004500")
	assert.Contains(t, out, "Largest arrival rate with blocking below 0.01: 0.010000")
}

func TestPrintReservationSweep_NoRateUnderTarget(t *testing.T) {
	points := []reservationPoint{{NewCallRate: 0.05, Aggregate: 0.5}}
	var buf bytes.Buffer

	printReservationSweep(&buf, axisNewCall, points, 0.02)

	assert.Contains(t, buf.String(), "No new call rate with aggregate blocking below 0.02")
	assert.NotContains(t, buf.String(), "Simulation Results")
}

func TestSweepHandover_LogSpacedHandoverAxis(t *testing.T) {
	// GIVEN a handover range spanning three decades and a fixed new call rate
	p := smallSweep()
	p.From, p.To = 1e-3, 1
	p.NewCallRate = 0.5

	// WHEN the handover rate is swept
	points, err := sweepHandover(p)

	// THEN the handover axis is log-spaced and the new call rate never moves
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.InDelta(t, 1e-3, points[0].HandoverRate, 1e-12)
	assert.InDelta(t, 1e-2, points[1].HandoverRate, 1e-12)
	assert.InDelta(t, 1e-1, points[2].HandoverRate, 1e-12)
	assert.InDelta(t, 1.0, points[3].HandoverRate, 1e-12)
	for _, pt := range points {
		assert.Equal(t, 0.5, pt.NewCallRate)
		require.NotNil(t, pt.Results)
		assert.Equal(t, 2000, pt.Results.Arrivals)
	}
	assert.Greater(t, points[3].AnalyticAggregate, points[0].AnalyticAggregate)
}

func TestSweepHandover_InvalidRange_ReturnsError(t *testing.T) {
	p := smallSweep()
	p.From, p.To = 0, 0.1
	p.NewCallRate = 0.5

	_, err := sweepHandover(p)

	assert.Error(t, err)
}

func TestPrintReservationSweep_HandoverAxis_PrintsBestReport(t *testing.T) {
	// GIVEN a handover sweep whose first point is under the target
	best := &sim.Results{Policy: sim.PolicyReservation, Arrivals: 100, HandoverArrivals: 1, NewCallArrivals: 99}
	points := []reservationPoint{
		{HandoverRate: 1e-6, NewCallRate: 0.1, Aggregate: 0.01, Results: best},
		{HandoverRate: 1e-1, NewCallRate: 0.1, Aggregate: 0.3, Results: &sim.Results{}},
	}
	var buf bytes.Buffer

	// WHEN the sweep is printed
	printReservationSweep(&buf, axisHandover, points, 0.02)

	// THEN the chosen handover rate is named and its full report follows
	out := buf.String()
	assert.Contains(t, out, "Largest handover rate with aggregate blocking below 0.02: 1e-06 (aggregate 0.010000)")
	assert.Contains(t, out, "=== Simulation Results ===")
	assert.Contains(t, out, "  New call           : 99")
}

func TestPrintLossSweep_PrintsBestReport(t *testing.T) {
	points := []lossPoint{
		{ArrivalRate: 0.01, Blocking: 0.001, Results: &sim.Results{Policy: sim.PolicyLoss, Arrivals: 42}},
	}
	var buf bytes.Buffer

	printLossSweep(&buf, points, 0.01)

	assert.Contains(t, buf.String(), "Arrivals             : 42")
}
