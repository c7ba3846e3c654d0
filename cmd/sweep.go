package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	sim "github.com/loss-sim/loss-sim/sim"
	"github.com/loss-sim/loss-sim/sim/analytic"
)

// sweepParams are shared by all sweep subcommands.
type sweepParams struct {
	Servers       int
	Arrivals      int
	DepartureRate float64
	From, To      float64
	Points        int
	Target        float64
	Seed          int64

	// reservation only; the swept rate overrides one of the two
	Threshold      int
	HandoverRate   float64
	NewCallRate    float64
	HandoverWeight float64
}

var sweepFlags sweepParams

// lossPoint is one simulated arrival rate of a loss sweep.
type lossPoint struct {
	ArrivalRate         float64
	Blocking            float64
	AnalyticBlocking    float64
	Utilisation         float64
	AnalyticUtilisation float64
	Results             *sim.Results
}

// reservationPoint is one simulated rate pair of a reservation sweep.
type reservationPoint struct {
	HandoverRate      float64
	NewCallRate       float64
	Aggregate         float64
	HandoverBlocking  float64
	NewCallBlocking   float64
	AnalyticAggregate float64
	Results           *sim.Results
}

// sweepAxis names the reservation rate a sweep varies.
type sweepAxis int

const (
	axisNewCall sweepAxis = iota
	axisHandover
)

func (a sweepAxis) label() string {
	if a == axisHandover {
		return "handover rate"
	}
	return "new call rate"
}

// rate returns the swept coordinate of pt.
func (a sweepAxis) rate(pt reservationPoint) float64 {
	if a == axisHandover {
		return pt.HandoverRate
	}
	return pt.NewCallRate
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a simulation per point of a rate range and compare with analytic results",
}

// rangeDefaults fills --from, --to and --target with per-subcommand defaults
// unless the user set them.
func rangeDefaults(cmd *cobra.Command, from, to, target float64) sweepParams {
	p := sweepFlags
	if !cmd.Flags().Changed("from") {
		p.From = from
	}
	if !cmd.Flags().Changed("to") {
		p.To = to
	}
	if !cmd.Flags().Changed("target") {
		p.Target = target
	}
	return p
}

var sweepLossCmd = &cobra.Command{
	Use:   "loss",
	Short: "Sweep the arrival rate of an M/M/c/c system (log-spaced)",
	Run: func(cmd *cobra.Command, args []string) {
		p := rangeDefaults(cmd, 0.01, 0.1, 0.01)
		points, err := sweepLoss(p)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		printLossSweep(os.Stdout, points, p.Target)
	},
}

var sweepReservationCmd = &cobra.Command{
	Use:   "reservation",
	Short: "Sweep the new call rate of a threshold reservation system (linearly spaced)",
	Run: func(cmd *cobra.Command, args []string) {
		p := rangeDefaults(cmd, 0.01, 0.08, 0.02)
		points, err := sweepReservation(p)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		printReservationSweep(os.Stdout, axisNewCall, points, p.Target)
	},
}

var sweepHandoverCmd = &cobra.Command{
	Use:   "handover",
	Short: "Sweep the handover rate of a threshold reservation system (log-spaced)",
	Run: func(cmd *cobra.Command, args []string) {
		p := rangeDefaults(cmd, 1e-6, 0.1, 0.02)
		points, err := sweepHandover(p)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		printReservationSweep(os.Stdout, axisHandover, points, p.Target)
	},
}

func (p sweepParams) validate() error {
	if p.Points < 2 {
		return fmt.Errorf("points must be at least 2, got %d", p.Points)
	}
	if p.From <= 0 || p.To <= p.From {
		return fmt.Errorf("range must satisfy 0 < from < to, got [%v, %v]", p.From, p.To)
	}
	return nil
}

// sweepLoss simulates every arrival rate of a log-spaced range with the same seed.
func sweepLoss(p sweepParams) ([]lossPoint, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rates := floats.LogSpan(make([]float64, p.Points), p.From, p.To)
	points := make([]lossPoint, 0, len(rates))
	for _, rate := range rates {
		cfg := sim.NewLossConfig(p.Servers, p.Arrivals, rate, p.DepartureRate, p.Seed)
		res, err := simulate(cfg)
		if err != nil {
			return nil, fmt.Errorf("arrival rate %v: %w", rate, err)
		}
		offered, err := analytic.OfferedLoad(rate, p.DepartureRate)
		if err != nil {
			return nil, err
		}
		blocking, err := analytic.ErlangB(p.Servers, offered)
		if err != nil {
			return nil, err
		}
		carried, err := analytic.CarriedLoad(p.Servers, offered)
		if err != nil {
			return nil, err
		}
		points = append(points, lossPoint{
			ArrivalRate:         rate,
			Blocking:            res.BlockingProbability,
			AnalyticBlocking:    blocking,
			Utilisation:         res.Utilisation,
			AnalyticUtilisation: carried,
			Results:             res,
		})
	}
	return points, nil
}

// sweepReservation simulates every new call rate of a linear range with the
// handover rate fixed.
func sweepReservation(p sweepParams) ([]reservationPoint, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rates := floats.Span(make([]float64, p.Points), p.From, p.To)
	points := make([]reservationPoint, 0, len(rates))
	for _, rate := range rates {
		pt, err := reservationAt(p, p.HandoverRate, rate)
		if err != nil {
			return nil, fmt.Errorf("new call rate %v: %w", rate, err)
		}
		points = append(points, pt)
	}
	return points, nil
}

// sweepHandover simulates every handover rate of a log-spaced range with the
// new call rate fixed.
func sweepHandover(p sweepParams) ([]reservationPoint, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rates := floats.LogSpan(make([]float64, p.Points), p.From, p.To)
	points := make([]reservationPoint, 0, len(rates))
	for _, rate := range rates {
		pt, err := reservationAt(p, rate, p.NewCallRate)
		if err != nil {
			return nil, fmt.Errorf("handover rate %v: %w", rate, err)
		}
		points = append(points, pt)
	}
	return points, nil
}

func reservationAt(p sweepParams, handoverRate, newCallRate float64) (reservationPoint, error) {
	cfg := sim.NewReservationConfig(p.Servers, p.Arrivals, p.Threshold, handoverRate, newCallRate, p.DepartureRate, p.Seed)
	cfg.HandoverWeight = p.HandoverWeight
	res, err := simulate(cfg)
	if err != nil {
		return reservationPoint{}, err
	}
	gc, err := analytic.GuardChannel(p.Servers, p.Threshold, handoverRate, newCallRate, p.DepartureRate)
	if err != nil {
		return reservationPoint{}, err
	}
	return reservationPoint{
		HandoverRate:      handoverRate,
		NewCallRate:       newCallRate,
		Aggregate:         res.BlockingProbability,
		HandoverBlocking:  res.HandoverBlocking,
		NewCallBlocking:   res.NewCallBlocking,
		AnalyticAggregate: gc.Aggregate(p.HandoverWeight),
		Results:           res,
	}, nil
}

func simulate(cfg sim.Config) (*sim.Results, error) {
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	return s.Run()
}

// bestUnder returns the index of the last value below target, or -1.
// Blocking grows with the swept rate, so this is the largest acceptable rate.
func bestUnder(values []float64, target float64) int {
	best := -1
	for i, v := range values {
		if v < target {
			best = i
		}
	}
	return best
}

func printLossSweep(w io.Writer, points []lossPoint, target float64) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "arrival_rate\tblocking\terlang_b\tutilisation\tcarried_load")
	blocking := make([]float64, len(points))
	diffs := make([]float64, len(points))
	for i, pt := range points {
		fmt.Fprintf(tw, "%.6f\t%.6f\t%.6f\t%.4f\t%.4f\n",
			pt.ArrivalRate, pt.Blocking, pt.AnalyticBlocking, pt.Utilisation, pt.AnalyticUtilisation)
		blocking[i] = pt.Blocking
		diffs[i] = pt.Blocking - pt.AnalyticBlocking
	}
	tw.Flush()

	fmt.Fprintf(w, "\nMean deviation from Erlang-B: %.6f\n", stat.Mean(diffs, nil))
	i := bestUnder(blocking, target)
	if i < 0 {
		fmt.Fprintf(w, "No arrival rate with blocking below %v\n", target)
		return
	}
	fmt.Fprintf(w, "Largest arrival rate with blocking below %v: %.6f (blocking %.6f)\n",
		target, points[i].ArrivalRate, points[i].Blocking)
	printBestReport(w, points[i].Results)
}

func printReservationSweep(w io.Writer, axis sweepAxis, points []reservationPoint, target float64) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "handover_rate\tnewcall_rate\taggregate\thandover\tnewcall\tanalytic_aggregate")
	aggregate := make([]float64, len(points))
	for i, pt := range points {
		fmt.Fprintf(tw, "%.6g\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\n",
			pt.HandoverRate, pt.NewCallRate, pt.Aggregate, pt.HandoverBlocking, pt.NewCallBlocking, pt.AnalyticAggregate)
		aggregate[i] = pt.Aggregate
	}
	tw.Flush()

	i := bestUnder(aggregate, target)
	if i < 0 {
		fmt.Fprintf(w, "\nNo %s with aggregate blocking below %v\n", axis.label(), target)
		return
	}
	fmt.Fprintf(w, "\nLargest %s with aggregate blocking below %v: %.6g (aggregate %.6f)\n",
		axis.label(), target, axis.rate(points[i]), points[i].Aggregate)
	printBestReport(w, points[i].Results)
}

// printBestReport prints the full report of the chosen point. Every point
// shares the seed, so this is the run a rerun at that rate would produce.
func printBestReport(w io.Writer, res *sim.Results) {
	if res == nil {
		return
	}
	fmt.Fprintln(w)
	res.Print(w)
}

func registerReservationSweepFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&sweepFlags.Threshold, "threshold", 2, "Servers reserved for handovers")
	cmd.Flags().Float64Var(&sweepFlags.HandoverWeight, "handover-weight", sim.DefaultHandoverWeight, "Weight of handover blocking in the aggregate")
}

func init() {
	f := sweepCmd.PersistentFlags()
	f.IntVar(&sweepFlags.Servers, "servers", 16, "Number of servers")
	f.IntVar(&sweepFlags.Arrivals, "arrivals", 10000, "Arrivals per simulated point")
	f.Float64Var(&sweepFlags.DepartureRate, "departure-rate", 0.01, "Service rate of one server")
	f.Float64Var(&sweepFlags.From, "from", 0.01, "First rate of the range")
	f.Float64Var(&sweepFlags.To, "to", 0.1, "Last rate of the range")
	f.IntVar(&sweepFlags.Points, "points", 50, "Number of points in the range")
	f.Float64Var(&sweepFlags.Target, "target", 0.01, "Blocking target used to pick the best rate")
	f.Int64Var(&sweepFlags.Seed, "seed", 42, "Seed shared by every point")

	registerReservationSweepFlags(sweepReservationCmd)
	sweepReservationCmd.Flags().Float64Var(&sweepFlags.HandoverRate, "handover-rate", 0.03, "Fixed handover arrival rate")

	registerReservationSweepFlags(sweepHandoverCmd)
	sweepHandoverCmd.Flags().Float64Var(&sweepFlags.NewCallRate, "newcall-rate", 0.1, "Fixed new call arrival rate")

	sweepCmd.AddCommand(sweepLossCmd, sweepReservationCmd, sweepHandoverCmd)
	rootCmd.AddCommand(sweepCmd)
}
