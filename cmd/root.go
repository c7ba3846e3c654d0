package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uber-go/tally/v4"

	sim "github.com/loss-sim/loss-sim/sim"
)

var (
	// CLI flags for a single run
	seed           int64   // Seed for arrival and service streams
	logLevel       string  // Log verbosity level
	configPath     string  // Optional YAML run configuration
	policy         string  // Admission policy: loss or reservation
	totalServers   int     // Number of servers in the pool
	totalArrivals  int     // Arrivals processed before the run stops
	arrivalRate    float64 // Arrival rate (loss policy)
	departureRate  float64 // Service rate of one server
	handoverRate   float64 // Handover arrival rate (reservation policy)
	newCallRate    float64 // New call arrival rate (reservation policy)
	threshold      int     // Servers reserved for handovers
	handoverWeight float64 // Weight of handover blocking in the aggregate
	jsonOutput     bool    // Print results as JSON
	reportMetrics  bool    // Log run counters at the end of the run
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "loss-sim",
	Short: "Discrete-event simulator for M/M/c/c loss systems",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd executes one simulation using parameters from CLI flags and/or a config file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single loss simulation",
	Run: func(cmd *cobra.Command, args []string) {
		if err := executeRun(cmd, os.Stdout, logrus.New()); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// executeRun builds the configuration, runs it and writes the report to out.
// With --metrics the counters are flushed through metricsLog before it returns,
// whether or not the run failed.
func executeRun(cmd *cobra.Command, out io.Writer, metricsLog logrus.FieldLogger) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	scope := tally.NoopScope
	if reportMetrics {
		root, closer := newLogScope("loss_sim", metricsLog)
		defer closer.Close()
		scope = root
	}

	if err := runSimulation(cfg, scope, out, jsonOutput); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	return nil
}

// buildConfig starts from --config when given and applies every flag the user
// set explicitly. Without --config all flags (including defaults) apply.
func buildConfig(cmd *cobra.Command) (sim.Config, error) {
	var cfg sim.Config
	fromFile := configPath != ""
	if fromFile {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return sim.Config{}, err
		}
		cfg = *loaded
	}
	apply := func(name string) bool {
		return !fromFile || cmd.Flags().Changed(name)
	}

	if apply("policy") {
		cfg.Policy = policy
	}
	if apply("seed") {
		cfg.Seed = seed
	}
	if apply("servers") {
		cfg.TotalServers = totalServers
	}
	if apply("arrivals") {
		cfg.TotalArrivals = totalArrivals
	}
	if apply("departure-rate") {
		cfg.DepartureRate = departureRate
	}
	if apply("arrival-rate") {
		cfg.ArrivalRate = arrivalRate
	}
	if apply("handover-rate") {
		cfg.HandoverRate = handoverRate
	}
	if apply("newcall-rate") {
		cfg.NewCallRate = newCallRate
	}
	if apply("threshold") {
		cfg.Threshold = threshold
	}
	if apply("handover-weight") {
		cfg.HandoverWeight = handoverWeight
	}

	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

// runSimulation runs cfg to completion and writes the report to out.
func runSimulation(cfg sim.Config, scope tally.Scope, out io.Writer, asJSON bool) error {
	s, err := sim.NewSimulator(cfg, sim.WithMetricsScope(scope))
	if err != nil {
		return err
	}
	res, err := s.Run()
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		return nil
	}
	res.Print(out)
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags binds the run flags of cmd to the package-level flag variables.
func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration; explicitly set flags override its values")
	cmd.Flags().StringVar(&policy, "policy", sim.PolicyLoss, "Admission policy (loss, reservation)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for arrival and service streams")
	cmd.Flags().IntVar(&totalServers, "servers", 16, "Number of servers")
	cmd.Flags().IntVar(&totalArrivals, "arrivals", 10000, "Number of arrivals to simulate")
	cmd.Flags().Float64Var(&departureRate, "departure-rate", 0.01, "Service rate of one server")
	cmd.Flags().Float64Var(&arrivalRate, "arrival-rate", 0.1, "Arrival rate (loss policy)")
	cmd.Flags().Float64Var(&handoverRate, "handover-rate", 0.1, "Handover arrival rate (reservation policy)")
	cmd.Flags().Float64Var(&newCallRate, "newcall-rate", 0.1, "New call arrival rate (reservation policy)")
	cmd.Flags().IntVar(&threshold, "threshold", 2, "Servers reserved for handovers (reservation policy)")
	cmd.Flags().Float64Var(&handoverWeight, "handover-weight", sim.DefaultHandoverWeight, "Weight of handover blocking in the aggregate blocking rate")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&reportMetrics, "metrics", false, "Log run counters when the run ends")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	registerRunFlags(runCmd)

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
