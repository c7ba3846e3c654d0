package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Admission policy names.
const (
	PolicyLoss        = "loss"
	PolicyReservation = "reservation"
)

// DefaultHandoverWeight is how much more a blocked handover costs than a
// blocked new call in the aggregate blocking metric.
const DefaultHandoverWeight = 10.0

// Config describes one simulation run.
// Loaded from YAML via LoadConfig(path) or built with NewLossConfig/NewReservationConfig.
type Config struct {
	Policy        string  `yaml:"policy"`         // "loss" or "reservation"
	TotalServers  int     `yaml:"total_servers"`  // pool size N (> 0)
	TotalArrivals int     `yaml:"total_arrivals"` // arrivals processed before the run stops (> 0)
	DepartureRate float64 `yaml:"departure_rate"` // service rate μ of one server
	Seed          int64   `yaml:"seed"`

	// loss policy
	ArrivalRate float64 `yaml:"arrival_rate,omitempty"`

	// reservation policy
	HandoverRate   float64 `yaml:"handover_rate,omitempty"`
	NewCallRate    float64 `yaml:"newcall_rate,omitempty"`
	Threshold      int     `yaml:"threshold,omitempty"`       // servers reserved for handovers
	HandoverWeight float64 `yaml:"handover_weight,omitempty"` // aggregate blocking weight
}

// NewLossConfig builds a plain M/M/c/c configuration.
func NewLossConfig(servers, arrivals int, arrivalRate, departureRate float64, seed int64) Config {
	return Config{
		Policy:        PolicyLoss,
		TotalServers:  servers,
		TotalArrivals: arrivals,
		ArrivalRate:   arrivalRate,
		DepartureRate: departureRate,
		Seed:          seed,
	}
}

// NewReservationConfig builds a two-class configuration with threshold reservation
// and the default handover weight.
func NewReservationConfig(servers, arrivals, threshold int, handoverRate, newCallRate, departureRate float64, seed int64) Config {
	return Config{
		Policy:         PolicyReservation,
		TotalServers:   servers,
		TotalArrivals:  arrivals,
		Threshold:      threshold,
		HandoverRate:   handoverRate,
		NewCallRate:    newCallRate,
		DepartureRate:  departureRate,
		HandoverWeight: DefaultHandoverWeight,
		Seed:           seed,
	}
}

// LoadConfig reads a YAML run configuration. Unknown keys are rejected.
// An omitted handover_weight for the reservation policy defaults to
// DefaultHandoverWeight; an explicit 0 is kept.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyLoss
	}
	if cfg.Policy == PolicyReservation {
		// Decode again for presence only: 0 is a valid weight.
		var present struct {
			HandoverWeight *float64 `yaml:"handover_weight"`
		}
		if err := yaml.Unmarshal(data, &present); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		if present.HandoverWeight == nil {
			cfg.HandoverWeight = DefaultHandoverWeight
		}
	}
	return &cfg, nil
}

// Validate checks that the configuration describes a runnable loss system.
// Every failure wraps ErrInvalidConfiguration.
func (c Config) Validate() error {
	if c.TotalServers <= 0 {
		return invalidf("total_servers must be positive, got %d", c.TotalServers)
	}
	if c.TotalArrivals <= 0 {
		return invalidf("total_arrivals must be positive, got %d", c.TotalArrivals)
	}
	if c.DepartureRate <= 0 {
		return invalidf("departure_rate must be positive, got %v", c.DepartureRate)
	}
	switch c.Policy {
	case PolicyLoss:
		if c.ArrivalRate <= 0 {
			return invalidf("arrival_rate must be positive, got %v", c.ArrivalRate)
		}
	case PolicyReservation:
		if c.HandoverRate <= 0 {
			return invalidf("handover_rate must be positive, got %v", c.HandoverRate)
		}
		if c.NewCallRate <= 0 {
			return invalidf("newcall_rate must be positive, got %v", c.NewCallRate)
		}
		if c.Threshold < 0 || c.Threshold >= c.TotalServers {
			return invalidf("threshold must be in [0, %d), got %d", c.TotalServers, c.Threshold)
		}
		if c.HandoverWeight < 0 {
			return invalidf("handover_weight must be non-negative, got %v", c.HandoverWeight)
		}
	default:
		return invalidf("unknown policy %q; valid: %s, %s", c.Policy, PolicyLoss, PolicyReservation)
	}
	return nil
}

// streams returns the arrival processes the policy superimposes on one scheduler.
func (c Config) streams() []ArrivalStream {
	if c.Policy == PolicyReservation {
		return []ArrivalStream{
			{Path: PathHandover, Rate: c.HandoverRate},
			{Path: PathNewCall, Rate: c.NewCallRate},
		}
	}
	return []ArrivalStream{{Path: PathPlain, Rate: c.ArrivalRate}}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
