package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

// SubsystemService is the RNG subsystem for service (holding) times.
const SubsystemService = "service"

// SubsystemArrivals returns the subsystem name for the arrival stream of a path.
// Each path draws inter-arrival times from its own stream so that changing one
// path's rate leaves the other path's arrival sequence untouched.
func SubsystemArrivals(p Path) string {
	return fmt.Sprintf("arrivals_%s", p)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated random sources per subsystem.
//
// Derivation: each subsystem gets a PCG source seeded with
// (masterSeed, fnv1a64(subsystemName)).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]rand.Source
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]rand.Source),
	}
}

// ForSubsystem returns a deterministically-seeded source for the named subsystem.
// The same subsystem name always returns the same source instance (cached).
func (p *PartitionedRNG) ForSubsystem(name string) rand.Source {
	if src, ok := p.subsystems[name]; ok {
		return src
	}
	src := rand.NewPCG(uint64(p.key), fnv1a64(name))
	p.subsystems[name] = src
	return src
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// === Variates ===

// RandomVariateSource produces exponentially distributed durations.
// Exponential panics for rate <= 0; configurations are validated before a run.
type RandomVariateSource interface {
	Exponential(rate float64) float64
}

// ExpSampler draws exponential variates from a seeded source.
type ExpSampler struct {
	src rand.Source
}

// NewExpSampler wraps src. A nil src falls back to the global generator,
// which is not reproducible.
func NewExpSampler(src rand.Source) *ExpSampler {
	return &ExpSampler{src: src}
}

// Exponential returns a strictly positive draw with mean 1/rate.
func (s *ExpSampler) Exponential(rate float64) float64 {
	if rate <= 0 {
		panic(fmt.Sprintf("Exponential: rate must be positive, got %v", rate))
	}
	dist := distuv.Exponential{Rate: rate, Src: s.src}
	for {
		// the ziggurat sampler can return exactly zero; service times must not
		if v := dist.Rand(); v > 0 {
			return v
		}
	}
}
