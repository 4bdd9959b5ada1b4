// Chaos engineering facility.
//
// Instrumented call sites ask the injector whether to simulate a fault
// instead of observing its natural absence: a forced null handle, a stalled
// pass, a leaked allocation, corrupted data. Injection is gated three ways:
// the injector must be initialized, the mode must be enabled, and a
// per-call probability roll must succeed; an optional rate cap bounds how
// many faults can fire per second regardless of probability. When the
// injector is disabled every injection point is a single-branch no-op, so
// production builds pay nothing for the instrumentation.

package resilience

import (
	"log/slog"
	"math/rand"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultChaosProbability is the per-call injection probability used when
// none is configured.
const DefaultChaosProbability = 0.01

// InjectionMode names one class of simulated fault.
type InjectionMode int

const (
	ModeNullPointer InjectionMode = iota
	ModeTimeout
	ModeMemoryLeak
	ModeDataCorruption
)

// String returns a human-readable injection mode.
func (m InjectionMode) String() string {
	switch m {
	case ModeNullPointer:
		return "null_pointer"
	case ModeTimeout:
		return "timeout"
	case ModeMemoryLeak:
		return "memory_leak"
	case ModeDataCorruption:
		return "data_corruption"
	default:
		return "unknown"
	}
}

// AllInjectionModes lists every supported mode.
var AllInjectionModes = []InjectionMode{
	ModeNullPointer,
	ModeTimeout,
	ModeMemoryLeak,
	ModeDataCorruption,
}

// ChaosConfig configures the injector.
type ChaosConfig struct {
	// Probability is the per-call injection probability in [0,1]; values
	// outside the range are clamped. Zero selects the default (1%).
	Probability float64

	// MaxInjectionsPerSecond caps how many faults may fire per second
	// across all modes. Zero means uncapped.
	MaxInjectionsPerSecond float64

	// Seed makes the probability rolls deterministic when non-zero.
	Seed int64

	// Logger receives one record per fired injection. Nil falls back to
	// slog.Default.
	Logger *slog.Logger

	// Metrics receives simulated leak sizes. Nil allocates a private
	// instance.
	Metrics *Metrics
}

// ChaosInjector is the process-wide fault-injection facility. It starts
// shut down; Initialize arms it, Shutdown disarms it. Mode flags and the
// global probability are mutated only through this API.
//
// Thread Safety: ChaosInjector is safe for concurrent use from any thread.
type ChaosInjector struct {
	mu sync.Mutex

	enabled bool
	prob    float64
	modes   map[InjectionMode]bool
	rng     *rand.Rand
	limiter *rate.Limiter

	logger  *slog.Logger
	metrics *Metrics
}

// NewChaosInjector creates a disarmed injector with every mode enabled.
func NewChaosInjector(cfg *ChaosConfig) *ChaosInjector {
	if cfg == nil {
		cfg = &ChaosConfig{}
	}

	prob := cfg.Probability
	if prob == 0 {
		prob = DefaultChaosProbability
	}
	prob = clamp01(prob)

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	var limiter *rate.Limiter
	if cfg.MaxInjectionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxInjectionsPerSecond), 1)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	modes := make(map[InjectionMode]bool, len(AllInjectionModes))
	for _, m := range AllInjectionModes {
		modes[m] = true
	}

	return &ChaosInjector{
		prob:    prob,
		modes:   modes,
		rng:     rand.New(rand.NewSource(seed)),
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
	}
}

// Initialize arms the injector.
func (c *ChaosInjector) Initialize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// Shutdown disarms the injector; every injection point becomes a no-op.
func (c *ChaosInjector) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// IsEnabled reports whether the injector is armed.
func (c *ChaosInjector) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetGlobalProbability sets the per-call injection probability, clamped
// to [0,1].
func (c *ChaosInjector) SetGlobalProbability(p float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prob = clamp01(p)
}

// GlobalProbability returns the current per-call injection probability.
func (c *ChaosInjector) GlobalProbability() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prob
}

// EnableMode turns one injection mode on.
func (c *ChaosInjector) EnableMode(m InjectionMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.modes[m]; ok {
		c.modes[m] = true
	}
}

// DisableMode turns one injection mode off.
func (c *ChaosInjector) DisableMode(m InjectionMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.modes[m]; ok {
		c.modes[m] = false
	}
}

// ModeEnabled reports whether a mode is currently enabled.
func (c *ChaosInjector) ModeEnabled(m InjectionMode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modes[m]
}

// InjectNullPointer reports whether the call site should observe a null
// handle where a valid one exists.
func (c *ChaosInjector) InjectNullPointer(site string) bool {
	if !c.shouldInject(ModeNullPointer) {
		return false
	}
	c.logger.Debug("chaos: forcing null handle", "site", site, "mode", ModeNullPointer.String())
	return true
}

// InjectTimeout reports whether the call site should simulate a stall of
// the given duration in milliseconds. The injector only decides; the
// instrumented site performs the stall so it stays under the engine clock.
func (c *ChaosInjector) InjectTimeout(site string, timeoutMS float64) bool {
	if !c.shouldInject(ModeTimeout) {
		return false
	}
	c.logger.Debug("chaos: simulating stall", "site", site, "timeout_ms", timeoutMS, "mode", ModeTimeout.String())
	return true
}

// InjectMemoryLeak reports whether the call site should simulate leaking
// the given number of bytes. A fired injection is accounted in the
// resilience metrics immediately.
func (c *ChaosInjector) InjectMemoryLeak(site string, bytes uint64) bool {
	if !c.shouldInject(ModeMemoryLeak) {
		return false
	}
	c.metrics.UpdateResourceLeak(bytes)
	c.logger.Debug("chaos: simulating leak", "site", site, "bytes", bytes, "mode", ModeMemoryLeak.String())
	return true
}

// InjectDataCorruption reports whether the call site should corrupt its
// own data.
func (c *ChaosInjector) InjectDataCorruption(site string) bool {
	if !c.shouldInject(ModeDataCorruption) {
		return false
	}
	c.logger.Debug("chaos: corrupting data", "site", site, "mode", ModeDataCorruption.String())
	return true
}

func (c *ChaosInjector) shouldInject(m InjectionMode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || !c.modes[m] {
		return false
	}
	if c.rng.Float64() >= c.prob {
		return false
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return false
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
