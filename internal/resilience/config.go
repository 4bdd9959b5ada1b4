package resilience

import "log/slog"

// Config controls which resilience subsystems are active and their
// capacities. Each subsystem toggles independently; an all-zero Config is
// a fully disabled layer, DefaultConfig is the production shape (guarding,
// heartbeat, and healing on; chaos off).
type Config struct {
	// Subsystem toggles
	EnableNullGuard bool // null-handle guarding with default substitution
	EnableHeartbeat bool // render-pass stall detection
	EnableHealing   bool // self-healing command queue
	EnableChaos     bool // arm fault injection (test builds only)

	// Capacities and timeouts
	HeartbeatTimeout float64 // render-pass deadline in seconds; 0 = 500ms
	HistoryCapacity  int     // predictor event history bound; 0 = 1000

	// Fallback rotation (auto-recovery)
	AutoFallbackRotation     bool    // rotate the active fallback font on a schedule
	FallbackRotationInterval float64 // seconds between rotations; 0 = 5s

	// Chaos holds injector tuning; nil uses injector defaults.
	Chaos *ChaosConfig

	// Logger is the caller-supplied log sink for every fault, healing
	// outcome, and injection. Nil falls back to slog.Default.
	Logger *slog.Logger
}

// DefaultFallbackRotationInterval is the fallback rotation period used
// when none is configured, in seconds.
const DefaultFallbackRotationInterval = 5.0

// DefaultConfig returns the production configuration: all recovery
// subsystems enabled, chaos injection off.
func DefaultConfig() *Config {
	return &Config{
		EnableNullGuard: true,
		EnableHeartbeat: true,
		EnableHealing:   true,
	}
}

// withDefaults fills unset capacities and returns the receiver for
// chaining. A nil receiver yields DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		c = DefaultConfig()
	}

	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = DefaultHistoryCapacity
	}
	if c.FallbackRotationInterval <= 0 {
		c.FallbackRotationInterval = DefaultFallbackRotationInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
