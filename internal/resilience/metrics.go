// Package resilience implements the runtime resilience layer for a
// frame-driven rendering engine: it detects faulty states (null resource
// handles, stalled render passes, uncaught failures), contains their blast
// radius, attempts automated recovery, and records the outcomes.
//
// The package is organized around one process-wide Manager and one Worker
// context per render or loader thread:
//
//   - Metrics: streaming counters and averages shared by every component
//   - Graph: dependency relations between live resource handles
//   - DefaultProvider: guaranteed non-null substitutes for missing resources
//   - Scope: a fault boundary around one unit of rendering work
//   - Heartbeat: stall detection for a render pass
//   - Predictor: empirical chain-timeout probability over event history
//   - Queue: priority-ordered, concurrency-safe self-healing commands
//   - Chaos: probabilistic fault injection for resilience testing
//
// The rendering engine itself is consumed through the engine package and is
// never reimplemented here.
package resilience

import "sync"

// Metrics holds the process-wide resilience counters and running averages.
// All components feed it: the null-handle guard records handled exceptions,
// the healing queue records command outcomes, chaos injection records
// simulated leaks, and frame-end bookkeeping records dropped frames.
//
// Averages are folded in incrementally (avg = (avg*(n-1)+x)/n); no history
// is retained. Counters have no overflow or saturation guard - they
// saturate only at the integer range, which is a documented limitation
// rather than handled behavior.
//
// Thread Safety: Metrics is safe for concurrent use from any goroutine.
type Metrics struct {
	mu sync.RWMutex

	exceptionCount        int64
	handledExceptionCount int64
	healingSuccessCount   int64
	healingFailedCount    int64
	avgDetectionLatency   float64
	avgHealingTime        float64
	totalResourceLeak     uint64
	frameDropCount        int64
}

// MetricsSnapshot is a point-in-time copy of the resilience metrics with
// derived rates precomputed for reporting. On-screen presentation is the
// host UI's responsibility; this is the data it renders.
type MetricsSnapshot struct {
	ExceptionCount        int64   `json:"exception_count" yaml:"exception_count"`
	HandledExceptionCount int64   `json:"handled_exception_count" yaml:"handled_exception_count"`
	HealingSuccessCount   int64   `json:"healing_success_count" yaml:"healing_success_count"`
	HealingFailedCount    int64   `json:"healing_failed_count" yaml:"healing_failed_count"`
	AvgDetectionLatency   float64 `json:"avg_detection_latency_sec" yaml:"avg_detection_latency_sec"`
	AvgHealingTime        float64 `json:"avg_healing_time_sec" yaml:"avg_healing_time_sec"`
	TotalResourceLeak     uint64  `json:"total_resource_leak_bytes" yaml:"total_resource_leak_bytes"`
	FrameDropCount        int64   `json:"frame_drop_count" yaml:"frame_drop_count"`

	// Derived rates in [0,1]; zero when the denominator is zero.
	HandledRate        float64 `json:"handled_rate" yaml:"handled_rate"`
	HealingSuccessRate float64 `json:"healing_success_rate" yaml:"healing_success_rate"`
}

// NewMetrics creates a zeroed metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// UpdateException records a detected exception-class fault and folds its
// detection latency (seconds) into the running average. handled marks
// faults that were contained rather than surfaced.
func (m *Metrics) UpdateException(handled bool, detectionLatency float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exceptionCount++
	if handled {
		m.handledExceptionCount++
	}

	n := float64(m.exceptionCount)
	m.avgDetectionLatency = (m.avgDetectionLatency*(n-1) + detectionLatency) / n
}

// UpdateHealing records the outcome of one healing command and folds its
// execution time (seconds) into the running average over all outcomes,
// successful or not.
func (m *Metrics) UpdateHealing(success bool, healingTime float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if success {
		m.healingSuccessCount++
	} else {
		m.healingFailedCount++
	}

	n := float64(m.healingSuccessCount + m.healingFailedCount)
	m.avgHealingTime = (m.avgHealingTime*(n-1) + healingTime) / n
}

// UpdateResourceLeak accumulates bytes attributed to a leaked resource.
func (m *Metrics) UpdateResourceLeak(bytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalResourceLeak += bytes
}

// UpdateFrameDrop counts one dropped frame.
func (m *Metrics) UpdateFrameDrop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameDropCount++
}

// Reset zeroes every counter and average.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exceptionCount = 0
	m.handledExceptionCount = 0
	m.healingSuccessCount = 0
	m.healingFailedCount = 0
	m.avgDetectionLatency = 0
	m.avgHealingTime = 0
	m.totalResourceLeak = 0
	m.frameDropCount = 0
}

// Snapshot returns a consistent copy of the current metrics with derived
// rates filled in.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		ExceptionCount:        m.exceptionCount,
		HandledExceptionCount: m.handledExceptionCount,
		HealingSuccessCount:   m.healingSuccessCount,
		HealingFailedCount:    m.healingFailedCount,
		AvgDetectionLatency:   m.avgDetectionLatency,
		AvgHealingTime:        m.avgHealingTime,
		TotalResourceLeak:     m.totalResourceLeak,
		FrameDropCount:        m.frameDropCount,
	}

	if m.exceptionCount > 0 {
		snap.HandledRate = float64(m.handledExceptionCount) / float64(m.exceptionCount)
	}
	if total := m.healingSuccessCount + m.healingFailedCount; total > 0 {
		snap.HealingSuccessRate = float64(m.healingSuccessCount) / float64(total)
	}

	return snap
}
