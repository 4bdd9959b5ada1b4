package resilience

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector exposes the resilience metrics as a
// prometheus.Collector so operators can scrape system health and
// fault-proneness alongside the rest of their fleet. Register it against
// any registry:
//
//	prometheus.MustRegister(resilience.NewMetricsCollector(mgr.Metrics()))
//
// Collection reads a consistent snapshot; it never blocks frame work.
type MetricsCollector struct {
	metrics *Metrics

	exceptions        *prometheus.Desc
	handledExceptions *prometheus.Desc
	healingSuccess    *prometheus.Desc
	healingFailed     *prometheus.Desc
	detectionLatency  *prometheus.Desc
	healingTime       *prometheus.Desc
	resourceLeak      *prometheus.Desc
	frameDrops        *prometheus.Desc
}

// NewMetricsCollector creates a collector over the given metrics instance.
func NewMetricsCollector(m *Metrics) *MetricsCollector {
	return &MetricsCollector{
		metrics: m,
		exceptions: prometheus.NewDesc(
			"renderguard_exceptions_total",
			"Detected exception-class faults.",
			nil, nil),
		handledExceptions: prometheus.NewDesc(
			"renderguard_handled_exceptions_total",
			"Faults contained by the resilience layer.",
			nil, nil),
		healingSuccess: prometheus.NewDesc(
			"renderguard_healing_success_total",
			"Healing commands that reported success.",
			nil, nil),
		healingFailed: prometheus.NewDesc(
			"renderguard_healing_failed_total",
			"Healing commands that reported failure.",
			nil, nil),
		detectionLatency: prometheus.NewDesc(
			"renderguard_detection_latency_avg_seconds",
			"Running average fault detection latency.",
			nil, nil),
		healingTime: prometheus.NewDesc(
			"renderguard_healing_time_avg_seconds",
			"Running average healing command execution time.",
			nil, nil),
		resourceLeak: prometheus.NewDesc(
			"renderguard_resource_leak_bytes_total",
			"Bytes attributed to leaked resources.",
			nil, nil),
		frameDrops: prometheus.NewDesc(
			"renderguard_frame_drops_total",
			"Frames dropped due to stalled render passes.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.exceptions
	ch <- c.handledExceptions
	ch <- c.healingSuccess
	ch <- c.healingFailed
	ch <- c.detectionLatency
	ch <- c.healingTime
	ch <- c.resourceLeak
	ch <- c.frameDrops
}

// Collect implements prometheus.Collector.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.exceptions, prometheus.CounterValue, float64(snap.ExceptionCount))
	ch <- prometheus.MustNewConstMetric(c.handledExceptions, prometheus.CounterValue, float64(snap.HandledExceptionCount))
	ch <- prometheus.MustNewConstMetric(c.healingSuccess, prometheus.CounterValue, float64(snap.HealingSuccessCount))
	ch <- prometheus.MustNewConstMetric(c.healingFailed, prometheus.CounterValue, float64(snap.HealingFailedCount))
	ch <- prometheus.MustNewConstMetric(c.detectionLatency, prometheus.GaugeValue, snap.AvgDetectionLatency)
	ch <- prometheus.MustNewConstMetric(c.healingTime, prometheus.GaugeValue, snap.AvgHealingTime)
	ch <- prometheus.MustNewConstMetric(c.resourceLeak, prometheus.CounterValue, float64(snap.TotalResourceLeak))
	ch <- prometheus.MustNewConstMetric(c.frameDrops, prometheus.CounterValue, float64(snap.FrameDropCount))
}
