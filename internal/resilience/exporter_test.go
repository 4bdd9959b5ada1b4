package resilience

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorDescribe(t *testing.T) {
	c := NewMetricsCollector(NewMetrics())

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 8, count)
}

func TestMetricsCollectorCollect(t *testing.T) {
	m := NewMetrics()
	m.UpdateException(true, 0.010)
	m.UpdateHealing(true, 0.020)
	m.UpdateHealing(false, 0.040)
	m.UpdateResourceLeak(2048)
	m.UpdateFrameDrop()

	c := NewMetricsCollector(m)

	expected := `
# HELP renderguard_exceptions_total Detected exception-class faults.
# TYPE renderguard_exceptions_total counter
renderguard_exceptions_total 1
# HELP renderguard_frame_drops_total Frames dropped due to stalled render passes.
# TYPE renderguard_frame_drops_total counter
renderguard_frame_drops_total 1
# HELP renderguard_healing_failed_total Healing commands that reported failure.
# TYPE renderguard_healing_failed_total counter
renderguard_healing_failed_total 1
# HELP renderguard_healing_success_total Healing commands that reported success.
# TYPE renderguard_healing_success_total counter
renderguard_healing_success_total 1
# HELP renderguard_resource_leak_bytes_total Bytes attributed to leaked resources.
# TYPE renderguard_resource_leak_bytes_total counter
renderguard_resource_leak_bytes_total 2048
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"renderguard_exceptions_total",
		"renderguard_frame_drops_total",
		"renderguard_healing_failed_total",
		"renderguard_healing_success_total",
		"renderguard_resource_leak_bytes_total",
	)
	require.NoError(t, err)
}

func TestMetricsCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewMetricsCollector(NewMetrics())))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 8)
}
