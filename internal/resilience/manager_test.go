package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelui/renderguard/internal/engine"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, cfg *Config) (*Manager, *engine.SimEngine) {
	t.Helper()
	sim := engine.NewSimEngine()
	sim.RegisterFont("default-mono")
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Logger = quietLogger()
	return NewManager(sim, cfg), sim
}

func TestManagerWorkerIdentity(t *testing.T) {
	m, _ := newTestManager(t, nil)

	a := m.Worker("render")
	b := m.Worker("render")
	c := m.Worker("loader")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, m.WorkerCount())
	assert.Equal(t, "render", a.Name())
}

func TestWorkerFrameStartLazilyCreatesState(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w := m.Worker("render")

	w.FrameStart()

	assert.NotNil(t, w.Graph())
	assert.NotNil(t, w.Queue())
	_, active := w.Heartbeat().Session()
	assert.True(t, active, "frame heartbeat session opened")
}

func TestWorkerFrameEndCountsDrops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatTimeout = 0.1
	m, sim := newTestManager(t, cfg)
	w := m.Worker("render")

	// Fast frame: no drop.
	w.FrameStart()
	sim.Advance(0.05)
	w.FrameEnd()
	assert.Equal(t, int64(0), m.Metrics().Snapshot().FrameDropCount)

	// Stalled frame: one drop, one timed-out predictor event.
	w.FrameStart()
	sim.Advance(0.2)
	w.FrameEnd()

	assert.Equal(t, int64(1), m.Metrics().Snapshot().FrameDropCount)
	assert.Equal(t, 2, w.Predictor().Len())

	_, active := w.Heartbeat().Session()
	assert.False(t, active, "session closed at frame end")
}

func TestGuardHandlePassesValidHandles(t *testing.T) {
	m, sim := newTestManager(t, nil)
	w := m.Worker("render")

	h := sim.RegisterTexture("atlas")
	assert.Equal(t, h, w.GuardHandle(h, engine.KindTexture, "Render/Image"))
	assert.Equal(t, int64(0), m.Metrics().Snapshot().ExceptionCount)
}

func TestGuardHandleSubstitutesNull(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w := m.Worker("render")

	got := w.GuardHandle(engine.NullHandle, engine.KindFont, "Render/Text")
	assert.False(t, got.IsNull(), "guard never returns null")

	snap := m.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.ExceptionCount)
	assert.Equal(t, int64(1), snap.HandledExceptionCount)
}

func TestGuardHandleDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableNullGuard = false
	m, _ := newTestManager(t, cfg)
	w := m.Worker("render")

	got := w.GuardHandle(engine.NullHandle, engine.KindFont, "site")
	assert.True(t, got.IsNull(), "disabled guard passes handles through")
}

func TestGuardHandleChaosForcedNull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableChaos = true
	cfg.Chaos = &ChaosConfig{Probability: 1.0, Seed: 7}
	m, sim := newTestManager(t, cfg)
	w := m.Worker("render")

	valid := sim.RegisterTexture("atlas")
	got := w.GuardHandle(valid, engine.KindTexture, "Render/Image")

	assert.NotEqual(t, valid, got, "chaos forced the site to observe null")
	assert.False(t, got.IsNull())
	assert.Equal(t, int64(1), m.Metrics().Snapshot().ExceptionCount)
}

func TestReportFaultMarksScope(t *testing.T) {
	m, sim := newTestManager(t, nil)
	w := m.Worker("render")

	original := sim.NewDrawList()
	sim.SetCurrentDrawList(original)

	scope := EnterScope(sim)
	sim.SetCurrentDrawList(sim.NewDrawList())

	f := NewFault(FaultUncaughtFailure, SeverityCritical, "widget/table", "layout recursion")
	w.ReportFault(f, scope)
	scope.Close()

	assert.True(t, scope.Faulted())
	assert.Equal(t, original, sim.CurrentDrawList(), "scope rolled back on close")

	snap := m.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.ExceptionCount)
	assert.Equal(t, int64(1), snap.HandledExceptionCount)
}

func TestReportFaultWithoutScopeIsUnhandled(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w := m.Worker("render")

	w.ReportFault(NewFault(FaultResourceLeak, SeverityWarning, "loader", "atlas never freed"), nil)
	w.ReportFault(nil, nil) // ignored

	snap := m.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.ExceptionCount)
	assert.Equal(t, int64(0), snap.HandledExceptionCount)
}

func TestWorkerHealDrainsQueue(t *testing.T) {
	m, _ := newTestManager(t, nil)
	w := m.Worker("render")

	w.Enqueue(NewCommand("fix-a", PriorityNormal, nil))
	w.Enqueue(NewCommand("fix-b", PriorityCritical, func(context.Context) error {
		return errors.New("device lost")
	}))
	require.Equal(t, 2, w.QueueDepth())

	executed, failed := w.Heal(context.Background())
	assert.Equal(t, 2, executed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 0, w.QueueDepth())
}

func TestWorkerHealingDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableHealing = false
	m, _ := newTestManager(t, cfg)
	w := m.Worker("render")

	w.Enqueue(NewCommand("ignored", PriorityCritical, nil))
	executed, failed := w.Heal(context.Background())

	assert.Zero(t, executed)
	assert.Zero(t, failed)
	assert.Equal(t, 0, w.QueueDepth())
}

func TestFallbackRotationOnSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoFallbackRotation = true
	cfg.FallbackRotationInterval = 5.0

	sim := engine.NewSimEngine()
	sim.RegisterFont("mono")
	sim.RegisterFont("sans")
	sim.RegisterFont("serif")
	cfg.Logger = quietLogger()
	m := NewManager(sim, cfg)
	w := m.Worker("render")

	require.True(t, m.AutoFallbackRotationEnabled())
	assert.Equal(t, "mono", m.CurrentFallbackFontName())

	// Within the interval: no rotation.
	sim.Advance(4.0)
	w.FrameStart()
	assert.Equal(t, "mono", m.CurrentFallbackFontName())

	// Past the interval: advance to the next registered font.
	sim.Advance(1.5)
	w.FrameStart()
	assert.Equal(t, "sans", m.CurrentFallbackFontName())

	// Guarded sites now receive the rotated fallback.
	got := w.GuardHandle(engine.NullHandle, engine.KindFont, "Render/Text")
	assert.Equal(t, "sans", sim.FontName(got))

	sim.Advance(5.1)
	w.FrameStart()
	assert.Equal(t, "serif", m.CurrentFallbackFontName())
}

func TestFallbackRotationDisabledByDefault(t *testing.T) {
	m, sim := newTestManager(t, nil)
	w := m.Worker("render")

	assert.False(t, m.AutoFallbackRotationEnabled())
	sim.Advance(60)
	w.FrameStart()
	assert.Equal(t, "default-mono", m.CurrentFallbackFontName())

	m.SetAutoFallbackRotation(true)
	assert.True(t, m.AutoFallbackRotationEnabled())
}

func TestManagerShutdownDisarmsChaos(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableChaos = true
	cfg.Chaos = &ChaosConfig{Probability: 1.0, Seed: 3}
	m, _ := newTestManager(t, cfg)

	require.True(t, m.Chaos().IsEnabled())
	m.Shutdown()
	assert.False(t, m.Chaos().IsEnabled())
}

func TestManagerConcurrentWorkers(t *testing.T) {
	m, _ := newTestManager(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := []string{"render", "loader"}[i%2]
			w := m.Worker(name)
			for f := 0; f < 50; f++ {
				w.FrameStart()
				w.GuardHandle(engine.NullHandle, engine.KindFont, "site")
				w.Enqueue(NewCommand("noop", PriorityLow, nil))
				w.Heal(context.Background())
				w.FrameEnd()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, m.WorkerCount())
	assert.GreaterOrEqual(t, m.Metrics().Snapshot().ExceptionCount, int64(400))
}
