// Manager and Worker: the explicit resilience-context objects.
//
// The Manager owns everything process-wide - metrics, chaos configuration,
// the default-value provider, the host binding, the log sink - and its
// lifetime belongs to the host application. Per-worker state (dependency
// graph, healing queue, heartbeat, predictor) lives in Worker contexts
// created by each worker's own lifecycle management and passed explicitly
// to every call, so the hot per-frame path never contends across threads.

package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kestrelui/renderguard/internal/engine"
)

// Manager is the process-wide resilience context.
//
// Thread Safety: Manager is safe for concurrent use; the components it
// hands out carry their own synchronization.
type Manager struct {
	mu sync.Mutex

	host    engine.Host
	cfg     *Config
	logger  *slog.Logger
	metrics *Metrics
	chaos   *ChaosInjector
	deflt   *DefaultProvider

	workers map[string]*Worker

	// Fallback rotation state, guarded by mu.
	rotationOn      bool
	lastRotation    float64
	fallbackIndex   int
	currentFallback engine.Handle
}

// NewManager creates the resilience context for the given host engine. A
// nil config selects DefaultConfig.
func NewManager(host engine.Host, cfg *Config) *Manager {
	cfg = cfg.withDefaults()

	metrics := NewMetrics()

	chaosCfg := cfg.Chaos
	if chaosCfg == nil {
		chaosCfg = &ChaosConfig{}
	}
	if chaosCfg.Logger == nil {
		chaosCfg.Logger = cfg.Logger
	}
	if chaosCfg.Metrics == nil {
		chaosCfg.Metrics = metrics
	}

	m := &Manager{
		host:       host,
		cfg:        cfg,
		logger:     cfg.Logger,
		metrics:    metrics,
		chaos:      NewChaosInjector(chaosCfg),
		deflt:      NewDefaultProvider(host),
		workers:    make(map[string]*Worker),
		rotationOn: cfg.AutoFallbackRotation,
	}

	if cfg.EnableChaos {
		m.chaos.Initialize()
	}

	return m
}

// Shutdown disarms chaos injection and logs final metrics. Worker state is
// not torn down; it belongs to the workers.
func (m *Manager) Shutdown() {
	m.chaos.Shutdown()
	snap := m.metrics.Snapshot()
	m.logger.Info("resilience layer shut down",
		"exceptions", snap.ExceptionCount,
		"healed", snap.HealingSuccessCount,
		"healing_failed", snap.HealingFailedCount,
		"frame_drops", snap.FrameDropCount)
}

// Metrics returns the process-wide resilience metrics.
func (m *Manager) Metrics() *Metrics { return m.metrics }

// Chaos returns the process-wide chaos injector.
func (m *Manager) Chaos() *ChaosInjector { return m.chaos }

// Defaults returns the default-value provider.
func (m *Manager) Defaults() *DefaultProvider { return m.deflt }

// Host returns the bound host engine.
func (m *Manager) Host() engine.Host { return m.host }

// Worker returns the named per-worker context, creating it on first use.
// Each worker goroutine should hold exactly one.
func (m *Manager) Worker(name string) *Worker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.workers[name]; ok {
		return w
	}
	w := &Worker{name: name, mgr: m}
	m.workers[name] = w
	return w
}

// WorkerCount returns the number of registered worker contexts.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

// SetAutoFallbackRotation switches scheduled fallback-font rotation on or
// off. Enabling restarts the schedule from the current engine time.
func (m *Manager) SetAutoFallbackRotation(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rotationOn = enabled
	if enabled && m.host != nil {
		m.lastRotation = m.host.Now()
	}
}

// AutoFallbackRotationEnabled reports whether scheduled rotation is on.
func (m *Manager) AutoFallbackRotationEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotationOn
}

// CurrentFallbackFontName returns the engine's name for the font currently
// serving as the active fallback.
func (m *Manager) CurrentFallbackFontName() string {
	m.mu.Lock()
	current := m.currentFallback
	m.mu.Unlock()

	if current.IsNull() {
		current = m.deflt.Default(engine.KindFont)
	}
	if m.host == nil {
		return ""
	}
	return m.host.FontName(current)
}

// maybeRotateFallback advances the active fallback font through the host's
// font registry once per rotation interval. Called on the frame-start
// path.
func (m *Manager) maybeRotateFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.rotationOn || m.host == nil {
		return
	}

	now := m.host.Now()
	if now-m.lastRotation <= m.cfg.FallbackRotationInterval {
		return
	}

	fonts := m.host.Fonts()
	if len(fonts) < 2 {
		return
	}

	m.fallbackIndex = (m.fallbackIndex + 1) % len(fonts)
	m.currentFallback = fonts[m.fallbackIndex]
	m.lastRotation = now
	m.deflt.SetMinimal(engine.KindFont, m.currentFallback)

	m.logger.Info("rotated fallback font",
		"font", m.host.FontName(m.currentFallback),
		"index", m.fallbackIndex)
}

// Worker is the per-worker resilience context: the dependency graph and
// healing queue are exclusively owned by their worker except for the
// queue's lock-guarded producer boundary, which any goroutine may cross to
// report a failure.
type Worker struct {
	name string
	mgr  *Manager

	mu        sync.Mutex
	graph     *Graph
	queue     *Queue
	heartbeat *Heartbeat
	predictor *Predictor
}

// Name returns the worker's registered name.
func (w *Worker) Name() string { return w.name }

// FrameStart is the frame-lifecycle entry hook. It lazily constructs the
// worker's dependency graph and healing queue, advances the fallback
// rotation schedule when auto-recovery is on, and opens the frame
// heartbeat session.
func (w *Worker) FrameStart() {
	w.ensure()
	w.mgr.maybeRotateFallback()

	if w.mgr.cfg.EnableHeartbeat {
		w.Heartbeat().StartSession(w.name)
	}
}

// FrameEnd is the frame-lifecycle exit hook. Worker state persists
// across frames; the hook only closes the heartbeat session,
// counting a dropped frame and feeding the predictor when the pass ran
// past its deadline.
func (w *Worker) FrameEnd() {
	if !w.mgr.cfg.EnableHeartbeat {
		return
	}

	hb := w.Heartbeat()
	session, active := hb.Session()
	if !active {
		return
	}

	timedOut := hb.CheckTimeout()
	hb.EndSession()

	w.Predictor().RecordEvent("frame", timedOut)
	if timedOut {
		w.mgr.metrics.UpdateFrameDrop()
		w.mgr.logger.Warn("render pass stalled",
			"worker", w.name,
			"session_id", session.ID,
			"timeout_sec", session.TimeoutSeconds)
	}
}

// GuardHandle guards a potentially-null resource handle. When null-handle
// guarding is enabled and the handle is missing (or chaos forces it to
// look missing), the occurrence is logged and counted and a guaranteed
// non-null substitute is returned; callers never see a null where the
// contract promises otherwise.
func (w *Worker) GuardHandle(h engine.Handle, kind engine.Kind, site string) engine.Handle {
	if !w.mgr.cfg.EnableNullGuard {
		return h
	}

	start := time.Now()

	if w.mgr.chaos.InjectNullPointer(site) {
		h = engine.NullHandle
	}
	if !h.IsNull() {
		return h
	}

	sub := w.mgr.deflt.Default(kind)
	w.mgr.metrics.UpdateException(true, time.Since(start).Seconds())
	w.mgr.logger.Warn("null handle substituted",
		"worker", w.name,
		"site", site,
		"kind", kind.String(),
		"substitute", uint64(sub))
	return sub
}

// ReportFault records a fault caught inside a unit of work: it logs
// through the sink, updates metrics, and marks the surrounding scope (if
// any) so its state rolls back on close. The fault is contained, not
// re-raised.
func (w *Worker) ReportFault(f *Fault, scope *Scope) {
	if f == nil {
		return
	}

	handled := scope != nil
	if scope != nil {
		scope.MarkAsFaulted()
	}

	w.mgr.metrics.UpdateException(handled, time.Since(f.Timestamp).Seconds())

	attrs := []any{
		"worker", w.name,
		"kind", f.Kind.String(),
		"severity", f.Severity.String(),
		"site", f.Site,
	}
	if loc := f.Location(); loc != "" {
		attrs = append(attrs, "location", loc)
	}
	w.mgr.logger.Error(f.Message, attrs...)
}

// Enqueue adds a healing command to this worker's queue. Safe from any
// goroutine. A no-op when healing is disabled.
func (w *Worker) Enqueue(cmd Command) {
	if !w.mgr.cfg.EnableHealing {
		return
	}
	w.Queue().Enqueue(cmd)
}

// Heal drains this worker's healing queue, highest priority first. The
// caller is the queue's single designated consumer and normally invokes
// this once per frame.
func (w *Worker) Heal(ctx context.Context) (executed, failed int) {
	if !w.mgr.cfg.EnableHealing {
		return 0, 0
	}
	return w.Queue().ExecuteAll(ctx)
}

// QueueDepth returns the healing queue's current length.
func (w *Worker) QueueDepth() int {
	return w.Queue().Len()
}

// Graph returns the worker's dependency graph, creating it on first use.
func (w *Worker) Graph() *Graph {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.graph == nil {
		w.graph = NewGraph()
	}
	return w.graph
}

// Queue returns the worker's healing queue, creating it on first use.
func (w *Worker) Queue() *Queue {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.queue == nil {
		w.queue = NewQueue(w.mgr.metrics, w.mgr.logger)
	}
	return w.queue
}

// Heartbeat returns the worker's render heartbeat, creating it on first
// use with the configured timeout.
func (w *Worker) Heartbeat() *Heartbeat {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.heartbeat == nil {
		w.heartbeat = NewHeartbeat(w.mgr.host.Now, w.mgr.cfg.HeartbeatTimeout)
	}
	return w.heartbeat
}

// Predictor returns the worker's timeout predictor, creating it on first
// use with the configured history capacity.
func (w *Worker) Predictor() *Predictor {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.predictor == nil {
		w.predictor = NewPredictor(w.mgr.host.Now, w.mgr.cfg.HistoryCapacity)
	}
	return w.predictor
}

// ensure constructs the lazily created members touched on the frame path.
func (w *Worker) ensure() {
	w.Graph()
	if w.mgr.cfg.EnableHealing {
		w.Queue()
	}
}
