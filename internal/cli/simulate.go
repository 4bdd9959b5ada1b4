package cli

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/kestrelui/renderguard/internal/engine"
	"github.com/kestrelui/renderguard/internal/resilience"
)

// Bounds on simulation parameters.
const (
	MaxWorkers = 16
	MaxFrames  = 1_000_000

	// simFrameSeconds is how far the simulated clock advances per healthy
	// frame (~60fps).
	simFrameSeconds = 1.0 / 60.0

	// simStallSeconds is how far the clock jumps when an injected timeout
	// stalls a render pass. Comfortably past the heartbeat deadline.
	simStallSeconds = 0.75

	simLeakBytes = 4096
)

// SimulateOptions configures one simulation run.
type SimulateOptions struct {
	// Workers is the number of concurrent render workers. Bounded by
	// MaxWorkers; zero or negative selects one.
	Workers int

	// Frames is the number of frames each worker renders. Bounded by
	// MaxFrames; zero or negative selects 100.
	Frames int

	// ChaosProbability is the per-call fault injection probability in
	// [0,1]. Zero selects the injector default (1%).
	ChaosProbability float64

	// Seed makes the run deterministic when non-zero.
	Seed int64

	// FramesPerSecond throttles wall-clock frame pacing across all
	// workers. Zero runs unpaced.
	FramesPerSecond float64

	// FallbackRotation enables scheduled rotation of the fallback font.
	FallbackRotation bool

	// Logger receives every fault, substitution, healing outcome, and
	// injection. Nil falls back to slog.Default.
	Logger *slog.Logger

	// Registry, when non-nil, receives the live resilience metrics
	// collector for Prometheus scraping during the run.
	Registry prometheus.Registerer
}

func (o *SimulateOptions) withDefaults() *SimulateOptions {
	if o == nil {
		o = &SimulateOptions{}
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
	if o.Frames <= 0 {
		o.Frames = 100
	}
	if o.Frames > MaxFrames {
		o.Frames = MaxFrames
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// simWorker drives one render worker through the simulated frame loop.
type simWorker struct {
	worker   *resilience.Worker
	eng      *engine.SimEngine
	chaos    *resilience.ChaosInjector
	rng      *rand.Rand
	logger   *slog.Logger
	textures []engine.Handle

	frames        atomic.Int64
	substitutions atomic.Int64
}

// Simulate runs the chaos-driven frame loop and returns the resulting
// resilience report. Workers render concurrently against a shared
// simulated engine; every fault they hit is injected by the chaos
// injector, contained by the resilience layer, and tallied in the report.
func Simulate(ctx context.Context, opts *SimulateOptions) (*Report, error) {
	opts = opts.withDefaults()

	eng := engine.NewSimEngine()
	eng.RegisterFont("mono")
	eng.RegisterFont("sans")
	eng.RegisterFont("serif")

	textures := make([]engine.Handle, 8)
	for i := range textures {
		textures[i] = eng.RegisterTexture(fmt.Sprintf("atlas-%d", i))
	}

	mgr := resilience.NewManager(eng, &resilience.Config{
		EnableNullGuard:      true,
		EnableHeartbeat:      true,
		EnableHealing:        true,
		EnableChaos:          true,
		AutoFallbackRotation: opts.FallbackRotation,
		Chaos: &resilience.ChaosConfig{
			Probability: opts.ChaosProbability,
			Seed:        opts.Seed,
			Logger:      opts.Logger,
		},
		Logger: opts.Logger,
	})
	defer mgr.Shutdown()

	if opts.Registry != nil {
		if err := opts.Registry.Register(resilience.NewMetricsCollector(mgr.Metrics())); err != nil {
			return nil, fmt.Errorf("registering metrics collector: %w", err)
		}
	}

	var limiter *rate.Limiter
	if opts.FramesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.FramesPerSecond), 1)
	}

	start := eng.Now()

	var wg sync.WaitGroup
	simWorkers := make([]*simWorker, opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		name := fmt.Sprintf("render-%d", i)
		sw := &simWorker{
			worker:   mgr.Worker(name),
			eng:      eng,
			chaos:    mgr.Chaos(),
			rng:      rand.New(rand.NewSource(opts.Seed + int64(i))),
			logger:   opts.Logger,
			textures: textures,
		}
		simWorkers[i] = sw

		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := 0; f < opts.Frames; f++ {
				if ctx.Err() != nil {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				sw.renderFrame(ctx)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, sw := range simWorkers {
		opts.Logger.Debug("worker finished",
			"worker", sw.worker.Name(),
			"frames", sw.frames.Load(),
			"substitutions", sw.substitutions.Load())
	}

	report := &Report{
		Workers:     opts.Workers,
		Frames:      opts.Frames,
		DurationSec: eng.Now() - start,
		Metrics:     mgr.Metrics().Snapshot(),
	}
	if opts.FallbackRotation {
		report.FallbackFont = mgr.CurrentFallbackFontName()
	}
	return report, nil
}

// renderFrame simulates one frame of a render worker: bind resources
// through the null guard, run a widget pass inside an isolation scope,
// drain the healing queue, and close the frame.
func (sw *simWorker) renderFrame(ctx context.Context) {
	w := sw.worker
	w.FrameStart()

	if p := w.Predictor().PredictChainProbability("frame"); p > 0.8 {
		sw.logger.Warn("timeout chain likely, render pass may stall",
			"worker", w.Name(), "probability", p)
	}

	dl := sw.eng.NewDrawList()
	sw.eng.SetCurrentDrawList(dl)

	tex := sw.textures[sw.rng.Intn(len(sw.textures))]
	bound := w.GuardHandle(tex, engine.KindTexture, "simulate.bind_texture")
	if bound != tex {
		sw.substitutions.Add(1)
	}
	w.Graph().Track(bound, engine.NullHandle, "texture")
	w.Graph().Track(dl, bound, "frame_draw_list")

	font := w.GuardHandle(sw.eng.Fonts()[0], engine.KindFont, "simulate.bind_font")
	w.Graph().Track(font, bound, "frame_font")

	sw.widgetPass(bound)

	if sw.chaos.InjectTimeout("simulate.render_pass", simStallSeconds*1000) {
		sw.eng.Advance(simStallSeconds)
	}
	sw.chaos.InjectMemoryLeak("simulate.render_pass", simLeakBytes)

	w.Heal(ctx)

	w.Graph().Untrack(dl)
	sw.eng.Advance(simFrameSeconds)
	w.FrameEnd()
	sw.frames.Add(1)
}

// widgetPass runs the fault-prone part of the frame inside an isolation
// scope. An injected corruption is reported and answered with a texture
// reset; a reset that itself fails escalates by enqueueing a device
// recreate.
func (sw *simWorker) widgetPass(tex engine.Handle) {
	w := sw.worker

	scope := resilience.EnterScope(sw.eng)
	defer scope.Close()

	sw.eng.SetActiveWidget(uint32(sw.rng.Intn(1000) + 1))

	if !sw.chaos.InjectDataCorruption("simulate.widget_pass") {
		sw.eng.SetActiveWidget(0)
		return
	}

	fault := resilience.NewFault(
		resilience.FaultUncaughtFailure,
		resilience.SeverityCritical,
		"simulate.widget_pass",
		"corrupted vertex data in widget pass",
	)
	w.ReportFault(fault, scope)

	// Everything drawn against the corrupted texture is suspect.
	for _, dep := range w.Graph().FindDependents(tex) {
		w.Graph().Untrack(dep)
	}

	resetFails := sw.rng.Float64() < 0.2
	w.Enqueue(&resilience.ResetTextureCommand{
		Texture: tex,
		Reset: func(ctx context.Context, h engine.Handle) error {
			if resetFails {
				w.Enqueue(&resilience.RecreateDeviceCommand{})
				return fmt.Errorf("reset texture %d: backend rejected upload", h)
			}
			return nil
		},
	})
}
