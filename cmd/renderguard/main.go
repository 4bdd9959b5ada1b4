// Command renderguard runs the resilience layer's chaos simulation
// harness: concurrent render workers drive frames against a simulated
// engine while the chaos injector throws faults at them, then the
// resulting resilience report is printed.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kestrelui/renderguard/internal/cli"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	workers          int
	frames           int
	chaosProbability float64
	seed             int64
	framesPerSecond  float64
	rotateFallback   bool
	outputFormat     string
	listenAddr       string
	verbose          bool
)

var rootCmd = &cobra.Command{
	Use:   "renderguard",
	Short: "Resilience harness for frame-driven rendering workloads",
	Long: `RenderGuard exercises a runtime resilience layer for rendering engines:
null-handle guarding with default substitution, render-pass heartbeats,
priority-ordered self-healing, timeout prediction, and chaos injection.

The simulate command runs the whole stack against a simulated engine and
reports what was detected, contained, and healed.`,
	SilenceUsage: true,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the chaos-driven frame simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		opts := &cli.SimulateOptions{
			Workers:          workers,
			Frames:           frames,
			ChaosProbability: chaosProbability,
			Seed:             seed,
			FramesPerSecond:  framesPerSecond,
			FallbackRotation: rotateFallback,
			Logger:           logger,
		}

		if listenAddr != "" {
			registry := prometheus.NewRegistry()
			opts.Registry = registry

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			server := &http.Server{
				Addr:              listenAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				logger.Info("metrics endpoint listening", "addr", listenAddr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics endpoint failed", "error", err)
				}
			}()
			defer server.Close()
		}

		report, err := cli.Simulate(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
		return cli.OutputReport(report, outputFormat, cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "renderguard version %s\n", Version)
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of concurrent render workers")
	simulateCmd.Flags().IntVarP(&frames, "frames", "n", 600, "Frames to render per worker")
	simulateCmd.Flags().Float64Var(&chaosProbability, "chaos-probability", 0.05, "Per-call fault injection probability [0,1]")
	simulateCmd.Flags().Int64Var(&seed, "seed", 0, "Deterministic seed (0 = random)")
	simulateCmd.Flags().Float64Var(&framesPerSecond, "fps", 0, "Wall-clock frame pacing (0 = unpaced)")
	simulateCmd.Flags().BoolVar(&rotateFallback, "rotate-fallback", false, "Rotate the fallback font on a schedule")
	simulateCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	simulateCmd.Flags().StringVar(&listenAddr, "listen", "", "Serve Prometheus metrics on this address during the run")
	simulateCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every fault and healing outcome")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
