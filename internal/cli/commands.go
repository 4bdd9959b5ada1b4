// Package cli provides testable command implementations for the
// renderguard demo harness.
//
// This package extracts the core command logic from main.go to make it
// testable while keeping the same functionality. The main.go file creates
// cobra commands that delegate to these implementations.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kestrelui/renderguard/internal/resilience"
)

// Report is the harness outcome handed to the output formatters.
type Report struct {
	Workers     int     `json:"workers" yaml:"workers"`
	Frames      int     `json:"frames" yaml:"frames"`
	DurationSec float64 `json:"duration_sec" yaml:"duration_sec"`

	Metrics resilience.MetricsSnapshot `json:"metrics" yaml:"metrics"`

	// FallbackFont is the font serving as active fallback at the end of
	// the run, when rotation is enabled.
	FallbackFont string `json:"fallback_font,omitempty" yaml:"fallback_font,omitempty"`
}

// OutputReport formats and writes a report in the requested format.
func OutputReport(report *Report, outputFormat string, writer io.Writer) error {
	switch strings.ToLower(outputFormat) {
	case "json":
		return outputJSON(report, writer)
	case "yaml":
		return outputYAML(report, writer)
	case "text", "":
		return outputText(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(report *Report, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func outputYAML(report *Report, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(report)
}

func outputText(report *Report, writer io.Writer) error {
	m := report.Metrics

	fmt.Fprintln(writer, "RenderGuard - Resilience Report")
	fmt.Fprintln(writer, "===============================")
	fmt.Fprintln(writer)

	fmt.Fprintln(writer, "Run:")
	fmt.Fprintf(writer, "  Workers: %d\n", report.Workers)
	fmt.Fprintf(writer, "  Frames:  %d\n", report.Frames)
	fmt.Fprintf(writer, "  Duration: %s\n\n", time.Duration(report.DurationSec*float64(time.Second)))

	fmt.Fprintln(writer, "Faults:")
	fmt.Fprintf(writer, "  Exceptions: %d (handled: %d, %.1f%%)\n",
		m.ExceptionCount, m.HandledExceptionCount, m.HandledRate*100)
	fmt.Fprintf(writer, "  Frame drops: %d\n", m.FrameDropCount)
	fmt.Fprintf(writer, "  Resource leak: %d bytes\n\n", m.TotalResourceLeak)

	fmt.Fprintln(writer, "Healing:")
	fmt.Fprintf(writer, "  Success: %d/%d (%.1f%%)\n",
		m.HealingSuccessCount, m.HealingSuccessCount+m.HealingFailedCount, m.HealingSuccessRate*100)
	fmt.Fprintf(writer, "  Avg detection latency: %.3fms\n", m.AvgDetectionLatency*1000)
	fmt.Fprintf(writer, "  Avg healing time: %.3fms\n", m.AvgHealingTime*1000)

	if report.FallbackFont != "" {
		fmt.Fprintf(writer, "\nActive fallback font: %s\n", report.FallbackFont)
	}

	return nil
}
