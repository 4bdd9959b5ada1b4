// Structured fault records for the resilience layer.
//
// Faults classify everything the layer detects - a null handle where a
// valid one was promised, a render pass past its deadline, a failure inside
// an isolation scope, a leaked allocation, a healing command that reported
// failure. Each record carries enough context (kind, severity, site, source
// location) for the host's log sink and for escalation decisions, without
// ever being thrown: faults travel as values.

package resilience

import (
	"fmt"
	"runtime"
	"time"
)

// FaultKind classifies a detected fault for logging and escalation.
type FaultKind int

const (
	// FaultMissingResource: a handle is null where a valid one is expected.
	FaultMissingResource FaultKind = iota

	// FaultStalledOperation: a render pass exceeded its heartbeat deadline.
	FaultStalledOperation

	// FaultUncaughtFailure: a failure surfaced inside an isolation scope.
	FaultUncaughtFailure

	// FaultResourceLeak: a tracked allocation was never released.
	FaultResourceLeak

	// FaultHealingFailure: a queued corrective command reported failure.
	FaultHealingFailure
)

// String returns a human-readable fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultMissingResource:
		return "missing_resource"
	case FaultStalledOperation:
		return "stalled_operation"
	case FaultUncaughtFailure:
		return "uncaught_failure"
	case FaultResourceLeak:
		return "resource_leak"
	case FaultHealingFailure:
		return "healing_failure"
	default:
		return "unknown"
	}
}

// Severity ranks a fault for prioritization in logs and reports.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns a human-readable severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Fault is a structured fault record. It implements error so it can ride
// normal error returns, but the resilience layer never raises it past a
// scope boundary - containment, not suppression of root cause.
type Fault struct {
	Kind     FaultKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`

	// Site names the instrumented call site or component that detected
	// the fault ("Render/TextWidget", "loader/atlas").
	Site string `json:"site,omitempty"`

	// Source location captured at construction.
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Original  error     `json:"-"`
}

// NewFault creates a fault record and captures the caller's source
// location.
func NewFault(kind FaultKind, severity Severity, site, message string) *Fault {
	f := &Fault{
		Kind:      kind,
		Severity:  severity,
		Site:      site,
		Message:   message,
		Timestamp: time.Now(),
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		f.File = file
		f.Line = line
	}
	return f
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Site != "" {
		return fmt.Sprintf("%s at %s: %s", f.Kind, f.Site, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap exposes the original error for errors.Is/As chains.
func (f *Fault) Unwrap() error {
	return f.Original
}

// Location returns the captured source location as "file:line", or an
// empty string if none was captured.
func (f *Fault) Location() string {
	if f.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}

// CheckThat is the fallible check helper that replaces an assertion macro:
// it returns nil when the condition holds and a structured fault when it
// does not, for the caller to log and optionally escalate into the
// surrounding scope. It never panics.
func CheckThat(cond bool, site, message string) *Fault {
	if cond {
		return nil
	}
	f := &Fault{
		Kind:      FaultUncaughtFailure,
		Severity:  SeverityWarning,
		Site:      site,
		Message:   message,
		Timestamp: time.Now(),
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		f.File = file
		f.Line = line
	}
	return f
}
