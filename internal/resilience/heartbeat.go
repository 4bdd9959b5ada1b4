package resilience

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultHeartbeatTimeout is the render-pass deadline used when the caller
// configures none, in seconds.
const DefaultHeartbeatTimeout = 0.5

// HeartbeatSession describes one timed render-pass window.
type HeartbeatSession struct {
	ID             string  `json:"id"`
	Name           string  `json:"name,omitempty"`
	StartTime      float64 `json:"start_time"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

// Heartbeat is a per-session stopwatch that flags a render pass as hung if
// it exceeds its deadline. The state machine is Idle -> Active ->
// {TimedOut, Idle}; at most one session is active per instance, and
// starting a new session while one is active overwrites it without error.
//
// Timeouts are advisory, detected by polling elapsed engine time against
// the deadline: a hung operation is flagged, never interrupted.
//
// Thread Safety: Heartbeat is safe for concurrent use, though an instance
// normally belongs to one worker.
type Heartbeat struct {
	mu sync.Mutex

	now        func() float64
	timeoutSec float64 // configured for future sessions

	active  bool
	session HeartbeatSession
}

// NewHeartbeat creates a heartbeat against the given engine clock. A
// non-positive timeout selects the library default.
func NewHeartbeat(now func() float64, timeoutSec float64) *Heartbeat {
	if timeoutSec <= 0 {
		timeoutSec = DefaultHeartbeatTimeout
	}
	return &Heartbeat{
		now:        now,
		timeoutSec: timeoutSec,
	}
}

// StartSession opens a new session, overwriting any active one. The
// session adopts the currently configured timeout and is stamped with a
// fresh id for log correlation.
func (hb *Heartbeat) StartSession(name string) HeartbeatSession {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	hb.active = true
	hb.session = HeartbeatSession{
		ID:             uuid.NewString(),
		Name:           name,
		StartTime:      hb.now(),
		TimeoutSeconds: hb.timeoutSec,
	}
	return hb.session
}

// CheckTimeout reports whether the active session has exceeded its
// deadline. It is a query, not a trigger: no state transition happens
// here, and the boundary case of elapsed time equal to the timeout is not
// a timeout. Returns false when idle.
func (hb *Heartbeat) CheckTimeout() bool {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if !hb.active {
		return false
	}
	return hb.now()-hb.session.StartTime > hb.session.TimeoutSeconds
}

// EndSession transitions to Idle unconditionally.
func (hb *Heartbeat) EndSession() {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	hb.active = false
	hb.session = HeartbeatSession{}
}

// SetTimeout configures the deadline, in seconds, adopted by future
// sessions. The active session keeps the deadline it started with.
func (hb *Heartbeat) SetTimeout(seconds float64) {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if seconds <= 0 {
		seconds = DefaultHeartbeatTimeout
	}
	hb.timeoutSec = seconds
}

// Session returns the active session, if any.
func (hb *Heartbeat) Session() (HeartbeatSession, bool) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return hb.session, hb.active
}
