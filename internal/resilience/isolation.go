package resilience

import "github.com/kestrelui/renderguard/internal/engine"

// Scope is a fault boundary around one unit of rendering work, typically a
// single widget. On entry it snapshots the engine-visible state a failure
// could corrupt; if the surrounding detection logic marks the scope as
// faulted, closing it rolls that state back to the snapshot so a single
// widget's failure stays inside the widget instead of poisoning the frame.
//
// Usage:
//
//	scope := resilience.EnterScope(state)
//	defer scope.Close()
//	...
//	if fault := doRisky(); fault != nil {
//	    scope.MarkAsFaulted()
//	}
//
// A Scope belongs to one goroutine; it is not shared.
type Scope struct {
	state   engine.FrameState
	faulted bool
	closed  bool

	savedActiveWidget uint32
	savedDrawList     engine.Handle
}

// EnterScope snapshots the current draw target and active-widget identity.
func EnterScope(state engine.FrameState) *Scope {
	return &Scope{
		state:             state,
		savedActiveWidget: state.ActiveWidget(),
		savedDrawList:     state.CurrentDrawList(),
	}
}

// MarkAsFaulted flags the scope so Close will restore the snapshot. Called
// by the surrounding fault-detection logic when an anomaly is caught inside
// the scope.
func (s *Scope) MarkAsFaulted() {
	s.faulted = true
}

// Faulted reports whether the scope has been marked.
func (s *Scope) Faulted() bool {
	return s.faulted
}

// Close ends the scope. If it was marked faulted, the active-widget
// identity is cleared to its neutral value and, when the current draw
// target differs from the snapshot, the presumably corrupt current target
// is released and the snapshot restored. An unmarked close only discards
// the snapshot. Close is idempotent.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if !s.faulted {
		return
	}

	s.state.SetActiveWidget(0)

	if current := s.state.CurrentDrawList(); current != s.savedDrawList {
		if !current.IsNull() {
			s.state.ReleaseDrawList(current)
		}
		s.state.SetCurrentDrawList(s.savedDrawList)
	}
}
