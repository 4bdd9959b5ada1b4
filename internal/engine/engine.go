// Package engine defines the narrow interface through which the resilience
// layer talks to the host rendering engine.
//
// The rendering engine itself (layout, widgets, draw lists, the per-frame
// render loop) is an external collaborator: this package never implements
// any of it. It only names the handful of things the resilience layer needs
// from the engine:
//
//   - Opaque resource handles (fonts, textures, draw lists)
//   - The engine-visible per-frame state an isolation scope must snapshot
//   - A monotonic time source driven by the engine clock
//   - The font registry used to pick fallback resources
//
// A real integration implements Host on top of the engine's bindings. The
// SimEngine in this package is an in-memory Host used by the demo harness
// and the test suites.
package engine

// Handle is an opaque identity for an engine-owned resource. The resilience
// layer records relationships between handles but never allocates or frees
// the underlying resource. The zero value is the null handle.
type Handle uint64

// NullHandle is the identity of a missing resource.
const NullHandle Handle = 0

// IsNull reports whether the handle refers to no resource.
func (h Handle) IsNull() bool { return h == NullHandle }

// Kind tags the resource type behind a handle. It is the lookup key for
// the default-value registry.
type Kind int

const (
	KindFont Kind = iota
	KindTexture
	KindDrawList
)

// String returns a human-readable resource kind.
func (k Kind) String() string {
	switch k {
	case KindFont:
		return "font"
	case KindTexture:
		return "texture"
	case KindDrawList:
		return "draw_list"
	default:
		return "unknown"
	}
}

// FrameState is the engine-visible mutable state a fault can corrupt and an
// isolation scope must therefore be able to snapshot and restore: the
// identity of the widget currently being interacted with and the draw list
// currently receiving geometry.
type FrameState interface {
	// ActiveWidget returns the id of the currently active widget, or zero
	// when no widget is active.
	ActiveWidget() uint32

	// SetActiveWidget overwrites the active widget id. Zero is the neutral
	// value.
	SetActiveWidget(id uint32)

	// CurrentDrawList returns the handle of the draw list currently
	// receiving commands.
	CurrentDrawList() Handle

	// SetCurrentDrawList redirects drawing to the given draw list.
	SetCurrentDrawList(h Handle)

	// ReleaseDrawList tells the engine a draw list is no longer usable
	// (typically because a fault left it in an unknown state).
	ReleaseDrawList(h Handle)
}

// Host is the complete contract the resilience layer holds against the
// rendering engine.
type Host interface {
	FrameState

	// Now returns the engine clock in seconds. Heartbeat deadlines and
	// predictor timestamps are measured against this clock, not the wall
	// clock, so tests and replays can drive time explicitly.
	Now() float64

	// Fonts returns the handles of every font the engine has registered,
	// in registration order. May be empty.
	Fonts() []Handle

	// FontName returns the engine's name for a font handle, or an empty
	// string if the handle is unknown.
	FontName(h Handle) string
}
