package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelui/renderguard/internal/engine"
)

func TestScopeCleanCloseIsNoOp(t *testing.T) {
	sim := engine.NewSimEngine()
	dl := sim.NewDrawList()
	sim.SetCurrentDrawList(dl)
	sim.SetActiveWidget(7)

	scope := EnterScope(sim)
	sim.SetActiveWidget(9) // scope body moves state around
	scope.Close()

	// Nothing restored, nothing released.
	assert.Equal(t, uint32(9), sim.ActiveWidget())
	assert.Equal(t, dl, sim.CurrentDrawList())
	assert.Empty(t, sim.ReleasedDrawLists())
}

func TestScopeFaultedCloseRestoresState(t *testing.T) {
	sim := engine.NewSimEngine()
	original := sim.NewDrawList()
	sim.SetCurrentDrawList(original)
	sim.SetActiveWidget(7)

	scope := EnterScope(sim)

	// The faulting widget grabbed a new draw list and the active id.
	corrupt := sim.NewDrawList()
	sim.SetCurrentDrawList(corrupt)
	sim.SetActiveWidget(42)

	scope.MarkAsFaulted()
	assert.True(t, scope.Faulted())
	scope.Close()

	assert.Equal(t, uint32(0), sim.ActiveWidget(), "active widget cleared to neutral")
	assert.Equal(t, original, sim.CurrentDrawList(), "snapshot restored")
	assert.Equal(t, []engine.Handle{corrupt}, sim.ReleasedDrawLists(), "corrupt target released")
}

func TestScopeFaultedCloseWithUnchangedDrawList(t *testing.T) {
	sim := engine.NewSimEngine()
	dl := sim.NewDrawList()
	sim.SetCurrentDrawList(dl)
	sim.SetActiveWidget(3)

	scope := EnterScope(sim)
	scope.MarkAsFaulted()
	scope.Close()

	// Same draw target: only the active widget is reset, nothing released.
	assert.Equal(t, uint32(0), sim.ActiveWidget())
	assert.Equal(t, dl, sim.CurrentDrawList())
	assert.Empty(t, sim.ReleasedDrawLists())
}

func TestScopeCloseIdempotent(t *testing.T) {
	sim := engine.NewSimEngine()
	original := sim.NewDrawList()
	sim.SetCurrentDrawList(original)

	scope := EnterScope(sim)
	sim.SetCurrentDrawList(sim.NewDrawList())
	scope.MarkAsFaulted()

	scope.Close()
	scope.Close()

	assert.Len(t, sim.ReleasedDrawLists(), 1)
}

func TestScopeNested(t *testing.T) {
	sim := engine.NewSimEngine()
	outerDL := sim.NewDrawList()
	sim.SetCurrentDrawList(outerDL)

	outer := EnterScope(sim)

	innerDL := sim.NewDrawList()
	sim.SetCurrentDrawList(innerDL)

	inner := EnterScope(sim)
	sim.SetCurrentDrawList(sim.NewDrawList())
	inner.MarkAsFaulted()
	inner.Close()

	// Inner fault contained: outer scope still sees its own draw list.
	assert.Equal(t, innerDL, sim.CurrentDrawList())

	outer.Close()
	assert.Equal(t, innerDL, sim.CurrentDrawList(), "unfaulted outer close keeps state")
}
