package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelui/renderguard/internal/engine"
)

func TestDefaultProviderPrecomputedMinimalFont(t *testing.T) {
	sim := engine.NewSimEngine()
	tiny := sim.RegisterFont("tiny-ascii")
	sim.RegisterFont("display")

	p := NewDefaultProvider(sim)

	// Initialization picks the first registered font as the minimal one.
	assert.Equal(t, tiny, p.Default(engine.KindFont))
}

func TestDefaultProviderSetMinimalOverride(t *testing.T) {
	sim := engine.NewSimEngine()
	sim.RegisterFont("first")
	better := sim.RegisterFont("embedded-fallback")

	p := NewDefaultProvider(sim)
	p.SetMinimal(engine.KindFont, better)

	assert.Equal(t, better, p.Default(engine.KindFont))

	// Clearing falls back to the registry.
	p.SetMinimal(engine.KindFont, engine.NullHandle)
	assert.False(t, p.Default(engine.KindFont).IsNull())
}

func TestDefaultProviderFirstRegisteredFallback(t *testing.T) {
	sim := engine.NewSimEngine()
	p := NewDefaultProvider(sim)

	// Fonts registered after initialization are still discoverable.
	late := sim.RegisterFont("late")
	assert.Equal(t, late, p.Default(engine.KindFont))
}

func TestDefaultProviderPlaceholderLastResort(t *testing.T) {
	p := NewDefaultProvider(engine.NewSimEngine())

	tex := p.Default(engine.KindTexture)
	require.False(t, tex.IsNull())
	assert.True(t, p.IsPlaceholder(tex))

	// Statically scoped: the same placeholder every time.
	assert.Equal(t, tex, p.Default(engine.KindTexture))

	// Distinct kinds get distinct placeholders.
	dl := p.Default(engine.KindDrawList)
	assert.False(t, dl.IsNull())
	assert.NotEqual(t, tex, dl)
}

func TestDefaultProviderNeverNull(t *testing.T) {
	// Even with no host at all, every kind resolves to something.
	p := NewDefaultProvider(nil)

	for _, kind := range []engine.Kind{engine.KindFont, engine.KindTexture, engine.KindDrawList} {
		assert.False(t, p.Default(kind).IsNull(), "kind %v", kind)
	}
}
