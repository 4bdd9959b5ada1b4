package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimEngineResourceRegistry(t *testing.T) {
	sim := NewSimEngine()

	a := sim.RegisterFont("mono")
	b := sim.RegisterFont("sans")
	tex := sim.RegisterTexture("atlas")

	require.False(t, a.IsNull())
	require.False(t, b.IsNull())
	require.False(t, tex.IsNull())
	assert.NotEqual(t, a, b)

	assert.Equal(t, []Handle{a, b}, sim.Fonts())
	assert.Equal(t, "mono", sim.FontName(a))
	assert.Equal(t, "sans", sim.FontName(b))
	assert.Equal(t, "", sim.FontName(tex)) // textures are not fonts
}

func TestSimEngineGeneratedNames(t *testing.T) {
	sim := NewSimEngine()

	h := sim.RegisterFont("")
	assert.NotEmpty(t, sim.FontName(h))
}

func TestSimEngineFrameState(t *testing.T) {
	sim := NewSimEngine()

	assert.Equal(t, uint32(0), sim.ActiveWidget())
	sim.SetActiveWidget(42)
	assert.Equal(t, uint32(42), sim.ActiveWidget())

	dl := sim.NewDrawList()
	sim.SetCurrentDrawList(dl)
	assert.Equal(t, dl, sim.CurrentDrawList())

	sim.ReleaseDrawList(dl)
	assert.Equal(t, []Handle{dl}, sim.ReleasedDrawLists())
}

func TestSimEngineClock(t *testing.T) {
	sim := NewSimEngine()

	assert.Equal(t, 0.0, sim.Now())
	sim.Advance(0.25)
	sim.Advance(0.25)
	assert.InDelta(t, 0.5, sim.Now(), 1e-9)
}

func TestSimEngineConcurrentMinting(t *testing.T) {
	sim := NewSimEngine()

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				sim.RegisterFont("")
				sim.Advance(0.001)
			}
		}()
	}
	wg.Wait()

	fonts := sim.Fonts()
	assert.Len(t, fonts, workers*perWorker)

	seen := make(map[Handle]bool, len(fonts))
	for _, h := range fonts {
		assert.False(t, seen[h], "duplicate handle %d", h)
		seen[h] = true
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "font", KindFont.String())
	assert.Equal(t, "texture", KindTexture.String())
	assert.Equal(t, "draw_list", KindDrawList.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
