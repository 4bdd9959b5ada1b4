package engine

import (
	"sync"

	"github.com/google/uuid"
)

// SimEngine is an in-memory Host implementation. It stands in for a real
// rendering engine in the demo harness and in tests: it mints resource
// handles, keeps the per-frame state the isolation scopes manipulate, and
// exposes a manually advanced clock so timeout behavior is deterministic.
//
// Thread Safety: SimEngine is safe for concurrent use; the demo harness
// drives it from several worker goroutines at once.
type SimEngine struct {
	mu sync.RWMutex

	now    float64
	nextID Handle

	fonts     []Handle
	fontNames map[Handle]string
	textures  map[Handle]string

	activeWidget uint32
	currentDraw  Handle
	released     []Handle
}

// NewSimEngine creates a simulated engine with an empty resource registry
// and the clock at zero.
func NewSimEngine() *SimEngine {
	return &SimEngine{
		nextID:    1,
		fontNames: make(map[Handle]string),
		textures:  make(map[Handle]string),
	}
}

// RegisterFont registers a named font and returns its handle. An empty
// name gets a generated one, the way engines auto-name anonymous atlases.
func (s *SimEngine) RegisterFont(name string) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = "font-" + uuid.NewString()[:8]
	}
	h := s.mint()
	s.fonts = append(s.fonts, h)
	s.fontNames[h] = name
	return h
}

// RegisterTexture registers a named texture and returns its handle.
func (s *SimEngine) RegisterTexture(name string) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = "texture-" + uuid.NewString()[:8]
	}
	h := s.mint()
	s.textures[h] = name
	return h
}

// NewDrawList mints a draw list handle without making it current.
func (s *SimEngine) NewDrawList() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mint()
}

// mint must be called with the lock held.
func (s *SimEngine) mint() Handle {
	h := s.nextID
	s.nextID++
	return h
}

// Advance moves the simulated clock forward by the given number of seconds.
func (s *SimEngine) Advance(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now += seconds
}

// Now returns the simulated engine clock in seconds.
func (s *SimEngine) Now() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

// Fonts returns the registered font handles in registration order.
func (s *SimEngine) Fonts() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Handle, len(s.fonts))
	copy(out, s.fonts)
	return out
}

// FontName returns the registered name for a font handle.
func (s *SimEngine) FontName(h Handle) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fontNames[h]
}

// ActiveWidget returns the currently active widget id.
func (s *SimEngine) ActiveWidget() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeWidget
}

// SetActiveWidget overwrites the active widget id.
func (s *SimEngine) SetActiveWidget(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeWidget = id
}

// CurrentDrawList returns the draw list currently receiving commands.
func (s *SimEngine) CurrentDrawList() Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDraw
}

// SetCurrentDrawList redirects drawing to the given draw list.
func (s *SimEngine) SetCurrentDrawList(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDraw = h
}

// ReleaseDrawList records that a draw list was discarded. The simulated
// engine keeps the release log so tests can assert on scope cleanup.
func (s *SimEngine) ReleaseDrawList(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, h)
}

// ReleasedDrawLists returns every draw list handle released so far, in
// release order.
func (s *SimEngine) ReleasedDrawLists() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Handle, len(s.released))
	copy(out, s.released)
	return out
}
