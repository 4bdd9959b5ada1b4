// Default-value provisioning for missing resources.
//
// When a call site is promised a valid handle and holds a null one, the
// provider supplies a best-effort substitute so rendering can continue with
// a visibly stale resource instead of crashing. The lookup is an explicit
// registry keyed by resource kind rather than anything type-parametric:
// factories and minimal instances are registered at initialization and
// queried by tag at the call site.

package resilience

import (
	"sync"

	"github.com/kestrelui/renderguard/internal/engine"
)

// placeholderBase is the start of the reserved handle range used for
// last-resort placeholder instances. Real engine handles are minted from 1
// upward and never reach this range.
const placeholderBase engine.Handle = 1 << 62

// DefaultProvider produces non-null substitutes for missing resources.
//
// Policy order per kind:
//  1. the precomputed minimal instance (a tiny default font built from the
//     engine's font registry at initialization, for example),
//  2. the first instance of that kind the engine has registered,
//  3. a lazily constructed placeholder in a reserved handle range.
//
// Guarantee: Default never returns the null handle and never fails.
//
// Thread Safety: DefaultProvider is safe for concurrent use.
type DefaultProvider struct {
	mu sync.Mutex

	host         engine.Host
	minimal      map[engine.Kind]engine.Handle
	placeholders map[engine.Kind]engine.Handle
	nextReserved engine.Handle
}

// NewDefaultProvider creates a provider bound to the host engine and
// precomputes the minimal font instance from the host's font registry, when
// the registry is non-empty.
func NewDefaultProvider(host engine.Host) *DefaultProvider {
	p := &DefaultProvider{
		host:         host,
		minimal:      make(map[engine.Kind]engine.Handle),
		placeholders: make(map[engine.Kind]engine.Handle),
		nextReserved: placeholderBase,
	}

	if host != nil {
		if fonts := host.Fonts(); len(fonts) > 0 {
			p.minimal[engine.KindFont] = fonts[0]
		}
	}

	return p
}

// SetMinimal registers the precomputed minimal instance for a kind,
// overriding whatever initialization chose. A null handle clears it.
func (p *DefaultProvider) SetMinimal(kind engine.Kind, h engine.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.IsNull() {
		delete(p.minimal, kind)
		return
	}
	p.minimal[kind] = h
}

// Default returns a usable substitute handle for the given resource kind.
// It never returns the null handle.
func (p *DefaultProvider) Default(kind engine.Kind) engine.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.minimal[kind]; ok && !h.IsNull() {
		return h
	}

	if h := p.firstRegistered(kind); !h.IsNull() {
		return h
	}

	// Last resort: a statically scoped placeholder, built once per kind.
	if h, ok := p.placeholders[kind]; ok {
		return h
	}
	h := p.nextReserved
	p.nextReserved++
	p.placeholders[kind] = h
	return h
}

// IsPlaceholder reports whether a handle came out of the provider's
// reserved last-resort range.
func (p *DefaultProvider) IsPlaceholder(h engine.Handle) bool {
	return h >= placeholderBase
}

// firstRegistered must be called with the lock held.
func (p *DefaultProvider) firstRegistered(kind engine.Kind) engine.Handle {
	if p.host == nil {
		return engine.NullHandle
	}

	switch kind {
	case engine.KindFont:
		if fonts := p.host.Fonts(); len(fonts) > 0 {
			return fonts[0]
		}
	}
	return engine.NullHandle
}
