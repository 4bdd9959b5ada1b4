package resilience

import "sync"

// DefaultHistoryCapacity bounds the predictor's event history when the
// caller configures no capacity.
const DefaultHistoryCapacity = 1000

// TimeoutEvent is one observation in the predictor's history.
type TimeoutEvent struct {
	Type      string
	TimedOut  bool
	Timestamp float64
}

// Predictor estimates, from observed history, the probability that an
// event type is followed by a timed-out event of another type. It is a
// single-order Markov model over adjacent event pairs - enough to answer
// "is the next step in this known sequence likely to stall", not a full
// transition matrix.
//
// History is a bounded circular buffer with FIFO eviction.
//
// Thread Safety: Predictor is safe for concurrent use.
type Predictor struct {
	mu sync.RWMutex

	now  func() float64
	buf  []TimeoutEvent
	head int // index of the oldest event
	size int
}

// NewPredictor creates a predictor against the given engine clock. A
// non-positive capacity selects the library default.
func NewPredictor(now func() float64, capacity int) *Predictor {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Predictor{
		now: now,
		buf: make([]TimeoutEvent, capacity),
	}
}

// RecordEvent appends an observation stamped with the current engine time,
// evicting the oldest entry once capacity is exceeded.
func (p *Predictor) RecordEvent(eventType string, timedOut bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev := TimeoutEvent{
		Type:      eventType,
		TimedOut:  timedOut,
		Timestamp: p.now(),
	}

	if p.size < len(p.buf) {
		p.buf[(p.head+p.size)%len(p.buf)] = ev
		p.size++
		return
	}

	// Full: overwrite the oldest slot and advance the window.
	p.buf[p.head] = ev
	p.head = (p.head + 1) % len(p.buf)
}

// PredictChainProbability returns the empirical probability that an event
// of nextType times out when it follows an event of the most recent
// event's type. With fewer than two observations, or no matching adjacent
// pair in history, the estimate is 0. The result is always in [0,1].
func (p *Predictor) PredictChainProbability(nextType string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.size < 2 {
		return 0
	}

	lastType := p.at(p.size - 1).Type

	transitions := 0
	timedOut := 0
	for i := 0; i < p.size-1; i++ {
		a := p.at(i)
		b := p.at(i + 1)
		if a.Type == lastType && b.Type == nextType {
			transitions++
			if b.TimedOut {
				timedOut++
			}
		}
	}

	if transitions == 0 {
		return 0
	}
	return float64(timedOut) / float64(transitions)
}

// Reset clears the event history.
func (p *Predictor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head = 0
	p.size = 0
}

// Len returns the number of events currently held.
func (p *Predictor) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// at returns the i-th event in chronological order. Must be called with
// the lock held and i < size.
func (p *Predictor) at(i int) TimeoutEvent {
	return p.buf[(p.head+i)%len(p.buf)]
}
