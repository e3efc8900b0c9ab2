package system

import (
	"sync"
	"time"
)

// Observer is notified around every system run. Implementations must be
// safe for concurrent use.
type Observer interface {
	SystemStarted(name string, at time.Time)
	SystemFinished(name string, at time.Time)
}

// Span is one recorded system run.
type Span struct {
	System string
	Start  time.Time
	End    time.Time
}

// Timeline records spans of the most recent dispatches.
type Timeline struct {
	mu    sync.Mutex
	open  map[string]time.Time
	spans []Span
}

func NewTimeline() *Timeline {
	return &Timeline{open: make(map[string]time.Time)}
}

func (t *Timeline) SystemStarted(name string, at time.Time) {
	t.mu.Lock()
	t.open[name] = at
	t.mu.Unlock()
}

func (t *Timeline) SystemFinished(name string, at time.Time) {
	t.mu.Lock()
	t.spans = append(t.spans, Span{System: name, Start: t.open[name], End: at})
	delete(t.open, name)
	t.mu.Unlock()
}

// Drain returns and clears the recorded spans.
func (t *Timeline) Drain() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.spans
	t.spans = nil
	return out
}

// Span returns the last recorded span for name.
func (t *Timeline) Span(name string) (Span, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.spans) - 1; i >= 0; i-- {
		if t.spans[i].System == name {
			return t.spans[i], true
		}
	}
	return Span{}, false
}
