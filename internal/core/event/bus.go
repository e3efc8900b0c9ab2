package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in frame N are delivered
// in frame N+1 when the dispatch system calls SwapBuffers and DispatchAll.
// Emit is safe from concurrently running systems.
type Bus struct {
	mu       sync.Mutex
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Emit queues an event into the back buffer (delivered next frame).
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeFor[T]()
	b.mu.Lock()
	b.back[t] = append(b.back[t], event)
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := reflect.TypeFor[T]()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at frame start.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers
// and returns how many events were delivered. Handlers may Emit; those events
// land in the back buffer.
func (b *Bus) DispatchAll() int {
	type batch struct {
		events   []any
		handlers []func(any)
	}
	b.mu.Lock()
	pending := make([]batch, 0, len(b.front))
	for t, events := range b.front {
		if len(events) == 0 {
			continue
		}
		pending = append(pending, batch{events: events, handlers: b.handlers[t]})
		b.front[t] = nil
	}
	b.mu.Unlock()

	n := 0
	for _, p := range pending {
		for _, ev := range p.events {
			for _, h := range p.handlers {
				h(ev)
			}
		}
		n += len(p.events)
	}
	return n
}
