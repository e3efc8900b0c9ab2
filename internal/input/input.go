// Package input queues discrete window events for the frame loop and keeps
// the key and cursor state derived from them.
package input

import (
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

type Key uint8

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyZ
	KeyEscape
)

var keyNames = map[string]Key{
	"w": KeyW, "a": KeyA, "s": KeyS, "d": KeyD,
	"q": KeyQ, "z": KeyZ, "escape": KeyEscape,
}

// ParseKey maps a lower-case key name ("w", "escape") to a Key.
func ParseKey(name string) Key {
	return keyNames[strings.ToLower(name)]
}

type Action uint8

const (
	Release Action = iota
	Press
	Repeat
)

// Event is a window event: CursorMoved or KeyChanged.
type Event interface {
	isEvent()
}

// CursorMoved carries the absolute cursor position in window pixels.
type CursorMoved struct {
	X, Y float64
}

type KeyChanged struct {
	Key    Key
	Action Action
}

func (CursorMoved) isEvent() {}
func (KeyChanged) isEvent()  {}

// Queue is filled by the event poller and drained once per frame.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

func (q *Queue) Push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Drain returns every queued event in arrival order and empties the queue.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Cache is the key and cursor state as of the last applied event.
type Cache struct {
	keys   map[Key]Action
	last   mgl32.Vec2
	delta  mgl32.Vec2
	primed bool
}

func NewCache() *Cache {
	return &Cache{keys: make(map[Key]Action)}
}

// BeginFrame clears the per-frame cursor delta.
func (c *Cache) BeginFrame() {
	c.delta = mgl32.Vec2{}
}

func (c *Cache) Apply(e Event) {
	switch e := e.(type) {
	case CursorMoved:
		pos := mgl32.Vec2{float32(e.X), float32(e.Y)}
		if c.primed {
			c.delta = c.delta.Add(pos.Sub(c.last))
		}
		c.last = pos
		c.primed = true
	case KeyChanged:
		c.keys[e.Key] = e.Action
	}
}

// Pressed reports whether k is held, including key repeat.
func (c *Cache) Pressed(k Key) bool {
	a := c.keys[k]
	return a == Press || a == Repeat
}

// CursorDelta is the cursor movement accumulated this frame.
func (c *Cache) CursorDelta() mgl32.Vec2 { return c.delta }
