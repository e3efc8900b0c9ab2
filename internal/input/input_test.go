package input

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestQueueDrainOrder(t *testing.T) {
	var q Queue
	q.Push(KeyChanged{Key: KeyW, Action: Press})
	q.Push(CursorMoved{X: 1, Y: 2})
	q.Push(KeyChanged{Key: KeyW, Action: Release})

	got := q.Drain()
	if len(got) != 3 {
		t.Fatalf("drained %d events", len(got))
	}
	if k, ok := got[2].(KeyChanged); !ok || k.Action != Release {
		t.Errorf("last event = %#v", got[2])
	}
	if q.Len() != 0 || len(q.Drain()) != 0 {
		t.Error("queue not empty after drain")
	}
}

func TestCacheKeysAndCursor(t *testing.T) {
	c := NewCache()
	c.BeginFrame()
	c.Apply(CursorMoved{X: 10, Y: 10})
	if c.CursorDelta() != (mgl32.Vec2{}) {
		t.Errorf("first cursor event should only prime, delta = %v", c.CursorDelta())
	}
	c.Apply(CursorMoved{X: 13, Y: 6})
	c.Apply(CursorMoved{X: 14, Y: 6})
	if c.CursorDelta() != (mgl32.Vec2{4, -4}) {
		t.Errorf("delta = %v", c.CursorDelta())
	}
	c.BeginFrame()
	if c.CursorDelta() != (mgl32.Vec2{}) {
		t.Error("delta not reset")
	}

	c.Apply(KeyChanged{Key: ParseKey("W"), Action: Repeat})
	if !c.Pressed(KeyW) || c.Pressed(KeyS) {
		t.Error("key state wrong")
	}
	c.Apply(KeyChanged{Key: KeyW, Action: Release})
	if c.Pressed(KeyW) {
		t.Error("released key still pressed")
	}
}
