package physics

import (
	"fmt"

	"github.com/emberforge/engine/internal/core/ecs"
)

// HandleTable maps entities to live body and collider handles. An entity
// has at most one of each; inserting over a live handle is a programming
// error and panics with ErrDuplicateHandle.
//
// Entities whose body handle was inserted or removed are remembered until
// TakeBodyChanges so their colliders can be re-parented.
type HandleTable struct {
	bodies    map[ecs.EntityID]BodyHandle
	colliders map[ecs.EntityID]ColliderHandle
	reparent  ecs.EntitySet
}

func NewHandleTable() *HandleTable {
	return &HandleTable{
		bodies:    make(map[ecs.EntityID]BodyHandle, 64),
		colliders: make(map[ecs.EntityID]ColliderHandle, 64),
		reparent:  make(ecs.EntitySet),
	}
}

func (t *HandleTable) Body(e ecs.EntityID) (BodyHandle, bool) {
	h, ok := t.bodies[e]
	return h, ok
}

func (t *HandleTable) InsertBody(e ecs.EntityID, h BodyHandle) {
	if old, ok := t.bodies[e]; ok {
		panic(fmt.Errorf("%w: entity %s body %d (inserting %d)", ErrDuplicateHandle, e, old, h))
	}
	t.bodies[e] = h
	t.reparent.Add(e)
}

func (t *HandleTable) RemoveBody(e ecs.EntityID) (BodyHandle, bool) {
	h, ok := t.bodies[e]
	if ok {
		delete(t.bodies, e)
		t.reparent.Add(e)
	}
	return h, ok
}

// TakeBodyChanges returns the entities whose body handle changed since the
// previous call and forgets them.
func (t *HandleTable) TakeBodyChanges() ecs.EntitySet {
	if len(t.reparent) == 0 {
		return nil
	}
	out := t.reparent
	t.reparent = make(ecs.EntitySet)
	return out
}

func (t *HandleTable) Collider(e ecs.EntityID) (ColliderHandle, bool) {
	h, ok := t.colliders[e]
	return h, ok
}

func (t *HandleTable) InsertCollider(e ecs.EntityID, h ColliderHandle) {
	if old, ok := t.colliders[e]; ok {
		panic(fmt.Errorf("%w: entity %s collider %d (inserting %d)", ErrDuplicateHandle, e, old, h))
	}
	t.colliders[e] = h
}

func (t *HandleTable) RemoveCollider(e ecs.EntityID) (ColliderHandle, bool) {
	h, ok := t.colliders[e]
	if ok {
		delete(t.colliders, e)
	}
	return h, ok
}

func (t *HandleTable) Bodies() int    { return len(t.bodies) }
func (t *HandleTable) Colliders() int { return len(t.colliders) }
