package event

import (
	"github.com/emberforge/engine/internal/core/ecs"
)

// Physics lifecycle events, emitted by the sync systems.

type BodyCreated struct {
	Entity ecs.EntityID
	Handle uint64
}

type BodyRemoved struct {
	Entity ecs.EntityID
	Handle uint64
}

type ColliderCreated struct {
	Entity ecs.EntityID
	Handle uint64
	Ground bool // attached to the static world frame
}

type ColliderRemoved struct {
	Entity ecs.EntityID
	Handle uint64
}

// PhysicsStepped is emitted once per simulation tick.
type PhysicsStepped struct {
	Tick uint64
}
