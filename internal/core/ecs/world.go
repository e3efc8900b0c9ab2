package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue applied by Maintain.
type World struct {
	pool            *EntityPool
	registry        *Registry
	destroyQueue    []EntityID
	journalCapacity int
}

func NewWorld(journalCapacity int) *World {
	if journalCapacity <= 0 {
		journalCapacity = DefaultJournalCapacity
	}
	return &World{
		pool:            NewEntityPool(),
		registry:        NewRegistry(),
		destroyQueue:    make([]EntityID, 0, 64),
		journalCapacity: journalCapacity,
	}
}

// Register creates a store for T and adds it to the registry.
func Register[T any](w *World) *Store[T] {
	s := NewStore[T](w.journalCapacity)
	w.registry.Register(s)
	return s
}

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// MarkForDestruction queues an entity for removal at the next Maintain.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// Maintain destroys all queued entities and clears their components.
// Called between frames, never during a dispatch.
func (w *World) Maintain() int {
	n := 0
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		w.registry.RemoveAll(id)
		w.pool.Destroy(id)
		n++
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
