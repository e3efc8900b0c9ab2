package ecs

import "reflect"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID) bool
}

// Releaser is implemented by components holding shared resources. A store
// calls Release when the component leaves it.
type Releaser interface {
	Release()
}

// Store is a typed component table with a change journal. Insert emits
// Inserted, GetMut emits Modified and Remove emits Removed. Get and Each are
// read-only views; mutating through them bypasses change tracking.
//
// The table itself is not locked: the scheduler guarantees at most one
// writer system per store within a stage.
type Store[T any] struct {
	name    string
	data    map[EntityID]*T
	journal *Journal
}

func NewStore[T any](journalCapacity int) *Store[T] {
	name := reflect.TypeFor[T]().Name()
	return &Store[T]{
		name:    name,
		data:    make(map[EntityID]*T, 256),
		journal: newJournal(name, journalCapacity),
	}
}

func (s *Store[T]) Name() string { return s.name }

// Insert sets id's component and emits Inserted, replacing any previous value.
func (s *Store[T]) Insert(id EntityID, c *T) {
	if old, ok := s.data[id]; ok && old != c {
		release(old)
	}
	s.data[id] = c
	s.journal.emit(ComponentEvent{Kind: Inserted, Entity: id})
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

// GetMut returns id's component for writing and emits a gameplay Modified.
func (s *Store[T]) GetMut(id EntityID) (*T, bool) {
	return s.GetMutFrom(OriginGameplay, id)
}

// GetMutFrom is GetMut with an explicit write origin.
func (s *Store[T]) GetMutFrom(origin Origin, id EntityID) (*T, bool) {
	c, ok := s.data[id]
	if ok {
		s.journal.emit(ComponentEvent{Kind: Modified, Entity: id, Origin: origin})
	}
	return c, ok
}

// Derive writes derived fields of id's component without emitting an event,
// so systems recomputing caches do not re-flag their own output.
func (s *Store[T]) Derive(id EntityID, fn func(*T)) bool {
	c, ok := s.data[id]
	if ok {
		fn(c)
	}
	return ok
}

func (s *Store[T]) Remove(id EntityID) bool {
	c, ok := s.data[id]
	if !ok {
		return false
	}
	delete(s.data, id)
	release(c)
	s.journal.emit(ComponentEvent{Kind: Removed, Entity: id})
	return true
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}

func (s *Store[T]) RegisterReader() ReaderID { return s.journal.RegisterReader() }

func (s *Store[T]) ReleaseReader(id ReaderID) { s.journal.ReleaseReader(id) }

func (s *Store[T]) Read(id ReaderID) []ComponentEvent { return s.journal.Read(id) }

func (s *Store[T]) Journal() *Journal { return s.journal }

func release(c any) {
	if r, ok := c.(Releaser); ok {
		r.Release()
	}
}
