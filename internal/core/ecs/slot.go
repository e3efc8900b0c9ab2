package ecs

import "sync"

// Slot is a single-value world resource, e.g. the active camera.
type Slot[T any] struct {
	mu  sync.RWMutex
	val T
	set bool
}

func (s *Slot[T]) Set(v T) {
	s.mu.Lock()
	s.val, s.set = v, true
	s.mu.Unlock()
}

func (s *Slot[T]) Get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val, s.set
}

func (s *Slot[T]) Clear() {
	s.mu.Lock()
	var zero T
	s.val, s.set = zero, false
	s.mu.Unlock()
}
