package ecs

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller store and checks the larger one.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for id, a := range sa.data {
			if b, ok := sb.data[id]; ok {
				fn(id, a, b)
			}
		}
	} else {
		for id, b := range sb.data {
			if a, ok := sa.data[id]; ok {
				fn(id, a, b)
			}
		}
	}
}

// EachIn iterates over the members of set that have a component in s.
func EachIn[T any](s *Store[T], set EntitySet, fn func(EntityID, *T)) {
	for _, id := range set.Sorted() {
		if c, ok := s.data[id]; ok {
			fn(id, c)
		}
	}
}
