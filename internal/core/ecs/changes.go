package ecs

import "slices"

// EntitySet is a set of entities with deterministic iteration order.
type EntitySet map[EntityID]struct{}

func (s EntitySet) Add(id EntityID) { s[id] = struct{}{} }

func (s EntitySet) Has(id EntityID) bool {
	_, ok := s[id]
	return ok
}

func (s EntitySet) Clear() { clear(s) }

// Sorted returns the members ordered by index, then generation.
func (s EntitySet) Sorted() []EntityID {
	ids := make([]EntityID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b EntityID) int {
		if a.Index() != b.Index() {
			return int(a.Index()) - int(b.Index())
		}
		return int(a.Generation()) - int(b.Generation())
	})
	return ids
}

// Changes is a journal window reduced to sets. Lifecycle is last-event-wins:
// an entity is never in both Inserted and Removed.
type Changes struct {
	Inserted EntitySet
	Modified EntitySet
	Removed  EntitySet
}

// CollectChanges reduces events into Changes. Modified events whose origin is
// listed in ignore are dropped.
func CollectChanges(events []ComponentEvent, ignore ...Origin) Changes {
	c := Changes{
		Inserted: make(EntitySet),
		Modified: make(EntitySet),
		Removed:  make(EntitySet),
	}
	for _, ev := range events {
		switch ev.Kind {
		case Inserted:
			delete(c.Removed, ev.Entity)
			c.Inserted.Add(ev.Entity)
		case Modified:
			if !slices.Contains(ignore, ev.Origin) {
				c.Modified.Add(ev.Entity)
			}
		case Removed:
			delete(c.Inserted, ev.Entity)
			delete(c.Modified, ev.Entity)
			c.Removed.Add(ev.Entity)
		}
	}
	return c
}
