package system

import (
	"reflect"
	"time"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
	coresys "github.com/emberforge/engine/internal/core/system"
)

const NameTransform = "transform"

// TransformSystem recomputes Transform.Model for entities whose Transform
// was inserted or modified since its last run. The recompute goes through
// Store.Derive, so it never re-flags the entity for the next frame.
type TransformSystem struct {
	transforms *ecs.Store[component.Transform]
	reader     ecs.ReaderID
	dirty      ecs.EntitySet
	last       int
	total      uint64
}

func NewTransformSystem(transforms *ecs.Store[component.Transform]) *TransformSystem {
	return &TransformSystem{
		transforms: transforms,
		reader:     transforms.RegisterReader(),
		dirty:      make(ecs.EntitySet, 256),
	}
}

func (s *TransformSystem) Name() string { return NameTransform }

func (s *TransformSystem) Access() coresys.Access {
	return coresys.Access{Writes: []reflect.Type{coresys.Res[component.Transform]()}}
}

func (s *TransformSystem) Run(_ time.Duration) {
	s.dirty.Clear()
	for _, ev := range s.transforms.Read(s.reader) {
		if ev.Kind == ecs.Inserted || ev.Kind == ecs.Modified {
			s.dirty.Add(ev.Entity)
		}
	}

	n := 0
	for e := range s.dirty {
		if s.transforms.Derive(e, recomputeModel) {
			n++
		}
	}
	s.last = n
	s.total += uint64(n)
}

func recomputeModel(t *component.Transform) {
	t.Model = t.ComputeModel()
}

// Recomputed returns how many model matrices the last run rebuilt.
func (s *TransformSystem) Recomputed() int { return s.last }

// Total returns the number of rebuilds since construction.
func (s *TransformSystem) Total() uint64 { return s.total }
