package system

import (
	"cmp"
	"context"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
	coresys "github.com/emberforge/engine/internal/core/system"
	"github.com/emberforge/engine/internal/persist"
)

const NamePersistence = "persistence"

// SnapshotStore is the subset of persist.SnapshotRepo the system uses.
type SnapshotStore interface {
	Save(ctx context.Context, scene string, frame int64, rows []persist.TransformRow) (uuid.UUID, error)
	Prune(ctx context.Context, scene string, keep int) (int64, error)
}

// PersistenceSystem periodically snapshots every Transform of the scene.
type PersistenceSystem struct {
	transforms *ecs.Store[component.Transform]
	names      map[ecs.EntityID]string
	repo       SnapshotStore
	scene      string
	log        *zap.Logger
	frame      int64
	frameCount int
	interval   int // snapshot every N frames, 0 = only on SaveNow
	keep       int
}

func NewPersistenceSystem(
	transforms *ecs.Store[component.Transform],
	names map[ecs.EntityID]string,
	repo SnapshotStore,
	scene string,
	intervalFrames, keep int,
	log *zap.Logger,
) *PersistenceSystem {
	return &PersistenceSystem{
		transforms: transforms,
		names:      names,
		repo:       repo,
		scene:      scene,
		log:        log,
		interval:   intervalFrames,
		keep:       keep,
	}
}

func (s *PersistenceSystem) Name() string { return NamePersistence }

func (s *PersistenceSystem) Access() coresys.Access {
	return coresys.Access{Reads: []reflect.Type{coresys.Res[component.Transform]()}}
}

func (s *PersistenceSystem) Run(_ time.Duration) {
	s.frame++
	if s.interval <= 0 {
		return
	}
	s.frameCount++
	if s.frameCount < s.interval {
		return
	}
	s.frameCount = 0
	if _, err := s.SaveNow(); err != nil {
		s.log.Error("scene snapshot failed", zap.String("scene", s.scene), zap.Error(err))
	}
}

// SaveNow snapshots the scene immediately. Called at shutdown so the last
// state is never lost.
func (s *PersistenceSystem) SaveNow() (uuid.UUID, error) {
	rows := make([]persist.TransformRow, 0, s.transforms.Len())
	s.transforms.Each(func(e ecs.EntityID, tr *component.Transform) {
		rows = append(rows, persist.TransformRow{
			Entity:   uint64(e),
			Name:     s.names[e],
			Position: tr.Position,
			Rotation: tr.Rotation,
			Scale:    tr.Scale,
		})
	})
	slices.SortFunc(rows, func(a, b persist.TransformRow) int { return cmp.Compare(a.Entity, b.Entity) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.repo.Save(ctx, s.scene, s.frame, rows)
	if err != nil {
		return uuid.Nil, err
	}
	s.log.Info("scene snapshot saved",
		zap.String("scene", s.scene),
		zap.Stringer("id", id),
		zap.Int("entities", len(rows)),
		zap.Int64("frame", s.frame))

	if s.keep > 0 {
		if n, err := s.repo.Prune(ctx, s.scene, s.keep); err != nil {
			s.log.Warn("snapshot prune failed", zap.Error(err))
		} else if n > 0 {
			s.log.Debug("old snapshots pruned", zap.Int64("count", n))
		}
	}
	return id, nil
}
