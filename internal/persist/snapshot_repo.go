package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoSnapshot is returned when a scene has never been saved.
var ErrNoSnapshot = errors.New("persist: no snapshot")

// TransformRow is one entity's saved placement.
type TransformRow struct {
	Entity   uint64
	Name     string
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// Snapshot describes one saved scene state.
type Snapshot struct {
	ID        uuid.UUID
	Scene     string
	Frame     int64
	Entities  int
	CreatedAt time.Time
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

var transformColumns = []string{
	"snapshot_id", "entity", "name",
	"pos_x", "pos_y", "pos_z",
	"rot_x", "rot_y", "rot_z",
	"scale_x", "scale_y", "scale_z",
}

// Save writes a snapshot header and its rows in one transaction and
// returns the new snapshot id.
func (r *SnapshotRepo) Save(ctx context.Context, scene string, frame int64, rows []TransformRow) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("snapshot id: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO scene_snapshots (id, scene, frame, entities) VALUES ($1, $2, $3, $4)`,
		id, scene, frame, len(rows),
	); err != nil {
		return uuid.Nil, fmt.Errorf("snapshot header: %w", err)
	}

	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		row := rows[i]
		return []any{
			id, int64(row.Entity), row.Name,
			row.Position[0], row.Position[1], row.Position[2],
			row.Rotation[0], row.Rotation[1], row.Rotation[2],
			row.Scale[0], row.Scale[1], row.Scale[2],
		}, nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"snapshot_transforms"}, transformColumns, src); err != nil {
		return uuid.Nil, fmt.Errorf("snapshot rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("snapshot commit: %w", err)
	}
	return id, nil
}

// Latest returns the newest snapshot of scene with its rows.
func (r *SnapshotRepo) Latest(ctx context.Context, scene string) (Snapshot, []TransformRow, error) {
	var s Snapshot
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, scene, frame, entities, created_at FROM scene_snapshots
		 WHERE scene = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, scene,
	).Scan(&s.ID, &s.Scene, &s.Frame, &s.Entities, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, nil, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, nil, err
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity, name, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, scale_x, scale_y, scale_z
		 FROM snapshot_transforms WHERE snapshot_id = $1 ORDER BY entity`, s.ID,
	)
	if err != nil {
		return Snapshot{}, nil, err
	}
	defer rows.Close()

	var result []TransformRow
	for rows.Next() {
		var (
			tr     TransformRow
			entity int64
		)
		if err := rows.Scan(
			&entity, &tr.Name,
			&tr.Position[0], &tr.Position[1], &tr.Position[2],
			&tr.Rotation[0], &tr.Rotation[1], &tr.Rotation[2],
			&tr.Scale[0], &tr.Scale[1], &tr.Scale[2],
		); err != nil {
			return Snapshot{}, nil, err
		}
		tr.Entity = uint64(entity)
		result = append(result, tr)
	}
	return s, result, rows.Err()
}

// Prune keeps the newest keep snapshots of scene and deletes the rest.
func (r *SnapshotRepo) Prune(ctx context.Context, scene string, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM scene_snapshots WHERE scene = $1 AND id NOT IN (
		   SELECT id FROM scene_snapshots WHERE scene = $1 ORDER BY created_at DESC, id DESC LIMIT $2
		 )`, scene, keep,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
