package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vetrina/storefront/internal/bag"
)

const (
	loadSnapshotSQL = `SELECT lines FROM bag_snapshots WHERE session_key = $1`

	saveSnapshotSQL = `INSERT INTO bag_snapshots (session_key, lines, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_key) DO UPDATE SET lines = EXCLUDED.lines, updated_at = now()`

	deleteSnapshotSQL = `DELETE FROM bag_snapshots WHERE session_key = $1`
)

var _ bag.Snapshots = (*BagSnapshotRepository)(nil)

// BagSnapshotRepository implements bag.Snapshots backed by a JSONB column.
type BagSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewBagSnapshotRepository returns a BagSnapshotRepository using the pool.
func NewBagSnapshotRepository(pool *pgxpool.Pool) *BagSnapshotRepository {
	return &BagSnapshotRepository{pool: pool}
}

// Load returns the persisted bag lines for a session key.
func (r *BagSnapshotRepository) Load(ctx context.Context, key string) ([]bag.Line, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, loadSnapshotSQL, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bag.ErrNoSnapshot
		}
		return nil, errors.Wrapf(err, "load snapshot %q", key)
	}

	var lines []bag.Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, errors.Wrapf(err, "decode snapshot %q", key)
	}
	return lines, nil
}

// Save upserts the full snapshot for a session key as JSONB.
func (r *BagSnapshotRepository) Save(ctx context.Context, key string, lines []bag.Line) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return errors.Wrapf(err, "encode snapshot %q", key)
	}
	if _, err := r.pool.Exec(ctx, saveSnapshotSQL, key, raw); err != nil {
		return errors.Wrapf(err, "save snapshot %q", key)
	}
	return nil
}

// Delete removes the snapshot for a session key. Deleting a missing snapshot
// is not an error.
func (r *BagSnapshotRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, deleteSnapshotSQL, key); err != nil {
		return errors.Wrapf(err, "delete snapshot %q", key)
	}
	return nil
}
