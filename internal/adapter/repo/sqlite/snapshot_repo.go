package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tilefarm/internal/app/ports"
)

// SnapshotRepo stores the latest snapshot per player. With CompareAndSet a
// write only lands when its PrevUpdatedAt matches the stored UpdatedAt.
type SnapshotRepo struct {
	db            *DB
	CompareAndSet bool
}

func NewSnapshotRepo(db *DB) SnapshotRepo {
	return SnapshotRepo{db: db}
}

func (r SnapshotRepo) Load(ctx context.Context, playerID string) (ports.SnapshotRecord, error) {
	var (
		blob []byte
		rec  = ports.SnapshotRecord{PlayerID: playerID}
	)
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT data, updated_at, prev_updated_at FROM snapshots WHERE player_id = ?`, playerID,
	).Scan(&blob, &rec.UpdatedAt, &rec.PrevUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.SnapshotRecord{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.SnapshotRecord{}, err
	}
	rec.Data, err = r.db.dec.DecodeAll(blob, nil)
	if err != nil {
		return ports.SnapshotRecord{}, fmt.Errorf("decompress snapshot %s: %w", playerID, err)
	}
	return rec, nil
}

func (r SnapshotRepo) Save(ctx context.Context, rec ports.SnapshotRecord) error {
	blob := r.db.enc.EncodeAll(rec.Data, nil)
	query := `INSERT INTO snapshots (player_id, data, updated_at, prev_updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			prev_updated_at = excluded.prev_updated_at`
	if r.CompareAndSet {
		query += ` WHERE snapshots.updated_at = excluded.prev_updated_at`
	}
	res, err := r.db.conn(ctx).ExecContext(ctx, query, rec.PlayerID, blob, rec.UpdatedAt, rec.PrevUpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r SnapshotRepo) Delete(ctx context.Context, playerID string) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM snapshots WHERE player_id = ?`, playerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrNotFound
	}
	return nil
}
