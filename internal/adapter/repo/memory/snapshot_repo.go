package memory

import (
	"context"

	"tilefarm/internal/app/ports"
)

// SnapshotRepo overwrites by default. With CompareAndSet it behaves like the
// cloud store and refuses writes that do not follow the stored timestamp.
type SnapshotRepo struct {
	store         *Store
	CompareAndSet bool
}

func NewSnapshotRepo(store *Store) SnapshotRepo {
	return SnapshotRepo{store: store}
}

func (r SnapshotRepo) Load(ctx context.Context, playerID string) (ports.SnapshotRecord, error) {
	defer r.store.rlock(ctx)()
	rec, ok := r.store.snapshots[playerID]
	if !ok {
		return ports.SnapshotRecord{}, ports.ErrNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return rec, nil
}

func (r SnapshotRepo) Save(ctx context.Context, rec ports.SnapshotRecord) error {
	defer r.store.lock(ctx)()
	if cur, ok := r.store.snapshots[rec.PlayerID]; ok && r.CompareAndSet && cur.UpdatedAt != rec.PrevUpdatedAt {
		return ports.ErrConflict
	}
	rec.Data = append([]byte(nil), rec.Data...)
	r.store.snapshots[rec.PlayerID] = rec
	return nil
}

func (r SnapshotRepo) Delete(ctx context.Context, playerID string) error {
	defer r.store.lock(ctx)()
	if _, ok := r.store.snapshots[playerID]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.snapshots, playerID)
	return nil
}
