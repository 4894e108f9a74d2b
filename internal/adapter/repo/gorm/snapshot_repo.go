package gormrepo

import (
	"context"
	"errors"
	"time"

	"tilefarm/internal/adapter/repo/gorm/model"
	"tilefarm/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRepo is the cloud copy of each farm. A save lands only when its
// PrevUpdatedAt equals the stored UpdatedAt; anything else is a stale write
// from another device and fails with ErrConflict.
type SnapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepo(db *gorm.DB) SnapshotRepo {
	return SnapshotRepo{db: db}
}

func (r SnapshotRepo) Load(ctx context.Context, playerID string) (ports.SnapshotRecord, error) {
	var row model.PlayerSnapshot
	if err := getDBFromCtx(ctx, r.db).Where(&model.PlayerSnapshot{PlayerID: playerID}).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.SnapshotRecord{}, ports.ErrNotFound
		}
		return ports.SnapshotRecord{}, err
	}
	return ports.SnapshotRecord{
		PlayerID:      row.PlayerID,
		Data:          []byte(row.Data),
		UpdatedAt:     row.UpdatedAt,
		PrevUpdatedAt: row.PrevUpdatedAt,
	}, nil
}

func (r SnapshotRepo) Save(ctx context.Context, rec ports.SnapshotRecord) error {
	db := getDBFromCtx(ctx, r.db)
	row := model.PlayerSnapshot{
		PlayerID:      rec.PlayerID,
		Data:          string(rec.Data),
		UpdatedAt:     rec.UpdatedAt,
		PrevUpdatedAt: rec.PrevUpdatedAt,
		SavedAt:       time.Now().UTC(),
		SizeBytes:     int32(len(rec.Data)),
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	res = db.Model(&model.PlayerSnapshot{}).
		Where("player_id = ? AND updated_at = ?", rec.PlayerID, rec.PrevUpdatedAt).
		Updates(map[string]any{
			"data":            row.Data,
			"updated_at":      row.UpdatedAt,
			"prev_updated_at": row.PrevUpdatedAt,
			"saved_at":        row.SavedAt,
			"size_bytes":      row.SizeBytes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r SnapshotRepo) Delete(ctx context.Context, playerID string) error {
	res := getDBFromCtx(ctx, r.db).Where("player_id = ?", playerID).Delete(&model.PlayerSnapshot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}
