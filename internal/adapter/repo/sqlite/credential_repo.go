package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tilefarm/internal/app/ports"
)

type CredentialRepo struct {
	db *DB
}

func NewCredentialRepo(db *DB) CredentialRepo {
	return CredentialRepo{db: db}
}

func (r CredentialRepo) Create(ctx context.Context, credential ports.CredentialRecord) error {
	_, err := r.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO credentials (player_id, key_salt, key_hash, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		credential.PlayerID, credential.KeySalt, credential.KeyHash, credential.Status, credential.CreatedAt.UnixMilli(),
	)
	if isUniqueViolation(err) {
		return ports.ErrConflict
	}
	return err
}

func (r CredentialRepo) GetByPlayerID(ctx context.Context, playerID string) (ports.CredentialRecord, error) {
	var (
		rec     = ports.CredentialRecord{PlayerID: playerID}
		created int64
	)
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT key_salt, key_hash, status, created_at FROM credentials WHERE player_id = ?`, playerID,
	).Scan(&rec.KeySalt, &rec.KeyHash, &rec.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.CredentialRecord{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.CredentialRecord{}, err
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return rec, nil
}
