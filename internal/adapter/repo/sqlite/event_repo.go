package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"tilefarm/internal/app/ports"
)

type EventRepo struct {
	db *DB
}

func NewEventRepo(db *DB) EventRepo {
	return EventRepo{db: db}
}

func (r EventRepo) Append(ctx context.Context, playerID string, events []ports.EventRecord) error {
	q := r.db.conn(ctx)
	for _, evt := range events {
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO events (player_id, type, occurred_at, payload) VALUES (?, ?, ?, ?)`,
			playerID, evt.Type, evt.OccurredAt.UnixMilli(), string(payload),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r EventRepo) ListByPlayerID(ctx context.Context, playerID string, limit int) ([]ports.EventRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.conn(ctx).QueryContext(ctx,
		`SELECT type, occurred_at, payload FROM events WHERE player_id = ? ORDER BY id DESC LIMIT ?`, playerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ports.EventRecord, 0)
	for rows.Next() {
		var (
			evt     ports.EventRecord
			at      int64
			payload string
		)
		if err := rows.Scan(&evt.Type, &at, &payload); err != nil {
			return nil, err
		}
		evt.OccurredAt = time.UnixMilli(at).UTC()
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &evt.Payload); err != nil {
				return nil, err
			}
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}
