package ports

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// TxManager runs fn with a context that repositories of the same backend
// pick their transaction from.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SnapshotRecord is one persisted session. Data is the JSON snapshot.
type SnapshotRecord struct {
	PlayerID      string
	Data          []byte
	UpdatedAt     int64
	PrevUpdatedAt int64
}

// SnapshotStore holds one snapshot per player. Stores that support
// compare-and-set refuse a Save whose PrevUpdatedAt does not match the stored
// UpdatedAt with ErrConflict.
type SnapshotStore interface {
	Load(ctx context.Context, playerID string) (SnapshotRecord, error)
	Save(ctx context.Context, rec SnapshotRecord) error
	Delete(ctx context.Context, playerID string) error
}

type CredentialRecord struct {
	PlayerID  string
	KeySalt   []byte
	KeyHash   []byte
	Status    string
	CreatedAt time.Time
}

type CredentialRepository interface {
	Create(ctx context.Context, credential CredentialRecord) error
	GetByPlayerID(ctx context.Context, playerID string) (CredentialRecord, error)
}

type EventRecord struct {
	Type       string
	OccurredAt time.Time
	Payload    map[string]any
}

// EventLog lists newest first.
type EventLog interface {
	Append(ctx context.Context, playerID string, events []EventRecord) error
	ListByPlayerID(ctx context.Context, playerID string, limit int) ([]EventRecord, error)
}
