package memory

import (
	"context"

	"tilefarm/internal/app/ports"
)

type CredentialRepo struct {
	store *Store
}

func NewCredentialRepo(store *Store) CredentialRepo {
	return CredentialRepo{store: store}
}

func (r CredentialRepo) Create(ctx context.Context, credential ports.CredentialRecord) error {
	defer r.store.lock(ctx)()
	if _, exists := r.store.credentials[credential.PlayerID]; exists {
		return ports.ErrConflict
	}
	r.store.credentials[credential.PlayerID] = credential
	return nil
}

func (r CredentialRepo) GetByPlayerID(ctx context.Context, playerID string) (ports.CredentialRecord, error) {
	defer r.store.rlock(ctx)()
	cred, ok := r.store.credentials[playerID]
	if !ok {
		return ports.CredentialRecord{}, ports.ErrNotFound
	}
	return cred, nil
}
