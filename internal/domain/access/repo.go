package access

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists access keys.
type Repository interface {
	// Create inserts a new key. The key value must be unique.
	Create(ctx context.Context, key *AccessKey) error

	// UpsertByPhone atomically reuses or creates the active key for
	// (summaryID, phone). If an active phone-bound key already exists for
	// the pair, its role is updated to candidate.Role and the stored row
	// is returned with its original key value; otherwise candidate is
	// inserted and returned. Concurrent calls for the same pair converge
	// on one key.
	UpsertByPhone(ctx context.Context, candidate *AccessKey) (*AccessKey, error)

	// GetByKey looks a key up by its value. Returns ErrKeyNotFound when
	// absent.
	GetByKey(ctx context.Context, key string) (*AccessKey, error)

	// Deactivate revokes a key. Returns ErrKeyNotFound when absent.
	Deactivate(ctx context.Context, key string) error

	// ListBySummary returns all keys minted for a summary, newest first.
	ListBySummary(ctx context.Context, summaryID uuid.UUID) ([]*AccessKey, error)
}
