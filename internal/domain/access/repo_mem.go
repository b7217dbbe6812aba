package access

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repository for tests and local development.
type MemoryRepo struct {
	mu   sync.RWMutex
	keys map[string]*AccessKey
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{keys: make(map[string]*AccessKey)}
}

func (r *MemoryRepo) Create(ctx context.Context, key *AccessKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key.Key]; ok {
		return errors.New("duplicate access key")
	}
	r.keys[key.Key] = copyKey(key)
	return nil
}

func (r *MemoryRepo) UpsertByPhone(ctx context.Context, candidate *AccessKey) (*AccessKey, error) {
	if candidate.PhoneNumber == nil {
		return nil, errors.New("upsert requires a phone number")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.IsActive && k.PhoneNumber != nil &&
			k.SummaryID == candidate.SummaryID && *k.PhoneNumber == *candidate.PhoneNumber {
			k.Role = candidate.Role
			return copyKey(k), nil
		}
	}
	r.keys[candidate.Key] = copyKey(candidate)
	return copyKey(candidate), nil
}

func (r *MemoryRepo) GetByKey(ctx context.Context, key string) (*AccessKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(k), nil
}

func (r *MemoryRepo) Deactivate(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[key]
	if !ok {
		return ErrKeyNotFound
	}
	k.IsActive = false
	return nil
}

func (r *MemoryRepo) ListBySummary(ctx context.Context, summaryID uuid.UUID) ([]*AccessKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []*AccessKey
	for _, k := range r.keys {
		if k.SummaryID == summaryID {
			keys = append(keys, copyKey(k))
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

func copyKey(k *AccessKey) *AccessKey {
	out := *k
	if k.PhoneNumber != nil {
		p := *k.PhoneNumber
		out.PhoneNumber = &p
	}
	if k.ExpiresAt != nil {
		t := *k.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}
