package access

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Manager mints and shares access keys. BaseURL is the public origin patients
// open links against; ttl of zero means keys never expire.
type Manager struct {
	repo    Repository
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewManager(repo Repository, baseURL string, ttl time.Duration) *Manager {
	return &Manager{repo: repo, baseURL: baseURL, ttl: ttl, now: time.Now}
}

// IssueAccess returns a key granting role on the summary and the URL to share.
//
// With a phone number the key is idempotent per (summary, phone): re-sharing
// to the same number reuses the existing active key, updating only its role.
// Without a phone number (the QR path) a fresh key is minted every call.
func (m *Manager) IssueAccess(ctx context.Context, req IssueRequest) (*AccessKey, string, error) {
	if !ValidRole(req.Role) {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}

	candidate, err := m.newKey(req)
	if err != nil {
		return nil, "", fmt.Errorf("generate access key: %w", err)
	}

	var key *AccessKey
	if req.PhoneNumber != nil {
		key, err = m.repo.UpsertByPhone(ctx, candidate)
	} else {
		key = candidate
		err = m.repo.Create(ctx, candidate)
	}
	if err != nil {
		return nil, "", err
	}
	return key, m.ShareURL(key), nil
}

// Revoke deactivates a key so it no longer validates.
func (m *Manager) Revoke(ctx context.Context, key string) error {
	return m.repo.Deactivate(ctx, key)
}

// ShareURL builds the patient-facing link for a key:
// {base}/patient/{summaryID}?access={key}.
func (m *Manager) ShareURL(key *AccessKey) string {
	q := url.Values{"access": {key.Key}}
	return fmt.Sprintf("%s/patient/%s?%s", m.baseURL, key.SummaryID, q.Encode())
}

// IssueRequest describes the key to mint.
type IssueRequest struct {
	SummaryID   uuid.UUID
	Role        string
	PhoneNumber *string
}

func (m *Manager) newKey(req IssueRequest) (*AccessKey, error) {
	value, err := generateKey()
	if err != nil {
		return nil, err
	}
	k := &AccessKey{
		Key:         value,
		SummaryID:   req.SummaryID,
		Role:        req.Role,
		PhoneNumber: req.PhoneNumber,
		IsActive:    true,
		CreatedAt:   m.now().UTC(),
	}
	if m.ttl > 0 {
		exp := k.CreatedAt.Add(m.ttl)
		k.ExpiresAt = &exp
	}
	return k, nil
}
