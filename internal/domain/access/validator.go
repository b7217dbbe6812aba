package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Grant is what a successfully validated key entitles the bearer to.
type Grant struct {
	SummaryID uuid.UUID `json:"summary_id"`
	Role      string    `json:"role"`
	CanWrite  bool      `json:"can_write"`
}

// Validator checks raw key strings against the store.
type Validator struct {
	repo Repository
	now  func() time.Time
}

func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate resolves a raw key and checks it authorizes access to summaryID.
// Every authorization failure returns ErrNotAuthorized; the caller cannot
// distinguish a missing key from a revoked, expired, or mismatched one. Only
// storage faults surface as other errors.
func (v *Validator) Validate(ctx context.Context, rawKey string, summaryID uuid.UUID) (*Grant, error) {
	if rawKey == "" {
		return nil, ErrNotAuthorized
	}
	key, err := v.repo.GetByKey(ctx, rawKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, fmt.Errorf("validate access key: %w", err)
	}
	if !key.IsActive || key.Expired(v.now()) || key.SummaryID != summaryID {
		return nil, ErrNotAuthorized
	}
	return &Grant{
		SummaryID: key.SummaryID,
		Role:      key.Role,
		CanWrite:  key.Role == RolePatient,
	}, nil
}
