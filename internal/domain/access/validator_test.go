package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func seedKey(t *testing.T, repo *MemoryRepo, k *AccessKey) *AccessKey {
	t.Helper()
	if k.Key == "" {
		value, err := generateKey()
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		k.Key = value
	}
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now().UTC()
	}
	if err := repo.Create(context.Background(), k); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	return k
}

func TestValidateGrantsPatientWrite(t *testing.T) {
	repo := NewMemoryRepo()
	summaryID := uuid.New()
	k := seedKey(t, repo, &AccessKey{SummaryID: summaryID, Role: RolePatient, IsActive: true})

	grant, err := NewValidator(repo).Validate(context.Background(), k.Key, summaryID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if grant.SummaryID != summaryID {
		t.Errorf("grant summary = %s, want %s", grant.SummaryID, summaryID)
	}
	if grant.Role != RolePatient || !grant.CanWrite {
		t.Errorf("grant = %+v, want patient with write", grant)
	}
}

func TestValidateCaregiverIsReadOnly(t *testing.T) {
	repo := NewMemoryRepo()
	summaryID := uuid.New()
	k := seedKey(t, repo, &AccessKey{SummaryID: summaryID, Role: RoleCaregiver, IsActive: true})

	grant, err := NewValidator(repo).Validate(context.Background(), k.Key, summaryID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if grant.Role != RoleCaregiver || grant.CanWrite {
		t.Errorf("grant = %+v, want read-only caregiver", grant)
	}
}

func TestValidateFailuresAreIndistinguishable(t *testing.T) {
	repo := NewMemoryRepo()
	summaryID := uuid.New()
	otherSummary := uuid.New()
	past := time.Now().Add(-time.Hour)

	active := seedKey(t, repo, &AccessKey{SummaryID: summaryID, Role: RolePatient, IsActive: true})
	inactive := seedKey(t, repo, &AccessKey{SummaryID: summaryID, Role: RolePatient, IsActive: false})
	expired := seedKey(t, repo, &AccessKey{SummaryID: summaryID, Role: RolePatient, IsActive: true, ExpiresAt: &past})

	v := NewValidator(repo)
	cases := []struct {
		name      string
		key       string
		summaryID uuid.UUID
	}{
		{"empty key", "", summaryID},
		{"unknown key", "cb_k1_00000000000000000000000000000000", summaryID},
		{"wrong summary", active.Key, otherSummary},
		{"inactive key", inactive.Key, summaryID},
		{"expired key", expired.Key, summaryID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tc.key, tc.summaryID)
			if !errors.Is(err, ErrNotAuthorized) {
				t.Errorf("got %v, want ErrNotAuthorized", err)
			}
		})
	}
}

func TestValidateNoExpiryWhenUnset(t *testing.T) {
	repo := NewMemoryRepo()
	summaryID := uuid.New()
	old := time.Now().Add(-365 * 24 * time.Hour)
	k := seedKey(t, repo, &AccessKey{SummaryID: summaryID, Role: RolePatient, IsActive: true, CreatedAt: old})

	if _, err := NewValidator(repo).Validate(context.Background(), k.Key, summaryID); err != nil {
		t.Errorf("key without expiry should stay valid: %v", err)
	}
}
