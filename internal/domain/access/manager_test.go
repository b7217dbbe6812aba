package access

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func ptr(s string) *string { return &s }

func TestIssueAccessQRMintsFreshKeys(t *testing.T) {
	repo := NewMemoryRepo()
	m := NewManager(repo, "https://app.example.com", 0)
	summaryID := uuid.New()

	first, firstURL, err := m.IssueAccess(context.Background(), IssueRequest{SummaryID: summaryID, Role: RolePatient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, _, err := m.IssueAccess(context.Background(), IssueRequest{SummaryID: summaryID, Role: RolePatient})
	if err != nil {
		t.Fatalf("issue again: %v", err)
	}

	if first.Key == second.Key {
		t.Error("expected distinct keys for repeated QR shares")
	}
	if !strings.HasPrefix(first.Key, "cb_k1_") || len(first.Key) != len("cb_k1_")+32 {
		t.Errorf("unexpected key format: %q", first.Key)
	}
	want := "https://app.example.com/patient/" + summaryID.String() + "?access=" + first.Key
	if firstURL != want {
		t.Errorf("share URL = %q, want %q", firstURL, want)
	}
}

func TestIssueAccessSamePhoneReusesKey(t *testing.T) {
	repo := NewMemoryRepo()
	m := NewManager(repo, "https://app.example.com", 0)
	summaryID := uuid.New()

	first, _, err := m.IssueAccess(context.Background(), IssueRequest{
		SummaryID: summaryID, Role: RolePatient, PhoneNumber: ptr("+15551230001"),
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, _, err := m.IssueAccess(context.Background(), IssueRequest{
		SummaryID: summaryID, Role: RoleCaregiver, PhoneNumber: ptr("+15551230001"),
	})
	if err != nil {
		t.Fatalf("re-issue: %v", err)
	}

	if first.Key != second.Key {
		t.Errorf("expected reused key, got %q then %q", first.Key, second.Key)
	}
	if second.Role != RoleCaregiver {
		t.Errorf("role = %q, want caregiver after re-share", second.Role)
	}

	stored, err := repo.GetByKey(context.Background(), first.Key)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.Role != RoleCaregiver {
		t.Errorf("stored role = %q, want caregiver", stored.Role)
	}
}

func TestIssueAccessDifferentPhonesGetDifferentKeys(t *testing.T) {
	repo := NewMemoryRepo()
	m := NewManager(repo, "https://app.example.com", 0)
	summaryID := uuid.New()

	a, _, err := m.IssueAccess(context.Background(), IssueRequest{
		SummaryID: summaryID, Role: RolePatient, PhoneNumber: ptr("+15551230001"),
	})
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, _, err := m.IssueAccess(context.Background(), IssueRequest{
		SummaryID: summaryID, Role: RolePatient, PhoneNumber: ptr("+15551230002"),
	})
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}
	if a.Key == b.Key {
		t.Error("expected distinct keys for distinct phone numbers")
	}
}

func TestIssueAccessSamePhoneDifferentSummaries(t *testing.T) {
	repo := NewMemoryRepo()
	m := NewManager(repo, "https://app.example.com", 0)

	a, _, err := m.IssueAccess(context.Background(), IssueRequest{
		SummaryID: uuid.New(), Role: RolePatient, PhoneNumber: ptr("+15551230001"),
	})
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, _, err := m.IssueAccess(context.Background(), IssueRequest{
		SummaryID: uuid.New(), Role: RolePatient, PhoneNumber: ptr("+15551230001"),
	})
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}
	if a.Key == b.Key {
		t.Error("keys must be scoped per summary, not per phone alone")
	}
}

func TestIssueAccessRejectsUnknownRole(t *testing.T) {
	m := NewManager(NewMemoryRepo(), "https://app.example.com", 0)
	if _, _, err := m.IssueAccess(context.Background(), IssueRequest{SummaryID: uuid.New(), Role: "admin"}); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestIssueAccessAppliesTTL(t *testing.T) {
	repo := NewMemoryRepo()
	m := NewManager(repo, "https://app.example.com", 30*24*time.Hour)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	key, _, err := m.IssueAccess(context.Background(), IssueRequest{SummaryID: uuid.New(), Role: RolePatient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if key.ExpiresAt == nil {
		t.Fatal("expected expiry when TTL configured")
	}
	if got, want := *key.ExpiresAt, fixed.Add(30*24*time.Hour); !got.Equal(want) {
		t.Errorf("expires at %v, want %v", got, want)
	}
}

func TestRevokedKeyStopsValidating(t *testing.T) {
	repo := NewMemoryRepo()
	m := NewManager(repo, "https://app.example.com", 0)
	summaryID := uuid.New()

	key, _, err := m.IssueAccess(context.Background(), IssueRequest{SummaryID: summaryID, Role: RolePatient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := m.Revoke(context.Background(), key.Key); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	v := NewValidator(repo)
	if _, err := v.Validate(context.Background(), key.Key, summaryID); err != ErrNotAuthorized {
		t.Errorf("validate after revoke = %v, want ErrNotAuthorized", err)
	}
}
