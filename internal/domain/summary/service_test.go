package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func newTestSummary(t *testing.T, svc *Service, doctorID string) *PatientSummary {
	t.Helper()
	sum := &PatientSummary{
		DoctorID:      doctorID,
		DischargeText: "Patient admitted with pneumonia, discharged stable.",
		Blocks: []Block{
			{Kind: BlockText, Text: "Rest and fluids for one week."},
		},
	}
	if err := svc.Create(context.Background(), sum); err != nil {
		t.Fatalf("create summary: %v", err)
	}
	return sum
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	sum := newTestSummary(t, svc, "doc-1")

	if sum.Status != StatusDraft {
		t.Errorf("status = %q, want draft", sum.Status)
	}
	if sum.PreferredLocale != "en" {
		t.Errorf("locale = %q, want en", sum.PreferredLocale)
	}
	if sum.ID == uuid.Nil {
		t.Error("expected assigned id")
	}
}

func TestCreateRejectsInvalidBlock(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	err := svc.Create(context.Background(), &PatientSummary{
		DoctorID: "doc-1",
		Blocks:   []Block{{Kind: "bogus"}},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGetOwnedHidesForeignSummaries(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	sum := newTestSummary(t, svc, "doc-1")

	if _, err := svc.GetOwned(context.Background(), sum.ID, "doc-1"); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := svc.GetOwned(context.Background(), sum.ID, "doc-2"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign read = %v, want ErrNotOwner", err)
	}
	if _, err := svc.GetOwned(context.Background(), uuid.New(), "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing read = %v, want ErrNotFound", err)
	}
}

func TestIsOwner(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	sum := newTestSummary(t, svc, "doc-1")

	owns, err := svc.IsOwner(context.Background(), sum.ID, "doc-1")
	if err != nil || !owns {
		t.Errorf("owner: owns=%v err=%v", owns, err)
	}
	owns, err = svc.IsOwner(context.Background(), sum.ID, "doc-2")
	if err != nil || owns {
		t.Errorf("foreign: owns=%v err=%v", owns, err)
	}
	owns, err = svc.IsOwner(context.Background(), uuid.New(), "doc-1")
	if err != nil || owns {
		t.Errorf("missing: owns=%v err=%v", owns, err)
	}
}

func TestUpdateStatusAllowList(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	sum := newTestSummary(t, svc, "doc-1")

	if err := svc.UpdateStatus(context.Background(), sum.ID, "doc-1", StatusShared); err != nil {
		t.Fatalf("valid transition: %v", err)
	}
	got, err := svc.Get(context.Background(), sum.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusShared {
		t.Errorf("status = %q, want shared", got.Status)
	}

	if err := svc.UpdateStatus(context.Background(), sum.ID, "doc-1", "published"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestUpdateBlocksRequiresOwnership(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	sum := newTestSummary(t, svc, "doc-1")
	blocks := []Block{{Kind: BlockTasks, Tasks: []TaskItem{{Text: "Walk 10 minutes daily"}}}}

	if err := svc.UpdateBlocks(context.Background(), sum.ID, "doc-2", blocks); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign update = %v, want ErrNotOwner", err)
	}
	if err := svc.UpdateBlocks(context.Background(), sum.ID, "doc-1", blocks); err != nil {
		t.Fatalf("owner update: %v", err)
	}
	got, _ := svc.Get(context.Background(), sum.ID)
	if len(got.Blocks) != 1 || got.Blocks[0].Kind != BlockTasks {
		t.Errorf("blocks not persisted: %+v", got.Blocks)
	}
}

func TestClaimIsFirstWriterWins(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	sum := newTestSummary(t, svc, "doc-1")

	if err := svc.Claim(context.Background(), sum.ID, "patient-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := svc.Claim(context.Background(), sum.ID, "patient-2"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("second claim = %v, want ErrAlreadyClaimed", err)
	}

	got, _ := svc.Get(context.Background(), sum.ID)
	if got.PatientUserID == nil || *got.PatientUserID != "patient-1" {
		t.Errorf("patient user = %v, want patient-1", got.PatientUserID)
	}
}

func TestSetPatientUserRaceLoser(t *testing.T) {
	// Two claims can pass the service pre-check before either write lands;
	// the repository itself must report the loser as already claimed so the
	// handler can answer 409 rather than 500.
	repo := NewMemoryRepo()
	svc := NewService(repo)
	sum := newTestSummary(t, svc, "doc-1")

	if err := repo.SetPatientUser(context.Background(), sum.ID, "patient-1"); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := repo.SetPatientUser(context.Background(), sum.ID, "patient-2"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("losing write = %v, want ErrAlreadyClaimed", err)
	}
	if err := repo.SetPatientUser(context.Background(), uuid.New(), "patient-3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing summary = %v, want ErrNotFound", err)
	}
}

func TestListByDoctorPagination(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	for i := 0; i < 5; i++ {
		newTestSummary(t, svc, "doc-1")
	}
	newTestSummary(t, svc, "doc-2")

	items, total, err := svc.ListByDoctor(context.Background(), "doc-1", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(items) != 2 {
		t.Errorf("page size = %d, want 2", len(items))
	}
}
