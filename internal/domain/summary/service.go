package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotOwner indicates the caller does not own the summary. Handlers
	// surface it exactly like ErrNotFound so existence is never leaked.
	ErrNotOwner = errors.New("summary not owned by caller")

	// ErrAlreadyClaimed indicates the summary is already linked to a
	// patient account.
	ErrAlreadyClaimed = errors.New("summary already claimed")

	// ErrInvalidInput marks caller mistakes (bad status, malformed block,
	// bad locale) so handlers can return 400 for them and 500 for
	// everything else.
	ErrInvalidInput = errors.New("invalid input")
)

var validStatuses = map[string]bool{
	StatusDraft: true, StatusFinal: true, StatusShared: true, StatusArchived: true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, sum *PatientSummary) error {
	if sum.DoctorID == "" {
		return fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	}
	if sum.Status == "" {
		sum.Status = StatusDraft
	}
	if !validStatuses[sum.Status] {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, sum.Status)
	}
	if sum.PreferredLocale == "" {
		sum.PreferredLocale = "en"
	}
	if err := ValidateBlocks(sum.Blocks); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.repo.Create(ctx, sum)
}

// GetOwned returns the summary only when doctorID owns it; a miss and a
// foreign summary are the same error.
func (s *Service) GetOwned(ctx context.Context, id uuid.UUID, doctorID string) (*PatientSummary, error) {
	sum, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sum.DoctorID != doctorID {
		return nil, ErrNotOwner
	}
	return sum, nil
}

// Get returns a summary without an ownership check. Callers on the patient
// surface must have already authorized through an access grant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PatientSummary, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateBlocks(ctx context.Context, id uuid.UUID, doctorID string, blocks []Block) error {
	if _, err := s.GetOwned(ctx, id, doctorID); err != nil {
		return err
	}
	if err := ValidateBlocks(blocks); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.repo.UpdateBlocks(ctx, id, blocks)
}

// UpdateBlocksAsPatient applies a block edit through a patient-role access
// grant; the authorization decision itself lives with the caller.
func (s *Service) UpdateBlocksAsPatient(ctx context.Context, id uuid.UUID, blocks []Block) error {
	if err := ValidateBlocks(blocks); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.repo.UpdateBlocks(ctx, id, blocks)
}

func (s *Service) UpdateLocale(ctx context.Context, id uuid.UUID, doctorID, locale string) error {
	if _, err := s.GetOwned(ctx, id, doctorID); err != nil {
		return err
	}
	if locale == "" || len(locale) > 35 {
		return fmt.Errorf("%w: bad locale %q", ErrInvalidInput, locale)
	}
	return s.repo.UpdateLocale(ctx, id, locale)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, doctorID, status string) error {
	sum, err := s.GetOwned(ctx, id, doctorID)
	if err != nil {
		return err
	}
	if !validStatuses[status] {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	sum.Status = status
	return s.repo.Update(ctx, sum)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*PatientSummary, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

// IsOwner reports whether doctorID owns the summary. A missing summary and a
// foreign one both report false without error.
func (s *Service) IsOwner(ctx context.Context, id uuid.UUID, doctorID string) (bool, error) {
	_, err := s.GetOwned(ctx, id, doctorID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotOwner) {
		return false, nil
	}
	return false, err
}

// Claim links a patient account to a summary. It is first-writer-wins: once
// a summary has a patient_user_id it is never relinked.
func (s *Service) Claim(ctx context.Context, id uuid.UUID, patientUserID string) error {
	if patientUserID == "" {
		return fmt.Errorf("%w: patient user id is required", ErrInvalidInput)
	}
	sum, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sum.PatientUserID != nil {
		return ErrAlreadyClaimed
	}
	return s.repo.SetPatientUser(ctx, id, patientUserID)
}
