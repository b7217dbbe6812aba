package summary

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested summary does not exist.
var ErrNotFound = errors.New("summary not found")

// Repository defines persistence for patient summaries.
type Repository interface {
	Create(ctx context.Context, s *PatientSummary) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientSummary, error)
	Update(ctx context.Context, s *PatientSummary) error
	UpdateBlocks(ctx context.Context, id uuid.UUID, blocks []Block) error
	UpdateLocale(ctx context.Context, id uuid.UUID, locale string) error
	SetPatientUser(ctx context.Context, id uuid.UUID, patientUserID string) error
	ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*PatientSummary, int, error)
}
