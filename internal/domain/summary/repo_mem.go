package summary

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a thread-safe in-memory Repository for development and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*PatientSummary
}

// NewMemoryRepo creates an empty in-memory repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[uuid.UUID]*PatientSummary)}
}

func copySummary(s *PatientSummary) *PatientSummary {
	cp := *s
	if s.PatientUserID != nil {
		v := *s.PatientUserID
		cp.PatientUserID = &v
	}
	cp.Blocks = make([]Block, len(s.Blocks))
	copy(cp.Blocks, s.Blocks)
	return &cp
}

func (r *MemoryRepo) Create(_ context.Context, s *PatientSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.ID = uuid.New()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.data[s.ID] = copySummary(s)
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*PatientSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySummary(s), nil
}

func (r *MemoryRepo) Update(_ context.Context, s *PatientSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[s.ID]
	if !ok {
		return ErrNotFound
	}
	cp := copySummary(s)
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.data[s.ID] = cp
	return nil
}

func (r *MemoryRepo) UpdateBlocks(_ context.Context, id uuid.UUID, blocks []Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	s.Blocks = make([]Block, len(blocks))
	copy(s.Blocks, blocks)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepo) UpdateLocale(_ context.Context, id uuid.UUID, locale string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	s.PreferredLocale = locale
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepo) SetPatientUser(_ context.Context, id uuid.UUID, patientUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	if s.PatientUserID != nil {
		return ErrAlreadyClaimed
	}
	v := patientUserID
	s.PatientUserID = &v
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepo) ListByDoctor(_ context.Context, doctorID string, limit, offset int) ([]*PatientSummary, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matching []*PatientSummary
	for _, s := range r.data {
		if s.DoctorID == doctorID {
			matching = append(matching, s)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})

	total := len(matching)
	if offset > len(matching) {
		offset = len(matching)
	}
	matching = matching[offset:]
	if limit > 0 && limit < len(matching) {
		matching = matching[:limit]
	}

	result := make([]*PatientSummary, len(matching))
	for i, s := range matching {
		result[i] = copySummary(s)
	}
	return result, total, nil
}
