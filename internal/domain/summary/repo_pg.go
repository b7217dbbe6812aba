package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Repository backed by PostgreSQL.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const summaryCols = `id, doctor_id, patient_user_id, blocks, discharge_text, status,
	preferred_locale, created_at, updated_at`

func scanSummary(row pgx.Row) (*PatientSummary, error) {
	var s PatientSummary
	var blocksJSON []byte
	err := row.Scan(&s.ID, &s.DoctorID, &s.PatientUserID, &blocksJSON, &s.DischargeText,
		&s.Status, &s.PreferredLocale, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(blocksJSON) > 0 {
		if err := json.Unmarshal(blocksJSON, &s.Blocks); err != nil {
			return nil, fmt.Errorf("decode blocks: %w", err)
		}
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *PatientSummary) error {
	s.ID = uuid.New()
	blocksJSON, err := json.Marshal(s.Blocks)
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO patient_summaries (id, doctor_id, patient_user_id, blocks,
			discharge_text, status, preferred_locale)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.DoctorID, s.PatientUserID, blocksJSON,
		s.DischargeText, s.Status, s.PreferredLocale)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientSummary, error) {
	return scanSummary(r.pool.QueryRow(ctx,
		`SELECT `+summaryCols+` FROM patient_summaries WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *PatientSummary) error {
	blocksJSON, err := json.Marshal(s.Blocks)
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_summaries SET blocks=$2, discharge_text=$3, status=$4,
			preferred_locale=$5, updated_at=NOW()
		WHERE id = $1`,
		s.ID, blocksJSON, s.DischargeText, s.Status, s.PreferredLocale)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateBlocks(ctx context.Context, id uuid.UUID, blocks []Block) error {
	blocksJSON, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_summaries SET blocks=$2, updated_at=NOW() WHERE id = $1`,
		id, blocksJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateLocale(ctx context.Context, id uuid.UUID, locale string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_summaries SET preferred_locale=$2, updated_at=NOW() WHERE id = $1`,
		id, locale)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetPatientUser(ctx context.Context, id uuid.UUID, patientUserID string) error {
	// Claiming is first-writer-wins: a summary already linked to a patient
	// account is never relinked.
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_summaries SET patient_user_id=$2, updated_at=NOW()
		WHERE id = $1 AND patient_user_id IS NULL`,
		id, patientUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the summary is gone or another claim won the race.
		var existing *string
		err := r.pool.QueryRow(ctx,
			`SELECT patient_user_id FROM patient_summaries WHERE id = $1`, id).Scan(&existing)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadyClaimed
	}
	return nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*PatientSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_summaries WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryCols+` FROM patient_summaries WHERE doctor_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PatientSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
