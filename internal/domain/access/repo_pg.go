package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repoPG implements Repository on top of a pgx pool.
type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const keyColumns = `access_key, summary_id, role, phone_number, is_active, expires_at, created_at`

func (r *repoPG) Create(ctx context.Context, key *AccessKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_access_keys (access_key, summary_id, role, phone_number, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.Key, key.SummaryID, key.Role, key.PhoneNumber, key.IsActive, key.ExpiresAt, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert access key: %w", err)
	}
	return nil
}

// UpsertByPhone relies on the partial unique index on (summary_id,
// phone_number) over active phone-bound rows. The conflict action updates the
// role only, so the stored key value survives re-shares, and the RETURNING
// clause hands back whichever row won.
func (r *repoPG) UpsertByPhone(ctx context.Context, candidate *AccessKey) (*AccessKey, error) {
	if candidate.PhoneNumber == nil {
		return nil, errors.New("upsert requires a phone number")
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patient_access_keys (access_key, summary_id, role, phone_number, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (summary_id, phone_number) WHERE phone_number IS NOT NULL AND is_active
		DO UPDATE SET role = EXCLUDED.role
		RETURNING `+keyColumns,
		candidate.Key, candidate.SummaryID, candidate.Role, candidate.PhoneNumber,
		candidate.IsActive, candidate.ExpiresAt, candidate.CreatedAt,
	)
	stored, err := scanKey(row)
	if err != nil {
		return nil, fmt.Errorf("upsert access key: %w", err)
	}
	return stored, nil
}

func (r *repoPG) GetByKey(ctx context.Context, key string) (*AccessKey, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+keyColumns+`
		FROM patient_access_keys
		WHERE access_key = $1`,
		key,
	)
	stored, err := scanKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get access key: %w", err)
	}
	return stored, nil
}

func (r *repoPG) Deactivate(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_access_keys SET is_active = FALSE WHERE access_key = $1`,
		key,
	)
	if err != nil {
		return fmt.Errorf("deactivate access key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (r *repoPG) ListBySummary(ctx context.Context, summaryID uuid.UUID) ([]*AccessKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+keyColumns+`
		FROM patient_access_keys
		WHERE summary_id = $1
		ORDER BY created_at DESC`,
		summaryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list access keys: %w", err)
	}
	defer rows.Close()

	var keys []*AccessKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func scanKey(row pgx.Row) (*AccessKey, error) {
	var k AccessKey
	if err := row.Scan(&k.Key, &k.SummaryID, &k.Role, &k.PhoneNumber, &k.IsActive, &k.ExpiresAt, &k.CreatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}
