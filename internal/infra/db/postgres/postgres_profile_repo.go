package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewProfileRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *profileRepo {
	return &profileRepo{pool: pool, tm: tm}
}

const profileColumns = `
id, name, full_name, email, phone, location, title, summary, skills,
work_authorization, salary_expectation, start_availability,
source_file, source_type, version, is_active, applications, created_at, updated_at`

func (r *profileRepo) Save(ctx context.Context, tx repository.Tx, p *model.CandidateProfile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()

	const q = `
INSERT INTO candidate_profiles (` + profileColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO UPDATE SET
  name               = EXCLUDED.name,
  full_name          = EXCLUDED.full_name,
  email              = EXCLUDED.email,
  phone              = EXCLUDED.phone,
  location           = EXCLUDED.location,
  title              = EXCLUDED.title,
  summary            = EXCLUDED.summary,
  skills             = EXCLUDED.skills,
  work_authorization = EXCLUDED.work_authorization,
  salary_expectation = EXCLUDED.salary_expectation,
  start_availability = EXCLUDED.start_availability,
  source_file        = EXCLUDED.source_file,
  source_type        = EXCLUDED.source_type,
  version            = EXCLUDED.version,
  updated_at         = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Name, p.FullName, p.Email, p.Phone, p.Location, p.Title, p.Summary, p.Skills,
		p.WorkAuth, p.SalaryExp, p.StartAvail,
		p.SourceFile, p.SourceType, p.Version, p.IsActive, p.Applications, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *profileRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CandidateProfile, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+profileColumns+` FROM candidate_profiles WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanProfile(row)
}

func (r *profileRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CandidateProfile, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+profileColumns+` FROM candidate_profiles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.CandidateProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *profileRepo) FindActive(ctx context.Context, tx repository.Tx) (*model.CandidateProfile, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+profileColumns+` FROM candidate_profiles WHERE is_active LIMIT 1`)
	if err != nil {
		return nil, err
	}
	p, err := scanProfile(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActiveProfile
	}
	return p, err
}

// Activate runs deactivate-all plus activate-one in a single transaction.
// The partial unique index on is_active keeps concurrent activations from
// ever committing two active rows.
func (r *profileRepo) Activate(ctx context.Context, id string) error {
	return r.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := execSQL(ctx, r.pool, tx,
			`UPDATE candidate_profiles SET is_active = FALSE, updated_at = $1 WHERE is_active`, time.Now()); err != nil {
			return err
		}
		tag, err := execSQL(ctx, r.pool, tx,
			`UPDATE candidate_profiles SET is_active = TRUE, updated_at = $1 WHERE id = $2`, time.Now(), id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: profile %s does not exist", domain.ErrConstraint, id)
		}
		return nil
	})
}

func (r *profileRepo) RecordUsage(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE candidate_profiles SET applications = applications + 1, updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*model.CandidateProfile, error) {
	var p model.CandidateProfile
	err := row.Scan(
		&p.ID, &p.Name, &p.FullName, &p.Email, &p.Phone, &p.Location, &p.Title, &p.Summary, &p.Skills,
		&p.WorkAuth, &p.SalaryExp, &p.StartAvail,
		&p.SourceFile, &p.SourceType, &p.Version, &p.IsActive, &p.Applications, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return &p, nil
}
