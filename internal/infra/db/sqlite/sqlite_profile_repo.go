package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct {
	store *Store
}

func NewProfileRepo(store *Store) *profileRepo {
	return &profileRepo{store: store}
}

const profileColumns = `
id, name, full_name, email, phone, location, title, summary, skills,
work_authorization, salary_expectation, start_availability,
source_file, source_type, version, is_active, applications, created_at, updated_at`

func (r *profileRepo) Save(ctx context.Context, tx repository.Tx, p *model.CandidateProfile) error {
	ex, err := r.store.executor(tx)
	if err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()
	skills, err := jsonText(p.Skills, len(p.Skills) == 0)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO candidate_profiles (` + profileColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  name               = excluded.name,
  full_name          = excluded.full_name,
  email              = excluded.email,
  phone              = excluded.phone,
  location           = excluded.location,
  title              = excluded.title,
  summary            = excluded.summary,
  skills             = excluded.skills,
  work_authorization = excluded.work_authorization,
  salary_expectation = excluded.salary_expectation,
  start_availability = excluded.start_availability,
  source_file        = excluded.source_file,
  source_type        = excluded.source_type,
  version            = excluded.version,
  updated_at         = excluded.updated_at;`

	_, err = ex.ExecContext(ctx, q,
		p.ID, p.Name, p.FullName, p.Email, p.Phone, p.Location, p.Title, p.Summary, skills,
		p.WorkAuth, p.SalaryExp, p.StartAvail,
		p.SourceFile, p.SourceType, p.Version, p.IsActive, p.Applications, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *profileRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CandidateProfile, error) {
	ex, err := r.store.executor(tx)
	if err != nil {
		return nil, err
	}
	return scanProfile(ex.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM candidate_profiles WHERE id = ?`, id))
}

func (r *profileRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CandidateProfile, error) {
	ex, err := r.store.executor(tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.QueryContext(ctx, `SELECT `+profileColumns+` FROM candidate_profiles ORDER BY created_at`)
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
	ex, err := r.store.executor(tx)
	if err != nil {
		return nil, err
	}
	p, err := scanProfile(ex.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM candidate_profiles WHERE is_active = 1 LIMIT 1`))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActiveProfile
	}
	return p, err
}

// Activate commits deactivate-all plus activate-one as one transaction.
func (r *profileRepo) Activate(ctx context.Context, id string) error {
	return r.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ex, err := r.store.executor(tx)
		if err != nil {
			return err
		}
		if _, err := ex.ExecContext(ctx,
			`UPDATE candidate_profiles SET is_active = 0, updated_at = ? WHERE is_active = 1`, time.Now()); err != nil {
			return err
		}
		res, err := ex.ExecContext(ctx,
			`UPDATE candidate_profiles SET is_active = 1, updated_at = ? WHERE id = ?`, time.Now(), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: profile %s does not exist", domain.ErrConstraint, id)
		}
		return nil
	})
}

func (r *profileRepo) RecordUsage(ctx context.Context, tx repository.Tx, id string) error {
	ex, err := r.store.executor(tx)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx,
		`UPDATE candidate_profiles SET applications = applications + 1, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanProfile(row rowScanner) (*model.CandidateProfile, error) {
	var p model.CandidateProfile
	var skills sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.FullName, &p.Email, &p.Phone, &p.Location, &p.Title, &p.Summary, &skills,
		&p.WorkAuth, &p.SalaryExp, &p.StartAvail,
		&p.SourceFile, &p.SourceType, &p.Version, &p.IsActive, &p.Applications, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := fromJSONText(skills, &p.Skills); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return &p, nil
}
