package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `
job_id, title, company, job_url,
location_raw, location_city, location_type, location_state,
quick_apply, description, questions,
experience_level, required_skills, employment_type, salary_range,
ai_confidence_score, needs_review,
good_fit, fit_score, fit_reasoning, priority,
run_id, first_run_id, status, scraped_at, enriched_at, applied, applied_at`

// upsertJobSQL is last-write-wins on scrape fields only. Enrichment, fit
// and applied state stick unless the incoming record carries them, and
// first_run_id is write-once.
const upsertJobSQL = `
INSERT INTO jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
ON CONFLICT (job_id) DO UPDATE SET
  title            = EXCLUDED.title,
  company          = EXCLUDED.company,
  job_url          = EXCLUDED.job_url,
  location_raw     = EXCLUDED.location_raw,
  location_city    = COALESCE(NULLIF(EXCLUDED.location_city, ''), jobs.location_city),
  location_type    = COALESCE(NULLIF(EXCLUDED.location_type, ''), jobs.location_type),
  location_state   = COALESCE(NULLIF(EXCLUDED.location_state, ''), jobs.location_state),
  quick_apply      = EXCLUDED.quick_apply,
  description      = EXCLUDED.description,
  questions        = COALESCE(EXCLUDED.questions, jobs.questions),
  experience_level = COALESCE(NULLIF(EXCLUDED.experience_level, ''), jobs.experience_level),
  required_skills  = CASE WHEN EXCLUDED.required_skills IS NULL OR cardinality(EXCLUDED.required_skills) = 0
                          THEN jobs.required_skills ELSE EXCLUDED.required_skills END,
  employment_type  = COALESCE(NULLIF(EXCLUDED.employment_type, ''), jobs.employment_type),
  salary_range     = COALESCE(NULLIF(EXCLUDED.salary_range, ''), jobs.salary_range),
  ai_confidence_score = COALESCE(EXCLUDED.ai_confidence_score, jobs.ai_confidence_score),
  needs_review     = jobs.needs_review,
  good_fit         = COALESCE(EXCLUDED.good_fit, jobs.good_fit),
  fit_score        = COALESCE(EXCLUDED.fit_score, jobs.fit_score),
  fit_reasoning    = COALESCE(NULLIF(EXCLUDED.fit_reasoning, ''), jobs.fit_reasoning),
  priority         = COALESCE(EXCLUDED.priority, jobs.priority),
  run_id           = EXCLUDED.run_id,
  first_run_id     = jobs.first_run_id,
  status           = jobs.status,
  scraped_at       = EXCLUDED.scraped_at,
  enriched_at      = jobs.enriched_at,
  applied          = jobs.applied,
  applied_at       = jobs.applied_at;`

func (r *jobRepo) UpsertJobs(ctx context.Context, tx repository.Tx, records []*model.JobRecord) (repository.UpsertOutcome, error) {
	out := repository.UpsertOutcome{Failed: map[string]error{}}
	for _, rec := range records {
		if rec.JobID == "" {
			out.Failed[""] = domain.ErrInvalidArgument
			continue
		}
		questions, err := marshalQuestions(rec.Questions)
		if err != nil {
			out.Failed[rec.JobID] = err
			continue
		}
		_, err = execSQL(ctx, r.pool, tx, upsertJobSQL,
			rec.JobID, rec.Title, rec.Company, rec.JobURL,
			rec.LocationRaw, rec.LocationCity, rec.LocationType, rec.LocationSt,
			rec.QuickApply, rec.Description, questions,
			rec.ExperienceLevel, rec.RequiredSkills, rec.EmploymentType, rec.SalaryRange,
			rec.AIConfidence, rec.NeedsReview,
			rec.GoodFit, rec.FitScore, rec.FitReasoning, rec.Priority,
			rec.RunID, rec.FirstRunID, rec.Status, rec.ScrapedAt, rec.EnrichedAt, rec.Applied, rec.AppliedAt)
		if err != nil {
			out.Failed[rec.JobID] = err
			continue
		}
		out.Written++
	}
	return out, nil
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, jobID string) (*model.JobRecord, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) FindByRunID(ctx context.Context, tx repository.Tx, runID string) ([]*model.JobRecord, error) {
	return r.findMany(ctx, tx, `SELECT `+jobColumns+` FROM jobs WHERE run_id = $1 ORDER BY job_id`, runID)
}

func (r *jobRepo) FindByIDs(ctx context.Context, tx repository.Tx, jobIDs []string) ([]*model.JobRecord, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	return r.findMany(ctx, tx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = ANY($1) ORDER BY job_id`, jobIDs)
}

func (r *jobRepo) FindPendingEnrichment(ctx context.Context, tx repository.Tx, limit int) ([]*model.JobRecord, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY job_id`
	args := []interface{}{model.JobStatusDiscovered}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.findMany(ctx, tx, q, args...)
}

func (r *jobRepo) UpdateEnrichment(ctx context.Context, tx repository.Tx, jobID string, upd repository.EnrichmentUpdate) error {
	const q = `
UPDATE jobs SET
  title            = COALESCE(NULLIF($2, ''), title),
  company          = COALESCE(NULLIF($3, ''), company),
  location_city    = COALESCE(NULLIF($4, ''), location_city),
  location_type    = COALESCE(NULLIF($5, ''), location_type),
  experience_level = $6,
  required_skills  = $7,
  employment_type  = $8,
  salary_range     = $9,
  ai_confidence_score = $10,
  needs_review     = $11,
  good_fit         = $12,
  fit_score        = $13,
  fit_reasoning    = $14,
  priority         = $15,
  status           = $16,
  enriched_at      = $17
WHERE job_id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, jobID,
		upd.Title, upd.Company, upd.LocationCity, upd.LocationType,
		upd.ExperienceLevel, upd.RequiredSkills, upd.EmploymentType, upd.SalaryRange,
		upd.AIConfidence, upd.NeedsReview,
		upd.GoodFit, upd.FitScore, upd.FitReasoning, upd.Priority,
		model.JobStatusEnriched, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) UpdateStatus(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, applied bool) error {
	const q = `
UPDATE jobs SET
  status     = $2,
  applied    = CASE WHEN $3 THEN TRUE ELSE applied END,
  applied_at = CASE WHEN $3 THEN $4 ELSE applied_at END
WHERE job_id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, jobID, status, applied, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) UpdateFitStatus(ctx context.Context, tx repository.Tx, jobIDs []string, goodFit bool, fitScore float64) (int, error) {
	const q = `UPDATE jobs SET good_fit = $2, fit_score = $3 WHERE job_id = ANY($1);`
	tag, err := execSQL(ctx, r.pool, tx, q, jobIDs, goodFit, fitScore)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *jobRepo) FindReadyToApply(ctx context.Context, tx repository.Tx, minScore float64) ([]string, error) {
	const q = `
SELECT job_id FROM jobs
WHERE status = $1
  AND NOT applied
  AND good_fit IS TRUE
  AND (fit_score IS NULL OR fit_score >= $2)
ORDER BY COALESCE(priority, 100), job_id;`

	rows, err := queryRows(ctx, r.pool, tx, q, model.JobStatusAnswersGenerated, minScore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *jobRepo) FitSummaryByRun(ctx context.Context, tx repository.Tx, runID string) (repository.FitSummary, error) {
	const q = `
SELECT count(*),
       count(*) FILTER (WHERE good_fit IS TRUE),
       count(*) FILTER (WHERE good_fit IS FALSE),
       count(*) FILTER (WHERE good_fit IS NULL)
FROM jobs WHERE run_id = $1;`

	var s repository.FitSummary
	row, err := pickRow(ctx, r.pool, tx, q, runID)
	if err != nil {
		return s, err
	}
	if err := row.Scan(&s.Total, &s.GoodFit, &s.BadFit, &s.Unscored); err != nil {
		return s, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return s, nil
}

func (r *jobRepo) findMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.JobRecord, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*model.JobRecord, error) {
	var j model.JobRecord
	var questions []byte
	var status string
	err := row.Scan(
		&j.JobID, &j.Title, &j.Company, &j.JobURL,
		&j.LocationRaw, &j.LocationCity, &j.LocationType, &j.LocationSt,
		&j.QuickApply, &j.Description, &questions,
		&j.ExperienceLevel, &j.RequiredSkills, &j.EmploymentType, &j.SalaryRange,
		&j.AIConfidence, &j.NeedsReview,
		&j.GoodFit, &j.FitScore, &j.FitReasoning, &j.Priority,
		&j.RunID, &j.FirstRunID, &status, &j.ScrapedAt, &j.EnrichedAt, &j.Applied, &j.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	j.Status = model.JobStatus(status)
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &j.Questions); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &j, nil
}

func marshalQuestions(fields []model.FieldSpec) ([]byte, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	return json.Marshal(fields)
}
