package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	store *Store
}

func NewJobRepo(store *Store) *jobRepo {
	return &jobRepo{store: store}
}

const jobColumns = `
job_id, title, company, job_url,
location_raw, location_city, location_type, location_state,
quick_apply, description, questions,
experience_level, required_skills, employment_type, salary_range,
ai_confidence_score, needs_review,
good_fit, fit_score, fit_reasoning, priority,
run_id, first_run_id, status, scraped_at, enriched_at, applied, applied_at`

// Same merge semantics as the Postgres upsert: scrape fields are
// last-write-wins, enrichment and applied state stick, first_run_id is
// write-once.
const upsertJobSQL = `
INSERT INTO jobs (` + jobColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (job_id) DO UPDATE SET
  title            = excluded.title,
  company          = excluded.company,
  job_url          = excluded.job_url,
  location_raw     = excluded.location_raw,
  location_city    = COALESCE(NULLIF(excluded.location_city, ''), jobs.location_city),
  location_type    = COALESCE(NULLIF(excluded.location_type, ''), jobs.location_type),
  location_state   = COALESCE(NULLIF(excluded.location_state, ''), jobs.location_state),
  quick_apply      = excluded.quick_apply,
  description      = excluded.description,
  questions        = COALESCE(excluded.questions, jobs.questions),
  experience_level = COALESCE(NULLIF(excluded.experience_level, ''), jobs.experience_level),
  required_skills  = COALESCE(excluded.required_skills, jobs.required_skills),
  employment_type  = COALESCE(NULLIF(excluded.employment_type, ''), jobs.employment_type),
  salary_range     = COALESCE(NULLIF(excluded.salary_range, ''), jobs.salary_range),
  ai_confidence_score = COALESCE(excluded.ai_confidence_score, jobs.ai_confidence_score),
  needs_review     = jobs.needs_review,
  good_fit         = COALESCE(excluded.good_fit, jobs.good_fit),
  fit_score        = COALESCE(excluded.fit_score, jobs.fit_score),
  fit_reasoning    = COALESCE(NULLIF(excluded.fit_reasoning, ''), jobs.fit_reasoning),
  priority         = COALESCE(excluded.priority, jobs.priority),
  run_id           = excluded.run_id,
  first_run_id     = jobs.first_run_id,
  status           = jobs.status,
  scraped_at       = excluded.scraped_at,
  enriched_at      = jobs.enriched_at,
  applied          = jobs.applied,
  applied_at       = jobs.applied_at;`

func (r *jobRepo) UpsertJobs(ctx context.Context, tx repository.Tx, records []*model.JobRecord) (repository.UpsertOutcome, error) {
	ex, err := r.store.executor(tx)
	if err != nil {
		return repository.UpsertOutcome{}, err
	}
	out := repository.UpsertOutcome{Failed: map[string]error{}}
	for _, rec := range records {
		if rec.JobID == "" {
			out.Failed[""] = domain.ErrInvalidArgument
			continue
		}
		questions, err := jsonText(rec.Questions, len(rec.Questions) == 0)
		if err != nil {
			out.Failed[rec.JobID] = err
			continue
		}
		skills, err := jsonText(rec.RequiredSkills, len(rec.RequiredSkills) == 0)
		if err != nil {
			out.Failed[rec.JobID] = err
			continue
		}
		_, err = ex.ExecContext(ctx, upsertJobSQL,
			rec.JobID, rec.Title, rec.Company, rec.JobURL,
			rec.LocationRaw, rec.LocationCity, rec.LocationType, rec.LocationSt,
			rec.QuickApply, rec.Description, questions,
			rec.ExperienceLevel, skills, rec.EmploymentType, rec.SalaryRange,
			nullFloat(rec.AIConfidence), rec.NeedsReview,
			nullBool(rec.GoodFit), nullFloat(rec.FitScore), rec.FitReasoning, nullInt(rec.Priority),
			rec.RunID, rec.FirstRunID, string(rec.Status), rec.ScrapedAt,
			nullTime(rec.EnrichedAt), rec.Applied, nullTime(rec.AppliedAt))
		if err != nil {
			out.Failed[rec.JobID] = err
			continue
		}
		out.Written++
	}
	return out, nil
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, jobID string) (*model.JobRecord, error) {
	ex, err := r.store.executor(tx)
	if err != nil {
		return nil, err
	}
	return scanJob(ex.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, jobID))
}

func (r *jobRepo) FindByRunID(ctx context.Context, tx repository.Tx, runID string) ([]*model.JobRecord, error) {
	return r.findMany(ctx, tx, `SELECT `+jobColumns+` FROM jobs WHERE run_id = ? ORDER BY job_id`, runID)
}

func (r *jobRepo) FindByIDs(ctx context.Context, tx repository.Tx, jobIDs []string) ([]*model.JobRecord, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	// database/sql has no array binding; expand the placeholder list.
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id IN (?` +
		repeatPlaceholder(len(jobIDs)-1) + `) ORDER BY job_id`
	args := make([]interface{}, len(jobIDs))
	for i, id := range jobIDs {
		args[i] = id
	}
	return r.findMany(ctx, tx, q, args...)
}

func (r *jobRepo) FindPendingEnrichment(ctx context.Context, tx repository.Tx, limit int) ([]*model.JobRecord, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE status = ? ORDER BY job_id`
	args := []interface{}{string(model.JobStatusDiscovered)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.findMany(ctx, tx, q, args...)
}

func (r *jobRepo) UpdateEnrichment(ctx context.Context, tx repository.Tx, jobID string, upd repository.EnrichmentUpdate) error {
	ex, err := r.store.executor(tx)
	if err != nil {
		return err
	}
	skills, err := jsonText(upd.RequiredSkills, len(upd.RequiredSkills) == 0)
	if err != nil {
		return err
	}

	const q = `
UPDATE jobs SET
  title            = COALESCE(NULLIF(?, ''), title),
  company          = COALESCE(NULLIF(?, ''), company),
  location_city    = COALESCE(NULLIF(?, ''), location_city),
  location_type    = COALESCE(NULLIF(?, ''), location_type),
  experience_level = ?,
  required_skills  = ?,
  employment_type  = ?,
  salary_range     = ?,
  ai_confidence_score = ?,
  needs_review     = ?,
  good_fit         = ?,
  fit_score        = ?,
  fit_reasoning    = ?,
  priority         = ?,
  status           = ?,
  enriched_at      = ?
WHERE job_id = ?;`

	res, err := ex.ExecContext(ctx, q,
		upd.Title, upd.Company, upd.LocationCity, upd.LocationType,
		upd.ExperienceLevel, skills, upd.EmploymentType, upd.SalaryRange,
		nullFloat(upd.AIConfidence), upd.NeedsReview,
		nullBool(upd.GoodFit), nullFloat(upd.FitScore), upd.FitReasoning, nullInt(upd.Priority),
		string(model.JobStatusEnriched), time.Now(), jobID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *jobRepo) UpdateStatus(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, applied bool) error {
	ex, err := r.store.executor(tx)
	if err != nil {
		return err
	}
	const q = `
UPDATE jobs SET
  status     = ?,
  applied    = CASE WHEN ? THEN 1 ELSE applied END,
  applied_at = CASE WHEN ? THEN ? ELSE applied_at END
WHERE job_id = ?;`

	res, err := ex.ExecContext(ctx, q, string(status), applied, applied, time.Now(), jobID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *jobRepo) UpdateFitStatus(ctx context.Context, tx repository.Tx, jobIDs []string, goodFit bool, fitScore float64) (int, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}
	ex, err := r.store.executor(tx)
	if err != nil {
		return 0, err
	}
	q := `UPDATE jobs SET good_fit = ?, fit_score = ? WHERE job_id IN (?` +
		repeatPlaceholder(len(jobIDs)-1) + `)`
	args := []interface{}{goodFit, fitScore}
	for _, id := range jobIDs {
		args = append(args, id)
	}
	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *jobRepo) FindReadyToApply(ctx context.Context, tx repository.Tx, minScore float64) ([]string, error) {
	ex, err := r.store.executor(tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT job_id FROM jobs
WHERE status = ?
  AND applied = 0
  AND good_fit = 1
  AND (fit_score IS NULL OR fit_score >= ?)
ORDER BY COALESCE(priority, 100), job_id;`

	rows, err := ex.QueryContext(ctx, q, string(model.JobStatusAnswersGenerated), minScore)
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
	var s repository.FitSummary
	ex, err := r.store.executor(tx)
	if err != nil {
		return s, err
	}
	const q = `
SELECT count(*),
       count(CASE WHEN good_fit = 1 THEN 1 END),
       count(CASE WHEN good_fit = 0 THEN 1 END),
       count(CASE WHEN good_fit IS NULL THEN 1 END)
FROM jobs WHERE run_id = ?;`

	row := ex.QueryRowContext(ctx, q, runID)
	if err := row.Scan(&s.Total, &s.GoodFit, &s.BadFit, &s.Unscored); err != nil {
		return s, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return s, nil
}

func (r *jobRepo) findMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.JobRecord, error) {
	ex, err := r.store.executor(tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.QueryContext(ctx, q, args...)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.JobRecord, error) {
	var j model.JobRecord
	var questions, skills sql.NullString
	var status string
	var aiConf, fitScore sql.NullFloat64
	var goodFit sql.NullBool
	var priority sql.NullInt64
	var enrichedAt, appliedAt sql.NullTime

	err := row.Scan(
		&j.JobID, &j.Title, &j.Company, &j.JobURL,
		&j.LocationRaw, &j.LocationCity, &j.LocationType, &j.LocationSt,
		&j.QuickApply, &j.Description, &questions,
		&j.ExperienceLevel, &skills, &j.EmploymentType, &j.SalaryRange,
		&aiConf, &j.NeedsReview,
		&goodFit, &fitScore, &j.FitReasoning, &priority,
		&j.RunID, &j.FirstRunID, &status, &j.ScrapedAt, &enrichedAt, &j.Applied, &appliedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	j.Status = model.JobStatus(status)
	if err := fromJSONText(questions, &j.Questions); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := fromJSONText(skills, &j.RequiredSkills); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	j.AIConfidence = floatPtr(aiConf)
	j.GoodFit = boolPtr(goodFit)
	j.FitScore = floatPtr(fitScore)
	j.Priority = intPtr(priority)
	j.EnrichedAt = timePtr(enrichedAt)
	j.AppliedAt = timePtr(appliedAt)
	return &j, nil
}
