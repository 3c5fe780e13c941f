package repository

import (
	"context"

	"jobpilot/internal/domain/model"
)

// UpsertOutcome reports per-row results of a best-effort batch upsert.
// A failed row never rolls back its siblings.
type UpsertOutcome struct {
	Written int
	Failed  map[string]error // job_id -> cause
}

// EnrichmentUpdate carries the fields a successful enrichment writes onto a
// job in a single update, together with the status transition and its
// timestamp.
type EnrichmentUpdate struct {
	Title           string
	Company         string
	LocationCity    string
	LocationType    string
	ExperienceLevel string
	RequiredSkills  []string
	EmploymentType  string
	SalaryRange     string
	AIConfidence    *float64
	NeedsReview     bool
	GoodFit         *bool
	FitScore        *float64
	FitReasoning    string
	Priority        *int
}

// FitSummary aggregates fit analysis over a selection of jobs.
type FitSummary struct {
	Total    int
	GoodFit  int
	BadFit   int
	Unscored int
}

type JobRepository interface {
	// UpsertJobs writes records as independent per-row upserts keyed by
	// job_id. Re-discovery is last-write-wins on scrape fields but must
	// preserve prior enrichment, fit and applied state unless the incoming
	// record explicitly carries them.
	UpsertJobs(ctx context.Context, tx Tx, records []*model.JobRecord) (UpsertOutcome, error)

	FindByID(ctx context.Context, tx Tx, jobID string) (*model.JobRecord, error)
	FindByRunID(ctx context.Context, tx Tx, runID string) ([]*model.JobRecord, error)
	FindByIDs(ctx context.Context, tx Tx, jobIDs []string) ([]*model.JobRecord, error)

	// FindPendingEnrichment returns jobs still at Discovered, in job_id
	// order, capped at limit when limit > 0.
	FindPendingEnrichment(ctx context.Context, tx Tx, limit int) ([]*model.JobRecord, error)

	// UpdateEnrichment applies upd, advances the status and stamps
	// enriched_at in the same write.
	UpdateEnrichment(ctx context.Context, tx Tx, jobID string, upd EnrichmentUpdate) error

	// UpdateStatus moves the job to status and stamps the matching
	// timestamp. applied is set for terminal application outcomes.
	UpdateStatus(ctx context.Context, tx Tx, jobID string, status model.JobStatus, applied bool) error

	// UpdateFitStatus overrides good_fit/fit_score without touching status.
	UpdateFitStatus(ctx context.Context, tx Tx, jobIDs []string, goodFit bool, fitScore float64) (int, error)

	// FindReadyToApply returns ids of jobs with generated answers, not yet
	// applied, marked good fit with fit_score >= minScore (or unscored).
	FindReadyToApply(ctx context.Context, tx Tx, minScore float64) ([]string, error)

	FitSummaryByRun(ctx context.Context, tx Tx, runID string) (FitSummary, error)
}
