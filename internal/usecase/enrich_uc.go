package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/domain/ports/repository"
	"jobpilot/internal/infra/worker"
)

// BatchLocker guards a run against concurrent sweeps. Satisfied by the redis
// locker; nil disables locking.
type BatchLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// BatchParams selects and configures one enrichment sweep.
// Selection precedence: JobIDs > RunID > all pending. Limit caps the batch
// after selection, applied in job_id order.
type BatchParams struct {
	RunID                   string   `json:"run_id,omitempty"`
	JobIDs                  []string `json:"job_ids,omitempty"`
	Limit                   int      `json:"limit,omitempty"`
	EnrichJobs              bool     `json:"enrich_jobs"`
	GenerateAnswers         bool     `json:"generate_answers"`
	ForceReprocess          bool     `json:"force_reprocess"`
	ForceAnswerRegeneration bool     `json:"force_answer_regeneration"`
	MaxParallel             int      `json:"max_parallel,omitempty"`
}

type SkipEntry struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

type FailEntry struct {
	JobID  string `json:"job_id"`
	Stage  string `json:"stage"` // enrichment | answers
	Reason string `json:"reason"`
}

// BatchResult is the aggregate report of one sweep. Entries appear in
// selection order regardless of completion order. The sweep is best-effort:
// partial failure never raises, it is recorded here.
type BatchResult struct {
	RunID            string      `json:"run_id,omitempty"`
	Processed        int         `json:"processed"`
	Enriched         int         `json:"enriched"`
	AnswersGenerated int         `json:"answers_generated"`
	Skipped          []SkipEntry `json:"skipped"`
	Failed           []FailEntry `json:"failed"`
	ProcessedJobIDs  []string    `json:"processed_job_ids"`
	ProfileID        string      `json:"profile_id"`
	Settings         BatchParams `json:"settings"`
}

// Skip reasons surfaced in BatchResult.
const (
	SkipNotFound        = "not_found"
	SkipNotQuickApply   = "not_quick_apply"
	SkipNoQuestions     = "no_questions"
	SkipAlreadyEnriched = "already_enriched"
	SkipHasAnswers      = "already_has_answers"
)

// EnrichmentUseCase is the phase-2 batch controller: it selects candidate
// jobs, drives enrichment and answer generation through the AI port, and
// aggregates a per-job report. Jobs advance independently; re-invoking with
// the same parameters skips jobs already past the relevant phase.
type EnrichmentUseCase struct {
	jobs     repository.JobRepository
	answers  repository.AnswerSetRepository
	profiles repository.ProfileRepository
	ai       adapter.AIEnrichmentAdapter
	reporter adapter.BatchReporter
	locker   BatchLocker
	lockTTL  time.Duration
	log      *zerolog.Logger
}

func NewEnrichmentUseCase(
	jobs repository.JobRepository,
	answers repository.AnswerSetRepository,
	profiles repository.ProfileRepository,
	ai adapter.AIEnrichmentAdapter,
	reporter adapter.BatchReporter,
	locker BatchLocker,
	log *zerolog.Logger,
) *EnrichmentUseCase {
	return &EnrichmentUseCase{
		jobs:     jobs,
		answers:  answers,
		profiles: profiles,
		ai:       ai,
		reporter: reporter,
		locker:   locker,
		lockTTL:  10 * time.Minute,
		log:      log,
	}
}

// SetLockTTL overrides the default sweep lock TTL.
func (uc *EnrichmentUseCase) SetLockTTL(d time.Duration) {
	if d > 0 {
		uc.lockTTL = d
	}
}

// jobOutcome is the per-job record collected during the parallel phase and
// folded into the report in selection order afterwards.
type jobOutcome struct {
	attempted bool
	enriched  bool
	generated bool
	skips     []SkipEntry
	fails     []FailEntry
}

// Run executes one sweep. It fails as a whole only when no active profile
// exists, the selection parameters are invalid, or another sweep holds the
// run's lock; everything else is reported per job.
func (uc *EnrichmentUseCase) Run(ctx context.Context, params BatchParams) (*BatchResult, error) {
	res := &BatchResult{
		RunID:    params.RunID,
		Skipped:  []SkipEntry{},
		Failed:   []FailEntry{},
		Settings: params,
	}
	if !params.EnrichJobs && !params.GenerateAnswers {
		return res, nil
	}
	if params.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", domain.ErrInvalidArgument)
	}

	profile, err := uc.profiles.FindActive(ctx, nil)
	if err != nil {
		return nil, err
	}
	res.ProfileID = profile.ID

	if uc.locker != nil && params.RunID != "" {
		key := "sweep:" + params.RunID
		token, err := uc.locker.TryLock(ctx, key, uc.lockTTL)
		if err != nil {
			return nil, domain.ErrBatchLocked
		}
		defer func() { _ = uc.locker.Unlock(context.Background(), key, token) }()
	}

	candidates, err := uc.selectCandidates(ctx, params, res)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		uc.reporter.BatchComplete(ctx, "no jobs to process")
		return res, nil
	}

	outcomes := make([]jobOutcome, len(candidates))
	parallel := params.MaxParallel
	if parallel <= 0 {
		parallel = 1
	}
	worker.ForEach(ctx, parallel, len(candidates), func(ctx context.Context, i int) {
		outcomes[i] = uc.processJob(ctx, candidates[i], profile, params)
	})

	for i, job := range candidates {
		o := outcomes[i]
		res.Skipped = append(res.Skipped, o.skips...)
		res.Failed = append(res.Failed, o.fails...)
		if o.attempted {
			res.Processed++
			res.ProcessedJobIDs = append(res.ProcessedJobIDs, job.JobID)
		}
		if o.enriched {
			res.Enriched++
		}
		if o.generated {
			res.AnswersGenerated++
		}
	}

	summary := fmt.Sprintf("processed %d jobs (%d enriched, %d answer sets generated, %d skipped, %d failed)",
		res.Processed, res.Enriched, res.AnswersGenerated, len(res.Skipped), len(res.Failed))
	uc.reporter.BatchComplete(ctx, summary)
	uc.log.Info().Str("run_id", params.RunID).Msg(summary)
	return res, nil
}

func (uc *EnrichmentUseCase) selectCandidates(ctx context.Context, params BatchParams, res *BatchResult) ([]*model.JobRecord, error) {
	var candidates []*model.JobRecord
	switch {
	case len(params.JobIDs) > 0:
		for _, id := range params.JobIDs {
			job, err := uc.jobs.FindByID(ctx, nil, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					res.Skipped = append(res.Skipped, SkipEntry{JobID: id, Reason: SkipNotFound})
					continue
				}
				return nil, err
			}
			candidates = append(candidates, job)
		}
	case params.RunID != "":
		jobs, err := uc.jobs.FindByRunID(ctx, nil, params.RunID)
		if err != nil {
			return nil, err
		}
		candidates = jobs
	default:
		jobs, err := uc.jobs.FindPendingEnrichment(ctx, nil, 0)
		if err != nil {
			return nil, err
		}
		candidates = jobs
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].JobID < candidates[j].JobID })
	if params.Limit > 0 && len(candidates) > params.Limit {
		candidates = candidates[:params.Limit]
	}
	return candidates, nil
}

func (uc *EnrichmentUseCase) processJob(ctx context.Context, job *model.JobRecord, profile *model.CandidateProfile, params BatchParams) jobOutcome {
	var o jobOutcome

	if !job.QuickApply {
		o.skips = append(o.skips, SkipEntry{JobID: job.JobID, Reason: SkipNotQuickApply})
		return o
	}
	if params.GenerateAnswers && len(job.Questions) == 0 && !params.EnrichJobs {
		o.skips = append(o.skips, SkipEntry{JobID: job.JobID, Reason: SkipNoQuestions})
		return o
	}

	var latest *model.AnswerSet
	if params.GenerateAnswers {
		set, err := uc.answers.FindLatest(ctx, nil, job.JobID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			o.fails = append(o.fails, FailEntry{JobID: job.JobID, Stage: "answers", Reason: err.Error()})
			return o
		}
		latest = set
	}

	shouldEnrich := params.EnrichJobs && (params.ForceReprocess ||
		!job.Status.AtLeast(model.JobStatusEnriched) ||
		job.EnrichedAt == nil ||
		job.EnrichedAt.Before(job.ScrapedAt))

	hasQuestions := len(job.Questions) > 0
	shouldGenerate := params.GenerateAnswers && hasQuestions && (params.ForceAnswerRegeneration ||
		latest == nil ||
		latest.CreatedAt.Before(job.ScrapedAt))

	if !shouldEnrich && !shouldGenerate {
		reason := SkipAlreadyEnriched
		if params.GenerateAnswers && latest != nil {
			reason = SkipHasAnswers
		}
		o.skips = append(o.skips, SkipEntry{JobID: job.JobID, Reason: reason})
		return o
	}

	if shouldEnrich {
		o.attempted = true
		if err := uc.enrichOne(ctx, job, profile); err != nil {
			o.fails = append(o.fails, FailEntry{JobID: job.JobID, Stage: "enrichment", Reason: err.Error()})
			uc.reporter.JobFailed(ctx, job.JobID, "enrichment", err.Error())
		} else {
			o.enriched = true
		}
	}

	if shouldGenerate {
		o.attempted = true
		if err := uc.generateOne(ctx, job, profile); err != nil {
			o.fails = append(o.fails, FailEntry{JobID: job.JobID, Stage: "answers", Reason: err.Error()})
			uc.reporter.JobFailed(ctx, job.JobID, "answers", err.Error())
		} else {
			o.generated = true
		}
	}
	return o
}

func (uc *EnrichmentUseCase) enrichOne(ctx context.Context, job *model.JobRecord, profile *model.CandidateProfile) error {
	result, _, err := uc.ai.EnrichJob(ctx, job, profile)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEnrichment, err)
	}

	goodFit := result.GoodFit
	fitScore := result.FitScore
	conf := result.Confidence
	priority := model.PriorityFromFitScore(fitScore)
	// Low-confidence enrichment is flagged for review even when the model
	// itself did not ask for it.
	needsReview := result.NeedsReview || conf < DefaultReviewThreshold
	upd := repository.EnrichmentUpdate{
		Title:           result.Title,
		Company:         result.Company,
		LocationCity:    result.LocationCity,
		LocationType:    result.LocationType,
		ExperienceLevel: result.ExperienceLevel,
		RequiredSkills:  result.RequiredSkills,
		EmploymentType:  result.EmploymentType,
		SalaryRange:     result.SalaryRange,
		AIConfidence:    &conf,
		NeedsReview:     needsReview,
		GoodFit:         &goodFit,
		FitScore:        &fitScore,
		FitReasoning:    result.FitReasoning,
		Priority:        &priority,
	}
	if err := uc.jobs.UpdateEnrichment(ctx, nil, job.JobID, upd); err != nil {
		return err
	}

	from := job.Status
	now := time.Now()
	job.Status = model.JobStatusEnriched
	job.EnrichedAt = &now
	job.GoodFit = &goodFit
	job.FitScore = &fitScore
	job.FitReasoning = result.FitReasoning
	uc.reporter.JobTransition(ctx, job.JobID, from, model.JobStatusEnriched)
	return nil
}

func (uc *EnrichmentUseCase) generateOne(ctx context.Context, job *model.JobRecord, profile *model.CandidateProfile) error {
	gen, usage, err := uc.ai.GenerateAnswers(ctx, job.Questions, job, profile)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAnswerGeneration, err)
	}
	if len(gen.Answers) == 0 {
		return fmt.Errorf("%w: empty response", domain.ErrAnswerGeneration)
	}

	set := &model.AnswerSet{
		ID:           uuid.NewString(),
		JobID:        job.JobID,
		ProfileID:    profile.ID,
		Answers:      gen.Answers,
		FieldScores:  gen.FieldScores,
		Confidence:   gen.Confidence,
		Unanswered:   gen.Unanswered,
		ModelUsed:    uc.ai.ModelName(),
		PromptTokens: usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		CreatedAt:    time.Now(),
	}
	if err := uc.answers.Append(ctx, nil, set); err != nil {
		return err
	}
	if err := uc.jobs.UpdateStatus(ctx, nil, job.JobID, model.JobStatusAnswersGenerated, false); err != nil {
		return err
	}
	from := job.Status
	job.Status = model.JobStatusAnswersGenerated
	uc.reporter.JobTransition(ctx, job.JobID, from, model.JobStatusAnswersGenerated)
	return nil
}

// Default fit scores applied by UpdateFitStatus when none is given.
const (
	defaultGoodFitScore = 0.8
	defaultBadFitScore  = 0.3
)

// UpdateFitStatus is the manual operator override: it writes good_fit and
// fit_score directly onto the jobs without touching their status.
func (uc *EnrichmentUseCase) UpdateFitStatus(ctx context.Context, jobIDs []string, markGoodFit bool, fitScore *float64) (int, error) {
	if len(jobIDs) == 0 {
		return 0, fmt.Errorf("%w: no job ids", domain.ErrInvalidArgument)
	}
	score := defaultBadFitScore
	if markGoodFit {
		score = defaultGoodFitScore
	}
	if fitScore != nil {
		score = *fitScore
	}
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: fit_score %v outside [0,1]", domain.ErrInvalidArgument, score)
	}
	n, err := uc.jobs.UpdateFitStatus(ctx, nil, jobIDs, markGoodFit, score)
	if err != nil {
		return 0, err
	}
	uc.log.Info().Int("updated", n).Bool("good_fit", markGoodFit).Float64("fit_score", score).Msg("fit status override applied")
	return n, nil
}
