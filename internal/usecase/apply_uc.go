package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/domain/ports/repository"
)

// ApplyUseCase drives the application phase for one job: it builds the fill
// plan from the latest answer set and the live form snapshot, hands it to
// the form driver, and records the outcome. Submission is at-most-once and
// happens only when the caller passes allowSubmit explicitly.
type ApplyUseCase struct {
	jobs            repository.JobRepository
	answers         repository.AnswerSetRepository
	profiles        repository.ProfileRepository
	driver          adapter.FormDriver
	reporter        adapter.BatchReporter
	reviewThreshold float64
	log             *zerolog.Logger
}

func NewApplyUseCase(
	jobs repository.JobRepository,
	answers repository.AnswerSetRepository,
	profiles repository.ProfileRepository,
	driver adapter.FormDriver,
	reporter adapter.BatchReporter,
	reviewThreshold float64,
	log *zerolog.Logger,
) *ApplyUseCase {
	if reviewThreshold <= 0 {
		reviewThreshold = DefaultReviewThreshold
	}
	return &ApplyUseCase{
		jobs:            jobs,
		answers:         answers,
		profiles:        profiles,
		driver:          driver,
		reporter:        reporter,
		reviewThreshold: reviewThreshold,
		log:             log,
	}
}

// PreparePlan loads the job and its latest answer set, observes the live
// form and returns the deterministic fill plan. It does not mutate anything.
func (uc *ApplyUseCase) PreparePlan(ctx context.Context, jobID string) (*model.FillPlan, error) {
	job, err := uc.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	set, err := uc.answers.FindLatest(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("no answer set for job %s: %w", jobID, err)
	}
	fields, err := uc.driver.ObserveFields(ctx, job.JobID, job.JobURL)
	if err != nil {
		return nil, err
	}
	plan := BuildFillPlan(set, fields, uc.reviewThreshold)
	if plan.NeedsReview {
		uc.log.Warn().Str("job_id", jobID).Float64("confidence", plan.Confidence).
			Msg("plan confidence below review threshold")
	}
	return plan, nil
}

// Apply executes the plan for jobID. With allowSubmit false the driver stops
// at the review step and the job stays at AnswersGenerated. With allowSubmit
// true a confirmed submission moves the job to Submitted, an unconfirmed one
// to Applied, and a driver error to ApplyFailed.
func (uc *ApplyUseCase) Apply(ctx context.Context, jobID string, allowSubmit bool) (model.FillReport, error) {
	plan, err := uc.PreparePlan(ctx, jobID)
	if err != nil {
		return model.FillReport{}, err
	}
	job, err := uc.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return model.FillReport{}, err
	}

	report, err := uc.driver.Execute(ctx, plan, allowSubmit)
	if err != nil {
		if ferr := uc.jobs.UpdateStatus(ctx, nil, jobID, model.JobStatusApplyFailed, false); ferr != nil {
			uc.log.Error().Err(ferr).Str("job_id", jobID).Msg("could not record apply failure")
		}
		uc.reporter.JobFailed(ctx, jobID, "apply", err.Error())
		return report, err
	}

	if !allowSubmit {
		uc.log.Info().Str("job_id", jobID).Int("fields_filled", report.FieldsFilled).Msg("dry run complete, not submitted")
		return report, nil
	}

	next := model.JobStatusApplied
	if report.Submitted {
		next = model.JobStatusSubmitted
	}
	if !job.Status.CanTransition(next, false) {
		return report, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, job.Status, next)
	}
	if err := uc.jobs.UpdateStatus(ctx, nil, jobID, next, true); err != nil {
		return report, err
	}
	if err := uc.answers.MarkUsed(ctx, nil, jobID); err != nil {
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("could not mark answer set used")
	}
	if set, err := uc.answers.FindLatest(ctx, nil, jobID); err == nil && set.ProfileID != "" {
		if err := uc.profiles.RecordUsage(ctx, nil, set.ProfileID); err != nil {
			uc.log.Error().Err(err).Str("profile_id", set.ProfileID).Msg("could not record profile usage")
		}
	}
	uc.reporter.JobTransition(ctx, jobID, job.Status, next)
	return report, nil
}

// ReadyToApply lists jobs with generated answers that passed the fit bar and
// have not been applied to yet.
func (uc *ApplyUseCase) ReadyToApply(ctx context.Context, minFitScore float64) ([]string, error) {
	if minFitScore < 0 || minFitScore > 1 {
		return nil, fmt.Errorf("%w: min fit score %v outside [0,1]", domain.ErrInvalidArgument, minFitScore)
	}
	return uc.jobs.FindReadyToApply(ctx, nil, minFitScore)
}
