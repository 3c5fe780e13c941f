package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

// IngestUseCase is the entry point for the discovery collaborator: it stamps
// raw records with the run id, defaults their lifecycle fields and hands
// them to the persistence contract as independent per-row upserts.
type IngestUseCase struct {
	jobs repository.JobRepository
	log  *zerolog.Logger
}

func NewIngestUseCase(jobs repository.JobRepository, log *zerolog.Logger) *IngestUseCase {
	return &IngestUseCase{jobs: jobs, log: log}
}

// RecordDiscovered upserts one discovery batch. Rows fail independently; the
// outcome lists per-row errors without rolling back successful siblings.
func (uc *IngestUseCase) RecordDiscovered(ctx context.Context, runID string, records []*model.JobRecord) (repository.UpsertOutcome, error) {
	if runID == "" {
		return repository.UpsertOutcome{}, fmt.Errorf("%w: empty run id", domain.ErrInvalidArgument)
	}
	now := time.Now()
	for _, r := range records {
		r.RunID = runID
		if r.FirstRunID == "" {
			r.FirstRunID = runID
		}
		if r.Status == "" {
			r.Status = model.JobStatusDiscovered
		}
		if r.ScrapedAt.IsZero() {
			r.ScrapedAt = now
		}
	}
	out, err := uc.jobs.UpsertJobs(ctx, nil, records)
	if err != nil {
		return out, err
	}
	uc.log.Info().Str("run_id", runID).Int("written", out.Written).Int("failed", len(out.Failed)).Msg("discovery batch recorded")
	return out, nil
}
