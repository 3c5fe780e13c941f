package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain"
	"jobpilot/internal/infra/report"
	"jobpilot/internal/usecase"
)

// SweepWorker periodically enriches pending discoveries so jobs ingested
// between manual sweeps do not sit unprocessed.
type SweepWorker struct {
	interval time.Duration
	params   usecase.BatchParams
	enrichUC *usecase.EnrichmentUseCase
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, params usecase.BatchParams, enrichUC *usecase.EnrichmentUseCase, logger *zerolog.Logger) *SweepWorker {
	sweepLog := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval: interval,
		params:   params,
		enrichUC: enrichUC,
		log:      &sweepLog,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			res, err := w.enrichUC.Run(ctx, w.params)
			if err != nil {
				if errors.Is(err, domain.ErrBatchLocked) {
					w.log.Debug().Msg("sweep already in progress")
					continue
				}
				w.log.Error().Err(err).Msg("sweep worker error")
				continue
			}
			report.ObserveSweep(res, time.Since(start))
			if res.Processed > 0 {
				w.log.Info().
					Int("processed", res.Processed).
					Int("enriched", res.Enriched).
					Int("answers_generated", res.AnswersGenerated).
					Msg("background sweep finished")
			}
		}
	}
}
