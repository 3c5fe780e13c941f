package report

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/infra/metrics"
	"jobpilot/internal/usecase"
)

var _ adapter.BatchReporter = (*Reporter)(nil)

// Reporter fans pipeline events out to structured logs and Prometheus.
type Reporter struct {
	log *zerolog.Logger
}

func New(log *zerolog.Logger) *Reporter {
	return &Reporter{log: log}
}

func (r *Reporter) JobTransition(ctx context.Context, jobID string, from, to model.JobStatus) {
	metrics.IncTransition(string(to))
	r.log.Info().
		Str("job_id", jobID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("job transition")
}

func (r *Reporter) JobFailed(ctx context.Context, jobID, stage, reason string) {
	metrics.IncStageFailure(stage)
	r.log.Warn().
		Str("job_id", jobID).
		Str("stage", stage).
		Str("reason", reason).
		Msg("job stage failed")
}

func (r *Reporter) BatchComplete(ctx context.Context, summary string) {
	r.log.Info().Str("summary", summary).Msg("batch complete")
}

// ObserveSweep records batch-level metrics from a finished sweep.
func ObserveSweep(res *usecase.BatchResult, elapsed time.Duration) {
	metrics.ObserveBatchDuration(elapsed.Seconds())
	metrics.AddJobOutcome("enriched", res.Enriched)
	metrics.AddJobOutcome("answers_generated", res.AnswersGenerated)
	metrics.AddJobOutcome("skipped", len(res.Skipped))
	metrics.AddJobOutcome("failed", len(res.Failed))
}
