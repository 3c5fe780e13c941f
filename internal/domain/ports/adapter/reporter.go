package adapter

import (
	"context"

	"jobpilot/internal/domain/model"
)

// BatchReporter receives pipeline progress events at well-defined points.
// Logging, screenshots and any other side channels hang off this port so the
// orchestrator stays free of ambient side effects.
type BatchReporter interface {
	JobTransition(ctx context.Context, jobID string, from, to model.JobStatus)
	JobFailed(ctx context.Context, jobID, stage, reason string)
	BatchComplete(ctx context.Context, summary string)
}
