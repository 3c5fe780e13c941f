package form

import (
	"context"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
)

var _ adapter.FormDriver = (*NoopDriver)(nil)

// NoopDriver stands in for the browser-driving collaborator. It replays the
// field snapshot captured at discovery time and pretends every fill step
// succeeds, which is enough for dry runs and local pipelines.
type NoopDriver struct {
	fields func(jobID string) []model.FieldSpec
}

// NewNoopDriver takes a lookup for the job's stored field snapshot. A nil
// lookup observes an empty form.
func NewNoopDriver(fields func(jobID string) []model.FieldSpec) *NoopDriver {
	return &NoopDriver{fields: fields}
}

func (d *NoopDriver) ObserveFields(ctx context.Context, jobID, jobURL string) ([]model.FieldSpec, error) {
	if d.fields == nil {
		return nil, nil
	}
	return d.fields(jobID), nil
}

func (d *NoopDriver) Execute(ctx context.Context, plan *model.FillPlan, allowSubmit bool) (model.FillReport, error) {
	report := model.FillReport{}
	for _, step := range plan.Steps {
		report.StepsCompleted++
		if step.Action == model.ActionFill {
			report.FieldsFilled++
		}
	}
	report.ReachedSubmit = true
	report.Submitted = allowSubmit
	return report, nil
}
