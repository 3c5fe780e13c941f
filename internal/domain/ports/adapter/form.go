package adapter

import (
	"context"

	"jobpilot/internal/domain/model"
)

// FormDriver is the port to the browser-driving collaborator. The core never
// touches page elements itself; it observes fields, hands over a fill plan
// and receives a report of what was actually set.
type FormDriver interface {
	// ObserveFields returns the live field snapshot of the job's
	// application form, in form order, including current values.
	ObserveFields(ctx context.Context, jobID, jobURL string) ([]model.FieldSpec, error)

	// Execute runs the plan. Submission only happens when allowSubmit is
	// set; otherwise the driver stops at the review step (dry run).
	Execute(ctx context.Context, plan *model.FillPlan, allowSubmit bool) (model.FillReport, error)
}
