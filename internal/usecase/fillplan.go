package usecase

import "jobpilot/internal/domain/model"

// DefaultReviewThreshold marks plans whose aggregate confidence falls below
// it as needing manual review. Advisory only; submission stays gated by the
// operator allow flag either way.
const DefaultReviewThreshold = 0.7

// BuildFillPlan maps an answer set onto a live form-field snapshot and
// decides, per field and in form order:
//
//  1. a field already holding a value is skipped (pre-filled data wins,
//     whether or not an answer exists),
//  2. a field with a matching answer is filled,
//  3. anything else is skipped and reported as unanswered.
//
// The function is pure: the same answer set and snapshot always produce the
// same plan.
func BuildFillPlan(set *model.AnswerSet, fields []model.FieldSpec, reviewThreshold float64) *model.FillPlan {
	plan := &model.FillPlan{
		Steps:      make([]model.FillStep, 0, len(fields)),
		Unanswered: []string{},
	}
	if set != nil {
		plan.JobID = set.JobID
		plan.AnswerSetID = set.ID
		plan.Confidence = set.Confidence
	}
	plan.NeedsReview = plan.Confidence < reviewThreshold

	for _, f := range fields {
		switch {
		case f.Value != "":
			plan.Steps = append(plan.Steps, model.FillStep{FieldID: f.ID, Action: model.ActionSkipPrefilled})
		case set.HasAnswer(f.ID):
			plan.Steps = append(plan.Steps, model.FillStep{FieldID: f.ID, Value: set.Answers[f.ID], Action: model.ActionFill})
		default:
			plan.Steps = append(plan.Steps, model.FillStep{FieldID: f.ID, Action: model.ActionSkipUnanswered})
			plan.Unanswered = append(plan.Unanswered, f.ID)
		}
	}
	return plan
}
