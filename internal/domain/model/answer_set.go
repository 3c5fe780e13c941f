package model

import "time"

// AnswerSet is one immutable generation of form answers for a job.
// History is append-only: newer sets supersede older ones for filling, older
// ones are retained for audit.
type AnswerSet struct {
	ID        string
	JobID     string
	ProfileID string

	Answers      map[string]string
	FieldScores  map[string]float64
	Confidence   float64
	Unanswered   []string
	ModelUsed    string
	PromptTokens int
	OutputTokens int
	UsedForApply bool
	AppliedAt    *time.Time
	CreatedAt    time.Time
}

// HasAnswer reports whether a non-empty answer exists for the field key.
func (a *AnswerSet) HasAnswer(key string) bool {
	if a == nil {
		return false
	}
	v, ok := a.Answers[key]
	return ok && v != ""
}
