package adapter

import (
	"context"

	"jobpilot/internal/domain/model"
)

// EnrichmentResult is the structured output of the AI enrichment capability
// for one job description.
type EnrichmentResult struct {
	Title           string   `json:"title,omitempty"`
	Company         string   `json:"company,omitempty"`
	LocationCity    string   `json:"location_city,omitempty"`
	LocationType    string   `json:"location_type,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
	RequiredSkills  []string `json:"required_skills,omitempty"`
	EmploymentType  string   `json:"employment_type,omitempty"`
	SalaryRange     string   `json:"salary_range,omitempty"`

	GoodFit      bool    `json:"good_fit"`
	FitScore     float64 `json:"fit_score"`
	FitReasoning string  `json:"fit_reasoning,omitempty"`

	Confidence  float64 `json:"confidence"`
	NeedsReview bool    `json:"needs_review"`
}

// GeneratedAnswers is the raw output of the answer-generation capability
// before it is persisted as an AnswerSet.
type GeneratedAnswers struct {
	Answers     map[string]string  `json:"answers"`
	FieldScores map[string]float64 `json:"field_scores,omitempty"`
	Confidence  float64            `json:"confidence"`
	Unanswered  []string           `json:"unanswered_fields,omitempty"`
}

// Usage is the token accounting reported by the provider for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIEnrichmentAdapter is the port to the external AI completion service.
// Both external calls are blocking and honor ctx cancellation. Failures are
// per-job: callers record them and continue the batch.
type AIEnrichmentAdapter interface {
	// EnrichJob classifies a job description against the active profile.
	EnrichJob(ctx context.Context, job *model.JobRecord, profile *model.CandidateProfile) (EnrichmentResult, Usage, error)

	// GenerateAnswers produces answers for the observed form fields.
	GenerateAnswers(ctx context.Context, fields []model.FieldSpec, job *model.JobRecord, profile *model.CandidateProfile) (GeneratedAnswers, Usage, error)

	// ModelName identifies the underlying model for audit metadata.
	ModelName() string
}
