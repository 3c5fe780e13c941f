package ai

import (
	"context"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
)

var _ adapter.AIEnrichmentAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter produces deterministic canned output for local runs without
// an API key. Every job is a confident good fit and every required field
// gets a placeholder answer.
type NoopAIAdapter struct{}

func NewNoopAIAdapter() *NoopAIAdapter { return &NoopAIAdapter{} }

func (a *NoopAIAdapter) ModelName() string { return "noop" }

func (a *NoopAIAdapter) EnrichJob(ctx context.Context, job *model.JobRecord, profile *model.CandidateProfile) (adapter.EnrichmentResult, adapter.Usage, error) {
	return adapter.EnrichmentResult{
		Title:      job.Title,
		Company:    job.Company,
		GoodFit:    true,
		FitScore:   0.5,
		Confidence: 1,
	}, adapter.Usage{}, nil
}

func (a *NoopAIAdapter) GenerateAnswers(ctx context.Context, fields []model.FieldSpec, job *model.JobRecord, profile *model.CandidateProfile) (adapter.GeneratedAnswers, adapter.Usage, error) {
	out := adapter.GeneratedAnswers{
		Answers:    make(map[string]string, len(fields)),
		Confidence: 1,
	}
	for _, f := range fields {
		out.Answers[f.ID] = "n/a"
	}
	return out, adapter.Usage{}, nil
}
