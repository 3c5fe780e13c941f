package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/infra/metrics"
)

var _ adapter.AIEnrichmentAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter implements the enrichment port on the official genai SDK.
// Structured output is enforced with a response schema instead of prompt
// discipline alone.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

func NewGeminiAdapter(ctx context.Context, apiKey, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: model}, nil
}

func (g *GeminiAdapter) ModelName() string { return g.model }

func (g *GeminiAdapter) EnrichJob(ctx context.Context, job *model.JobRecord, profile *model.CandidateProfile) (adapter.EnrichmentResult, adapter.Usage, error) {
	var out adapter.EnrichmentResult
	usage, err := g.generate(ctx, "enrich", enrichmentSystemPrompt, enrichmentUserPrompt(job, profile), enrichmentSchema(), &out)
	return out, usage, err
}

func (g *GeminiAdapter) GenerateAnswers(ctx context.Context, fields []model.FieldSpec, job *model.JobRecord, profile *model.CandidateProfile) (adapter.GeneratedAnswers, adapter.Usage, error) {
	var out adapter.GeneratedAnswers
	usage, err := g.generate(ctx, "answers", answersSystemPrompt, answersUserPrompt(fields, job, profile), answersSchema(), &out)
	return out, usage, err
}

func (g *GeminiAdapter) generate(ctx context.Context, capability, system, user string, schema *genai.Schema, dst interface{}) (adapter.Usage, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	if err != nil {
		metrics.IncAICall(capability, "error")
		return adapter.Usage{}, err
	}
	metrics.IncAICall(capability, "ok")

	var usage adapter.Usage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	metrics.AddAITokens(usage.PromptTokens, usage.CompletionTokens)

	if err := decodeJSON(resp.Text(), dst); err != nil {
		return usage, fmt.Errorf("gemini: decode reply: %w", err)
	}
	return usage, nil
}

func enrichmentSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":            {Type: genai.TypeString},
			"company":          {Type: genai.TypeString},
			"location_city":    {Type: genai.TypeString},
			"location_type":    {Type: genai.TypeString},
			"experience_level": {Type: genai.TypeString},
			"required_skills": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"employment_type": {Type: genai.TypeString},
			"salary_range":    {Type: genai.TypeString},
			"good_fit":        {Type: genai.TypeBoolean},
			"fit_score":       {Type: genai.TypeNumber},
			"fit_reasoning":   {Type: genai.TypeString},
			"confidence":      {Type: genai.TypeNumber},
			"needs_review":    {Type: genai.TypeBoolean},
		},
		Required: []string{"good_fit", "fit_score", "confidence", "needs_review"},
	}
}

func answersSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"answers": {Type: genai.TypeObject},
			"field_scores": {
				Type: genai.TypeObject,
			},
			"confidence": {Type: genai.TypeNumber},
			"unanswered_fields": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"answers", "confidence"},
	}
}
