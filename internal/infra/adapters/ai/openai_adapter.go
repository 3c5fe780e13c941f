package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/infra/metrics"
)

var _ adapter.AIEnrichmentAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements the enrichment port on the Chat Completions API.
type OpenAIAdapter struct {
	client  openai.Client
	model   string
	encoder *tiktoken.Tiktoken
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	// Local estimate for when the provider omits usage in the response.
	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &OpenAIAdapter{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		encoder: encoder,
	}, nil
}

func (a *OpenAIAdapter) ModelName() string { return a.model }

func (a *OpenAIAdapter) EnrichJob(ctx context.Context, job *model.JobRecord, profile *model.CandidateProfile) (adapter.EnrichmentResult, adapter.Usage, error) {
	var out adapter.EnrichmentResult
	usage, err := a.complete(ctx, "enrich", enrichmentSystemPrompt, enrichmentUserPrompt(job, profile), &out)
	return out, usage, err
}

func (a *OpenAIAdapter) GenerateAnswers(ctx context.Context, fields []model.FieldSpec, job *model.JobRecord, profile *model.CandidateProfile) (adapter.GeneratedAnswers, adapter.Usage, error) {
	var out adapter.GeneratedAnswers
	usage, err := a.complete(ctx, "answers", answersSystemPrompt, answersUserPrompt(fields, job, profile), &out)
	return out, usage, err
}

func (a *OpenAIAdapter) complete(ctx context.Context, capability, system, user string, dst interface{}) (adapter.Usage, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		metrics.IncAICall(capability, "error")
		return adapter.Usage{}, err
	}
	if len(resp.Choices) == 0 {
		metrics.IncAICall(capability, "error")
		return adapter.Usage{}, errors.New("openai: empty choices")
	}
	metrics.IncAICall(capability, "ok")

	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	if usage.TotalTokens == 0 {
		usage.PromptTokens = a.countTokens(system) + a.countTokens(user)
		usage.CompletionTokens = a.countTokens(resp.Choices[0].Message.Content)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	metrics.AddAITokens(usage.PromptTokens, usage.CompletionTokens)

	if err := decodeJSON(resp.Choices[0].Message.Content, dst); err != nil {
		return usage, fmt.Errorf("openai: decode reply: %w", err)
	}
	return usage, nil
}

func (a *OpenAIAdapter) countTokens(s string) int {
	return len(a.encoder.Encode(s, nil, nil))
}
