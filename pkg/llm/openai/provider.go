package openai

import (
	"context"
	"fmt"
	"research-assistant-be/pkg/llm"
	"strings"

	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
)

type OpenAIProvider struct {
	client openaiclient.Client
	model  string
}

var _ llm.LLMProvider = &OpenAIProvider{}

// NewOpenAIProvider also serves any OpenAI-compatible endpoint via baseURL.
// SDK retries are disabled; llm.Client owns the retry policy.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, openaioption.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	return &OpenAIProvider{
		client: openaiclient.NewClient(opts...),
		model:  model,
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{Model: p.model}, options...)

	params := openaiclient.ChatCompletionNewParams{
		Model: openaiclient.ChatModel(opts.Model),
		Messages: []openaiclient.ChatCompletionMessageParamUnion{
			openaiclient.UserMessage(prompt),
		},
		Temperature: openaiclient.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openaiclient.Int(int64(opts.MaxTokens))
	}
	if len(opts.Stop) > 0 {
		stops := opts.Stop
		if len(stops) > 4 {
			stops = stops[:4]
		}
		params.Stop = openaiclient.ChatCompletionNewParamsStopUnion{OfStringArray: stops}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices from openai")
	}
	return resp.Choices[0].Message.Content, nil
}
