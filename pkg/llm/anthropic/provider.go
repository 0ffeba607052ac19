package anthropic

import (
	"context"
	"fmt"
	"research-assistant-be/pkg/llm"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicProvider struct {
	client anthropicclient.Client
	model  string
}

var _ llm.LLMProvider = &AnthropicProvider{}

func NewAnthropicProvider(apiKey, baseURL, model string) *AnthropicProvider {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(base, "/")))
	}
	return &AnthropicProvider{
		client: anthropicclient.NewClient(opts...),
		model:  model,
	}
}

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{Model: p.model, MaxTokens: 1024}, options...)

	// Messages API accepts temperature in [0, 1]
	temp := opts.Temperature
	if temp > 1 {
		temp = 1
	}

	stops := make([]string, 0, len(opts.Stop))
	for _, s := range opts.Stop {
		// whitespace-only stop sequences are rejected by the API
		if strings.TrimSpace(s) != "" {
			stops = append(stops, s)
		}
	}

	msg, err := p.client.Messages.New(ctx, anthropicclient.MessageNewParams{
		Model:     anthropicclient.Model(opts.Model),
		MaxTokens: int64(opts.MaxTokens),
		Messages: []anthropicclient.MessageParam{
			anthropicclient.NewUserMessage(anthropicclient.NewTextBlock(prompt)),
		},
		StopSequences: stops,
		Temperature:   anthropicclient.Float(temp),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}
