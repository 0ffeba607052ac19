package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature   float64
	MaxTokens     int
	ContextWindow int
	Model         string   // Override default model
	Stop          []string // generation halts before any of these
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithContextWindow(n int) Option {
	return func(o *Options) {
		o.ContextWindow = n
	}
}

func WithStop(stops ...string) Option {
	return func(o *Options) {
		o.Stop = append(o.Stop, stops...)
	}
}

// ApplyOptions folds opts over defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	o := defaults
	o.Stop = append([]string(nil), defaults.Stop...)
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Generate sends a single prompt to the model and returns the raw completion
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// Generator is what the research packages depend on: failures are absorbed
// and reported as an empty string.
type Generator interface {
	Generate(ctx context.Context, prompt string, stops ...string) string
}
