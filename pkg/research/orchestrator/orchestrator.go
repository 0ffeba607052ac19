package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/llm"
	"research-assistant-be/pkg/research/markup"
	"research-assistant-be/pkg/research/prompt"
	"research-assistant-be/pkg/store"
)

var ErrEmptyMessage = errors.New("message is required")

// Orchestrator drives one conversational turn at a time. Callers must hold
// the session lock for the duration of Converse.
type Orchestrator struct {
	llm        llm.Generator
	logger     logger.ILogger
	digestSize int
}

// TurnResult is what a caller needs to render one turn.
type TurnResult struct {
	SessionID     string
	Mode          store.Mode
	Response      string
	ReadyToSearch bool
	Summary       []string
	Notes         string
}

func New(gen llm.Generator, log logger.ILogger, digestSize int) *Orchestrator {
	if digestSize <= 0 {
		digestSize = 10
	}
	return &Orchestrator{llm: gen, logger: log, digestSize: digestSize}
}

// Converse runs one turn in whatever phase the session is in.
func (o *Orchestrator) Converse(ctx context.Context, s *store.Session, query string) (*TurnResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyMessage
	}

	switch s.Mode {
	case store.ModeClarifying:
		o.clarify(ctx, s, query)
	case store.ModeDiscussingPaper, store.ModeDiscussingResults:
		o.discuss(ctx, s, query)
	default:
		return nil, fmt.Errorf("unknown session mode %q", s.Mode)
	}

	return &TurnResult{
		SessionID:     s.ID,
		Mode:          s.Mode,
		Response:      s.LastResponse,
		ReadyToSearch: s.ReadyToSearch,
		Summary:       s.Summary,
		Notes:         s.Notes,
	}, nil
}

func (o *Orchestrator) clarify(ctx context.Context, s *store.Session, query string) {
	var p string
	if s.History == "" {
		p = prompt.ClarifyFirst(query)
	} else {
		p = prompt.ClarifyNext(s.History, query)
	}

	raw := o.llm.Generate(ctx, p, prompt.StopsFor(prompt.AssistantLabel)...)
	if raw == "" {
		o.logger.Warn("ORCHESTRATOR", "Empty clarification response", map[string]interface{}{"session_id": s.ID})
	}
	s.History = p + raw

	parsed := markup.ParseClarification(raw)
	if parsed.Ready {
		s.ReadyToSearch = true
		s.Summary = parsed.Summary
		o.logger.Info("ORCHESTRATOR", "Conversation ready to search", map[string]interface{}{
			"session_id": s.ID,
			"summary":    truncate(strings.Join(parsed.Summary, " | "), 120),
		})
	}
	s.LastResponse = parsed.Display
}

func (o *Orchestrator) discuss(ctx context.Context, s *store.Session, query string) {
	var p string
	if !s.Started {
		p = o.seed(s, query)
		s.Started = true
		s.Notes = ""
		s.ReadyToSearch = false
	} else {
		p = prompt.DiscussNext(s.History, query, s.Notes)
	}

	raw := o.llm.Generate(ctx, p, prompt.StopsFor(prompt.ExpertLabel)...)
	if raw == "" {
		o.logger.Warn("ORCHESTRATOR", "Empty discussion response", map[string]interface{}{"session_id": s.ID})
	}
	s.History = p + raw

	parsed := markup.ParseDiscussion(raw)
	for _, n := range parsed.Notes {
		s.Notes += n + "\n"
	}
	s.LastResponse = parsed.Display
}

func (o *Orchestrator) seed(s *store.Session, query string) string {
	if s.Mode == store.ModeDiscussingPaper {
		return prompt.PaperSeed(s.OriginalQuery, s.PaperTitle, s.PaperText, query)
	}
	digest := s.Results
	if len(digest) > o.digestSize {
		digest = digest[:o.digestSize]
	}
	return prompt.ResultsSeed(s.OriginalQuery, digest, query)
}

// RephraseQuery turns a research summary into one or more search queries.
// It always returns at least one query.
func (o *Orchestrator) RephraseQuery(ctx context.Context, query string) []string {
	raw := strings.TrimSpace(o.llm.Generate(ctx, prompt.Rephrase(query)))
	queries := markup.ParseQueries(raw, query)
	o.logger.Info("ORCHESTRATOR", "Rephrased query", map[string]interface{}{
		"query":   truncate(query, 80),
		"queries": queries,
	})
	return queries
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
