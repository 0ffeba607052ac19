package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM replays canned responses in order and records every prompt.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	stops     [][]string
}

func (s *scriptedLLM) Generate(_ context.Context, p string, stops ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)
	s.stops = append(s.stops, stops)
	if len(s.responses) == 0 {
		return ""
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r
}

func newSession() *store.Session {
	return store.NewSession("s1", time.Now())
}

func TestClarifyingTurnsKeepLiteralHistory(t *testing.T) {
	responses := []string{
		"Which time span?",
		"Any particular cities?",
		"Here you go: [GNN traffic forecasting since 2021]",
	}
	fake := &scriptedLLM{responses: append([]string(nil), responses...)}
	o := New(fake, logger.NewNopLogger(), 10)
	s := newSession()

	queries := []string{"gnn for traffic", "since 2021", "no"}
	for i, q := range queries {
		before := s.History
		res, err := o.Converse(context.Background(), s, q)
		require.NoError(t, err)

		sent := fake.prompts[i]
		assert.True(t, strings.HasPrefix(sent, before), "turn %d prompt must extend history", i)
		assert.True(t, strings.HasSuffix(sent, "Researcher: "+q+"\n\nAI Assistant: "))
		assert.Equal(t, sent+responses[i], s.History)
		assert.Equal(t, s.ID, res.SessionID)
	}

	assert.True(t, s.ReadyToSearch)
	assert.Equal(t, []string{"GNN traffic forecasting since 2021"}, s.Summary)
	assert.Equal(t, "Here you go: GNN traffic forecasting since 2021", s.LastResponse)
	assert.Contains(t, fake.stops[0], "\nAI Assistant:")
}

func TestClarifyingNotReadyWithoutSummary(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"What is your field?\nAnd your goal?"}}
	o := New(fake, logger.NewNopLogger(), 10)
	s := newSession()

	res, err := o.Converse(context.Background(), s, "help me find papers")
	require.NoError(t, err)

	assert.False(t, res.ReadyToSearch)
	assert.Empty(t, res.Summary)
	assert.Equal(t, "What is your field?<br />And your goal?", res.Response)
}

func TestEmptyMessageRejected(t *testing.T) {
	fake := &scriptedLLM{}
	o := New(fake, logger.NewNopLogger(), 10)

	_, err := o.Converse(context.Background(), newSession(), "   ")

	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, fake.prompts)
}

func TestPaperDiscussionAccumulatesNotes(t *testing.T) {
	fake := &scriptedLLM{responses: []string{
		"<<they care about baselines>>The paper compares against ARIMA.",
		"It uses <<mention dataset size>>METR-LA.",
	}}
	o := New(fake, logger.NewNopLogger(), 10)
	s := newSession()
	s.Mode = store.ModeDiscussingPaper
	s.PaperText = "FULL PAPER TEXT"
	s.OriginalQuery = "traffic forecasting"

	res, err := o.Converse(context.Background(), s, "What baselines?")
	require.NoError(t, err)
	assert.True(t, s.Started)
	assert.Contains(t, fake.prompts[0], "FULL PAPER TEXT")
	assert.Contains(t, fake.prompts[0], "\"traffic forecasting\"")
	assert.True(t, strings.HasSuffix(fake.prompts[0], "Researcher: What baselines?\n\nExpert Assistant: "))
	assert.Equal(t, "The paper compares against ARIMA.", res.Response)
	assert.Equal(t, "they care about baselines\n", s.Notes)
	assert.Equal(t, fake.prompts[0]+"<<they care about baselines>>The paper compares against ARIMA.", s.History)

	res, err = o.Converse(context.Background(), s, "Which dataset?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fake.prompts[1], fake.prompts[0]))
	assert.Contains(t, fake.prompts[1], "Notes to self: they care about baselines\n\nExpert Assistant: ")
	assert.Equal(t, "It uses METR-LA.", res.Response)
	assert.Equal(t, "they care about baselines\nmention dataset size\n", res.Notes)
	assert.Contains(t, fake.stops[1], "\nExpert Assistant:")
}

func TestResultsDiscussionSeedsDigest(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"Paper one is the strongest."}}
	o := New(fake, logger.NewNopLogger(), 1)
	s := newSession()
	s.Mode = store.ModeDiscussingResults
	s.OriginalQuery = "gnn traffic"
	s.Results = []store.Paper{
		{ID: "a", Title: "Top Paper", PublicationDate: "2022-01-01", Summary: "does X"},
		{ID: "b", Title: "Second Paper"},
	}

	_, err := o.Converse(context.Background(), s, "Which is best?")
	require.NoError(t, err)

	assert.Contains(t, fake.prompts[0], "1. Top Paper (2022-01-01): does X")
	assert.NotContains(t, fake.prompts[0], "Second Paper")
}

func TestRephraseQuery(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"bracketed", " reasoning... [gnn AND traffic] [spatio-temporal graph forecasting] ", []string{"gnn AND traffic", "spatio-temporal graph forecasting"}},
		{"failure falls back", "", []string{"graph neural networks for traffic forecasting"}},
		{"empty brackets fall back", "[] [ ]", []string{"graph neural networks for traffic forecasting"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(&scriptedLLM{responses: []string{tt.response}}, logger.NewNopLogger(), 10)
			got := o.RephraseQuery(context.Background(), "graph neural networks for traffic forecasting")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	got := truncate("réseaux de neurones", 2)
	assert.Equal(t, "ré...", got)
	assert.True(t, utf8.ValidString(got))
}
