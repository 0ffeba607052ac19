package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"research-assistant-be/internal/dto"
	"research-assistant-be/internal/pkg/apperror"
	"research-assistant-be/internal/service"
	"research-assistant-be/pkg/events"
	"research-assistant-be/pkg/research/pipeline"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

// scriptedService answers chat turns from a fixed list.
type scriptedService struct {
	service.IResearchService
	replies  []dto.ChatResponse
	messages []string
	chatIDs  []string
}

func (s *scriptedService) Chat(_ context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	s.messages = append(s.messages, req.Message)
	s.chatIDs = append(s.chatIDs, req.ChatId)
	if len(s.replies) == 0 {
		return nil, apperror.NewConflict("busy")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return &r, nil
}

func TestRunChat(t *testing.T) {
	svc := &scriptedService{replies: []dto.ChatResponse{
		{ChatId: "c1", MostRecentResponse: "Which years?<br />Which cities?"},
		{ChatId: "c1", MostRecentResponse: "Got it.", ReadyToSearch: true, Summary: []string{"gnn", "traffic"}},
	}}
	in := strings.NewReader("gnn traffic\n\n2020 onwards\nagain\n/quit\nignored\n")
	var out bytes.Buffer

	if err := runChat(context.Background(), svc, in, &out); err != nil {
		t.Fatalf("runChat: %v", err)
	}

	if got := strings.Join(svc.messages, "|"); got != "gnn traffic|2020 onwards|again" {
		t.Fatalf("messages = %q", got)
	}
	if svc.chatIDs[0] != "" || svc.chatIDs[1] != "c1" {
		t.Fatalf("chat ids = %v", svc.chatIDs)
	}
	text := out.String()
	for _, want := range []string{"Which years?\nWhich cities?", "Ready to search.", "[CONFLICT] busy"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunChatSearchWithoutSummary(t *testing.T) {
	svc := &scriptedService{}
	var out bytes.Buffer

	if err := runChat(context.Background(), svc, strings.NewReader("/search\n"), &out); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing to search yet.") {
		t.Fatalf("output = %q", out.String())
	}
	if len(svc.messages) != 0 {
		t.Fatalf("unexpected chat calls: %v", svc.messages)
	}
}

func TestPrintEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   pipeline.Event
		want string
	}{
		{"queries", pipeline.Event{Type: pipeline.EventRefinedQuery, Data: []string{"a", "b"}}, "Searching: a | b\n"},
		{"papers", pipeline.Event{Type: pipeline.EventPapers, Data: []pipeline.PaperCard{
			{Title: "Alpha", PublicationDate: "2022-01-01", CitationCount: 3},
			{Title: "Beta"},
		}}, "- Alpha (2022, 3 citations)\n- Beta (n.d., 0 citations)\n"},
		{"relevance", pipeline.Event{Type: pipeline.EventRelevance, Data: pipeline.RelevanceData{PaperID: "p", Relevance: 72}}, "  p relevance 72\n"},
		{"summary", pipeline.Event{Type: pipeline.EventSummary, Data: pipeline.SummaryData{PaperID: "p", Summary: "short"}}, "  p: short\n"},
		{"unknown", pipeline.Event{Type: "other"}, "other\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := printEvent(&buf, tt.ev); err != nil {
				t.Fatalf("printEvent: %v", err)
			}
			if buf.String() != tt.want {
				t.Fatalf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPrintDomainEvent(t *testing.T) {
	ev := events.BaseEvent{
		Type:       events.SessionStarted,
		Data:       map[string]interface{}{"session_id": "s1"},
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	var buf bytes.Buffer
	if err := printDomainEvent(&buf, ev); err != nil {
		t.Fatalf("printDomainEvent: %v", err)
	}
	if got := buf.String(); got != "03:04:05 SESSION_STARTED {\"session_id\":\"s1\"}\n" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatError(t *testing.T) {
	if got := formatError(apperror.NewNotFound("chat", "x")); got != "[NOT_FOUND] chat not found: x" {
		t.Fatalf("got %q", got)
	}
	if got := formatError(errors.New("boom")); got != "boom" {
		t.Fatalf("got %q", got)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	err := newCLIApp().Run([]string{"research", "search"})
	if err == nil {
		t.Fatal("expected error for missing query")
	}
	if !strings.Contains(err.Error(), "query is required") {
		t.Fatalf("error = %v", err)
	}
}
