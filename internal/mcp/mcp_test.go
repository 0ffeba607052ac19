package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/internal/repository/memory"
	"research-assistant-be/internal/service"
	"research-assistant-be/pkg/research/orchestrator"
	"research-assistant-be/pkg/research/pipeline"
	"research-assistant-be/pkg/research/session"
	"research-assistant-be/pkg/research/status"
	"research-assistant-be/pkg/research/synthesis"
	"research-assistant-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/mark3labs/mcp-go/mcp"
)

type fixedLLM string

func (f fixedLLM) Generate(context.Context, string, ...string) string { return string(f) }

type stubSearcher []store.Paper

func (s stubSearcher) Search(context.Context, string, string) []store.Paper { return s }

type stubRephraser struct{}

func (stubRephraser) RephraseQuery(_ context.Context, q string) []string { return []string{q} }

type seedEcho struct{}

func (seedEcho) Recommend(_ context.Context, ids []string, limit int) []store.Paper {
	out := make([]store.Paper, 0, len(ids))
	for _, id := range ids {
		out = append(out, store.Paper{ID: "rec-" + id})
	}
	return out
}

func testHandlers(t *testing.T, answer string) *Handlers {
	t.Helper()
	log := logger.NewNopLogger()
	gen := fixedLLM(answer)
	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	board := status.NewBoard(ps, log)

	papers := stubSearcher{
		{ID: "a", Title: "Alpha", Abstract: "about alpha", PublicationDate: "2022-02-02", Authors: []string{"Ada"}},
		{ID: "b", Title: "Beta", TLDR: "beta in brief", PublicationDate: "2021-01-01", Authors: []string{"Bo"}},
	}
	svc := service.NewResearchService(
		session.NewManager(memory.NewSessionRepository(time.Hour)),
		orchestrator.New(gen, log, 10),
		pipeline.New(stubRephraser{}, papers, gen, board, log, pipeline.Config{Concurrency: 2}),
		synthesis.New(gen, log, 10),
		seedEcho{},
		board,
		nil,
		log,
		service.ResearchServiceConfig{},
	)
	return NewHandlers(svc)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", result.Content)
	}
	if len(result.Content) == 0 {
		t.Fatal("empty result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", result.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), out); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, want string) {
	t.Helper()
	if !result.IsError {
		t.Fatalf("expected error result, got success: %v", result.Content)
	}
	var payload struct {
		Error struct {
			Code   string `json:"code"`
			Status int    `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	if payload.Error.Code != want {
		t.Fatalf("code = %q, want %q", payload.Error.Code, want)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	sort.Strings(names)
	want := []string{"research_chat", "research_future_work", "research_recommend", "research_search", "research_timeline"}
	if len(names) != len(want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("tools = %v, want %v", names, want)
		}
	}
	if NewServer(nil, "test") == nil {
		t.Fatal("NewServer returned nil")
	}
}

func TestHandleChat(t *testing.T) {
	h := testHandlers(t, "Which years?")
	ctx := context.Background()

	result, err := h.HandleChat(ctx, makeRequest(map[string]any{"message": "gnn traffic"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	var out struct {
		ChatID string `json:"chat_id"`
		Mode   string `json:"mode"`
	}
	decodeResult(t, result, &out)
	if out.ChatID == "" {
		t.Fatal("expected a chat id")
	}

	result, _ = h.HandleChat(ctx, makeRequest(map[string]any{}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleChat(ctx, makeRequest(map[string]any{"message": "hi", "chat_id": "missing"}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleSearchThenSynthesize(t *testing.T) {
	h := testHandlers(t, "55")
	ctx := context.Background()

	result, _ := h.HandleChat(ctx, makeRequest(map[string]any{"message": "gnn traffic"}))
	var chat struct {
		ChatID string `json:"chat_id"`
	}
	decodeResult(t, result, &chat)

	result, err := h.HandleSearch(ctx, makeRequest(map[string]any{
		"query":       "gnn traffic",
		"year_filter": "2021-",
		"chat_id":     chat.ChatID,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	var search SearchOutput
	decodeResult(t, result, &search)
	if len(search.Papers) != 2 {
		t.Fatalf("papers = %d, want 2", len(search.Papers))
	}
	if search.Query != "gnn traffic" {
		t.Fatalf("query = %q", search.Query)
	}

	result, _ = h.HandleTimeline(ctx, makeRequest(map[string]any{"chat_id": chat.ChatID}))
	var timeline struct {
		Kind       string `json:"kind"`
		PaperCount int    `json:"paper_count"`
	}
	decodeResult(t, result, &timeline)
	if timeline.Kind != string(synthesis.KindTimeline) || timeline.PaperCount != 2 {
		t.Fatalf("timeline = %+v", timeline)
	}

	result, _ = h.HandleFutureWork(ctx, makeRequest(map[string]any{"chat_id": chat.ChatID, "cutoff": 1}))
	var future struct {
		PaperCount int `json:"paper_count"`
	}
	decodeResult(t, result, &future)
	if future.PaperCount != 1 {
		t.Fatalf("future work paper count = %d, want 1", future.PaperCount)
	}
}

func TestHandleSearchValidation(t *testing.T) {
	h := testHandlers(t, "")
	ctx := context.Background()

	result, _ := h.HandleSearch(ctx, makeRequest(map[string]any{"query": ""}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleSearch(ctx, makeRequest(map[string]any{"query": "q", "year_filter": "recent"}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleSearch(ctx, makeRequest(map[string]any{"query": 42}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleSynthesisErrors(t *testing.T) {
	h := testHandlers(t, "")
	ctx := context.Background()

	result, _ := h.HandleTimeline(ctx, makeRequest(map[string]any{}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleFutureWork(ctx, makeRequest(map[string]any{"chat_id": "missing"}))
	assertErrorCode(t, result, "NOT_FOUND")

	result, _ = h.HandleFutureWork(ctx, makeRequest(map[string]any{"chat_id": "x", "cutoff": -1}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleRecommend(t *testing.T) {
	h := testHandlers(t, "")
	ctx := context.Background()

	result, _ := h.HandleRecommend(ctx, makeRequest(map[string]any{"paper_ids": []any{"p1", "p2"}}))
	var out RecommendOutput
	decodeResult(t, result, &out)
	if len(out.Papers) != 2 || out.Papers[0].ID != "rec-p1" {
		t.Fatalf("papers = %+v", out.Papers)
	}

	result, _ = h.HandleRecommend(ctx, makeRequest(map[string]any{"paper_ids": []any{}}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestErrorResultHidesUnknownErrors(t *testing.T) {
	result := errorResult(context.DeadlineExceeded)
	assertErrorCode(t, result, "INTERNAL")
}
