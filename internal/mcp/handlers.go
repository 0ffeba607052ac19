package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"research-assistant-be/internal/dto"
	"research-assistant-be/internal/pkg/apperror"
	"research-assistant-be/internal/pkg/serverutils"
	"research-assistant-be/internal/service"
	"research-assistant-be/pkg/research/pipeline"
	"research-assistant-be/pkg/store"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc service.IResearchService
}

func NewHandlers(svc service.IResearchService) *Handlers {
	return &Handlers{svc: svc}
}

// SynthesisArgs are shared by the timeline and future work tools.
type SynthesisArgs struct {
	ChatID    string `json:"chat_id"`
	Cutoff    int    `json:"cutoff,omitempty"`
	Citations *bool  `json:"citations,omitempty"`
}

// SearchOutput is the collected result of a streamed search.
type SearchOutput struct {
	Query          string        `json:"query"`
	RefinedQueries []string      `json:"refined_queries"`
	Papers         []store.Paper `json:"papers"`
	TookMs         int64         `json:"took_ms"`
}

type RecommendOutput struct {
	Papers []store.Paper `json:"papers"`
}

func (h *Handlers) HandleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[dto.ChatRequest](req)
	if err != nil {
		return errorResult(apperror.NewInvalidRequest(err.Error())), nil
	}
	if err := serverutils.ValidateRequest(&input); err != nil {
		return errorResult(apperror.NewInvalidRequest(err.Error())), nil
	}

	out, err := h.svc.Chat(ctx, &input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleSearch runs the whole search and returns the ranked papers at once;
// progress is still published on the status board under the job's key.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[dto.SearchRequest](req)
	if err != nil {
		return errorResult(apperror.NewInvalidRequest(err.Error())), nil
	}
	if err := serverutils.ValidateRequest(&input); err != nil {
		return errorResult(apperror.NewInvalidRequest(err.Error())), nil
	}

	job, err := h.svc.PrepareSearch(ctx, &input)
	if err != nil {
		return errorResult(err), nil
	}
	res, err := job.Run(ctx, func(pipeline.Event) error { return nil })
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(SearchOutput{
		Query:          res.Query,
		RefinedQueries: res.RefinedQueries,
		Papers:         res.Papers,
		TookMs:         res.Duration.Milliseconds(),
	})
}

func (h *Handlers) HandleTimeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SynthesisArgs](req)
	if err != nil {
		return errorResult(apperror.NewInvalidRequest(err.Error())), nil
	}
	if input.ChatID == "" {
		return errorResult(apperror.NewInvalidRequest("chat_id is required")), nil
	}

	out, err := h.svc.Timeline(ctx, &dto.SynthesisRequest{ChatId: input.ChatID, Citations: input.Citations})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

func (h *Handlers) HandleFutureWork(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SynthesisArgs](req)
	if err != nil {
		return errorResult(apperror.NewInvalidRequest(err.Error())), nil
	}
	if input.ChatID == "" {
		return errorResult(apperror.NewInvalidRequest("chat_id is required")), nil
	}
	if input.Cutoff < 0 {
		return errorResult(apperror.NewInvalidRequest("cutoff must be positive")), nil
	}

	out, err := h.svc.FutureWork(ctx, &dto.SynthesisRequest{
		ChatId:    input.ChatID,
		Cutoff:    input.Cutoff,
		Citations: input.Citations,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

func (h *Handlers) HandleRecommend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[dto.RecommendRequest](req)
	if err != nil {
		return errorResult(apperror.NewInvalidRequest(err.Error())), nil
	}
	if err := serverutils.ValidateRequest(&input); err != nil {
		return errorResult(apperror.NewInvalidRequest(err.Error())), nil
	}

	papers, err := h.svc.Recommend(ctx, &input)
	if err != nil {
		return errorResult(err), nil
	}
	if papers == nil {
		papers = []store.Paper{}
	}
	return successResult(RecommendOutput{Papers: papers})
}

// errorResult converts an error into an MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		errorObj := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
			"status":  appErr.Status,
		}
		// internal details may carry upstream responses
		if appErr.Code != apperror.ErrInternal && appErr.Details != nil {
			errorObj["details"] = appErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    apperror.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
