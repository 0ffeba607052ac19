package mcp

import (
	"research-assistant-be/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverName = "research-assistant"

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"research_chat": {
		def: mcp.NewTool("research_chat",
			mcp.WithDescription("Send one message to the research assistant. Omit chat_id to start a new chat."),
			mcp.WithString("message", mcp.Required(), mcp.Description("User message")),
			mcp.WithString("chat_id", mcp.Description("Existing chat to continue")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleChat },
	},
	"research_search": {
		def: mcp.NewTool("research_search",
			mcp.WithDescription("Search academic papers, rank them by relevance and summarize each one."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Research question or keywords")),
			mcp.WithString("year_filter", mcp.Description("Publication years: 2020, 2020-, -2020 or 2019-2021")),
			mcp.WithString("chat_id", mcp.Description("Chat that receives the results")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"research_timeline": {
		def: mcp.NewTool("research_timeline",
			mcp.WithDescription("Write a chronological narrative of how a topic developed across the papers of a chat."),
			mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat whose search results are used")),
			mcp.WithBoolean("citations", mcp.Description("Append a reference list (default true)")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTimeline },
	},
	"research_future_work": {
		def: mcp.NewTool("research_future_work",
			mcp.WithDescription("Suggest open research directions from the most relevant papers of a chat."),
			mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat whose search results are used")),
			mcp.WithNumber("cutoff", mcp.Description("Number of top-ranked papers to consider")),
			mcp.WithBoolean("citations", mcp.Description("Append a reference list (default true)")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFutureWork },
	},
	"research_recommend": {
		def: mcp.NewTool("research_recommend",
			mcp.WithDescription("Recommend papers similar to the given seed papers."),
			mcp.WithArray("paper_ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("Seed paper IDs")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of recommendations")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecommend },
	},
}

// AllToolNames returns a list of all registered tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates an MCP server exposing the research tools.
func NewServer(svc service.IResearchService, version string) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(svc)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the research tools over stdio.
func Run(svc service.IResearchService, version string) error {
	return server.ServeStdio(NewServer(svc, version))
}
