package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"research-assistant-be/pkg/llm"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSendsOptionsAndReadsResponse(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "  a clarifying question", Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3.2", time.Second)
	out, err := p.Generate(context.Background(), "prompt text",
		llm.WithTemperature(0.8),
		llm.WithContextWindow(32000),
		llm.WithStop("Researcher:", "\nResearcher:"),
	)

	require.NoError(t, err)
	assert.Equal(t, "  a clarifying question", out)
	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, "prompt text", got.Prompt)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Options)
	assert.Equal(t, 32000, got.Options.NumCtx)
	assert.Equal(t, []string{"Researcher:", "\nResearcher:"}, got.Options.Stop)
}

func TestGenerateReturnsErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing", time.Second)
	_, err := p.Generate(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
