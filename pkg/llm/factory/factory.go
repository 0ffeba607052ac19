package factory

import (
	"fmt"
	"research-assistant-be/internal/config"
	"research-assistant-be/pkg/llm"
	"research-assistant-be/pkg/llm/anthropic"
	"research-assistant-be/pkg/llm/huggingface"
	"research-assistant-be/pkg/llm/ollama"
	"research-assistant-be/pkg/llm/openai"
)

func NewLLMProvider(aiCfg config.AIConfig, keys config.APIKeys) (llm.LLMProvider, error) {
	switch aiCfg.LLMProvider {
	case "ollama", "":
		baseURL := aiCfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, aiCfg.LLMModel, aiCfg.Timeout), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(keys.HuggingFace, aiCfg.LLMBaseURL, aiCfg.LLMModel, aiCfg.Timeout), nil
	case "openai":
		if keys.OpenAI == "" && aiCfg.LLMBaseURL == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY or LLM_BASE_URL")
		}
		return openai.NewOpenAIProvider(keys.OpenAI, aiCfg.LLMBaseURL, aiCfg.LLMModel), nil
	case "anthropic":
		if keys.Anthropic == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY")
		}
		return anthropic.NewAnthropicProvider(keys.Anthropic, aiCfg.LLMBaseURL, aiCfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", aiCfg.LLMProvider)
	}
}
