package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Keys     APIKeys
	Ai       AIConfig
	Research ResearchConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type APIKeys struct {
	SemanticScholar string
	HuggingFace     string
	OpenAI          string
	Anthropic       string
}

type AIConfig struct {
	LLMProvider   string // "ollama", "huggingface", "openai", "anthropic"
	LLMModel      string // e.g. "llama3.2"
	OllamaBaseURL string
	LLMBaseURL    string // override for hosted providers
	Temperature   float64
	ContextWindow int
	MaxTokens     int
	MaxRetries    int
	Timeout       time.Duration // per attempt
	RetryBackoff  time.Duration // initial interval, 0 disables waiting
}

type ResearchConfig struct {
	ScholarBaseURL    string
	CacheSize         int
	CacheTTL          time.Duration
	DefaultYearFilter string
	PapersPerPage     int
	MaxPages          int
	PageDelay         time.Duration
	SearchTimeout     time.Duration
	SearchMaxRetries  int
	FutureWorkCutoff  int
	Concurrency       int
	SessionTTL        time.Duration
	ResultsDigestSize int
	RecommendLimit    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Keys: APIKeys{
			SemanticScholar: getEnv("SEMANTIC_API_KEY", ""),
			HuggingFace:     getEnv("HUGGINGFACE_API_KEY", ""),
			OpenAI:          getEnv("OPENAI_API_KEY", ""),
			Anthropic:       getEnv("ANTHROPIC_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3.2"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMBaseURL:    getEnv("LLM_BASE_URL", ""),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.8),
			ContextWindow: getEnvAsInt("LLM_CONTEXT_WINDOW", 32000),
			MaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 1024),
			MaxRetries:    getEnvAsInt("LLM_MAX_RETRIES", 5),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 300*time.Second),
			RetryBackoff:  getEnvAsDuration("LLM_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Research: ResearchConfig{
			ScholarBaseURL:    getEnv("SCHOLAR_BASE_URL", "https://api.semanticscholar.org"),
			CacheSize:         getEnvAsInt("CACHE_SIZE", 100),
			CacheTTL:          getEnvAsDuration("CACHE_TTL", time.Hour),
			DefaultYearFilter: getEnv("DEFAULT_YEAR_FILTER", "2020-"),
			PapersPerPage:     getEnvAsInt("PAPERS_PER_PAGE", 20),
			MaxPages:          getEnvAsInt("MAX_PAGES", 1),
			PageDelay:         getEnvAsDuration("PAGE_DELAY", time.Second),
			SearchTimeout:     getEnvAsDuration("SEARCH_TIMEOUT", 30*time.Second),
			SearchMaxRetries:  getEnvAsInt("SEARCH_MAX_RETRIES", 5),
			FutureWorkCutoff:  getEnvAsInt("FUTURE_WORK_CUTOFF", 10),
			Concurrency:       getEnvAsInt("PIPELINE_CONCURRENCY", 1),
			SessionTTL:        getEnvAsDuration("SESSION_TTL", time.Hour),
			ResultsDigestSize: getEnvAsInt("RESULTS_DIGEST_SIZE", 10),
			RecommendLimit:    getEnvAsInt("RECOMMEND_LIMIT", 10),
		},
	}
}

func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("1.5s") or plain seconds ("300").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.ParseFloat(strValue, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
