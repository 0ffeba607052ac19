package bootstrap

import (
	"context"
	"fmt"
	"time"

	"research-assistant-be/internal/config"
	"research-assistant-be/internal/controller"
	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/internal/repository/memory"
	"research-assistant-be/internal/service"
	"research-assistant-be/pkg/llm"
	"research-assistant-be/pkg/llm/factory"
	"research-assistant-be/pkg/research/orchestrator"
	"research-assistant-be/pkg/research/pipeline"
	"research-assistant-be/pkg/research/session"
	"research-assistant-be/pkg/research/status"
	"research-assistant-be/pkg/research/synthesis"
	"research-assistant-be/pkg/scholar"

	pktNats "research-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ResearchController controller.IResearchController

	// Shared with the MCP server and the CLI
	ResearchService service.IResearchService
	Logger          logger.ILogger

	// Set only when NATS is reachable
	ActivityConsumer service.IActivityConsumer

	closers []func()
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Logging
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = llmLogger.Sync(); _ = sysLogger.Sync() })

	// 2. Text generation
	provider, err := factory.NewLLMProvider(cfg.Ai, cfg.Keys)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	generator := llm.NewClient(provider, llm.ClientConfig{
		MaxRetries:    cfg.Ai.MaxRetries,
		Timeout:       cfg.Ai.Timeout,
		RetryBackoff:  cfg.Ai.RetryBackoff,
		Temperature:   cfg.Ai.Temperature,
		ContextWindow: cfg.Ai.ContextWindow,
		MaxTokens:     cfg.Ai.MaxTokens,
	}, sysLogger, llmLogger)
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 3. Paper search with an in-process LRU and an optional shared Redis tier
	lru, err := scholar.NewLRUCache(cfg.Research.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	var searchCache scholar.Cache = lru
	if rdb := connectRedis(cfg.App.RedisURL, sysLogger); rdb != nil {
		searchCache = scholar.NewTieredCache(lru, scholar.NewRedisCache(rdb, cfg.Research.CacheTTL, sysLogger))
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	scholarClient := scholar.NewClient(scholar.Config{
		BaseURL:      cfg.Research.ScholarBaseURL,
		APIKey:       cfg.Keys.SemanticScholar,
		PageSize:     cfg.Research.PapersPerPage,
		MaxPages:     cfg.Research.MaxPages,
		PageDelay:    cfg.Research.PageDelay,
		Timeout:      cfg.Research.SearchTimeout,
		MaxRetries:   cfg.Research.SearchMaxRetries,
		RetryBackoff: cfg.Ai.RetryBackoff,
	}, searchCache, sysLogger)

	// 4. Status board on the in-process event bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	board := status.NewBoard(pubSub, sysLogger)

	// 5. Domain
	sessions := session.NewManager(memory.NewSessionRepository(cfg.Research.SessionTTL))
	orch := orchestrator.New(generator, sysLogger, cfg.Research.ResultsDigestSize)
	searchPipeline := pipeline.New(orch, scholarClient, generator, board, sysLogger, pipeline.Config{
		Concurrency: cfg.Research.Concurrency,
	})
	synthesizer := synthesis.New(generator, sysLogger, cfg.Research.FutureWorkCutoff)

	// 6. Domain events (optional)
	var publisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "NATS unavailable, domain events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}

		if sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger); err == nil {
			c.ActivityConsumer = service.NewActivityConsumer(sub, board, sysLogger)
			c.closers = append(c.closers, sub.Close)
		}
	}

	// 7. Service and controllers
	c.ResearchService = service.NewResearchService(
		sessions,
		orch,
		searchPipeline,
		synthesizer,
		scholarClient,
		board,
		publisher,
		sysLogger,
		service.ResearchServiceConfig{
			RecommendLimit:    cfg.Research.RecommendLimit,
			DefaultYearFilter: cfg.Research.DefaultYearFilter,
		},
	)
	c.ResearchController = controller.NewResearchController(c.ResearchService, sysLogger)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func connectRedis(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Redis unavailable, search cache stays in process", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
