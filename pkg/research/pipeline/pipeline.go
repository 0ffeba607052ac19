package pipeline

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/llm"
	"research-assistant-be/pkg/research/prompt"
	"research-assistant-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	NoSummary = "No summary available."

	fallbackSummaryLen = 500
)

var ErrEmptyQuery = errors.New("query is required")

type Searcher interface {
	Search(ctx context.Context, query, yearFilter string) []store.Paper
}

type QueryRephraser interface {
	RephraseQuery(ctx context.Context, query string) []string
}

// Reporter receives free-text progress messages.
type Reporter interface {
	Publish(key, message string)
}

// Emitter receives events in emission order. A non-nil error stops the run.
type Emitter func(Event) error

type Config struct {
	Concurrency int // parallel scoring and summarizing calls
}

type Request struct {
	Query      string
	YearFilter string
	StatusKey  string
}

// Result is the ranked, summarized paper list of one run.
type Result struct {
	Query          string
	RefinedQueries []string
	Papers         []store.Paper
	Duration       time.Duration
}

type Pipeline struct {
	rephraser QueryRephraser
	searcher  Searcher
	llm       llm.Generator
	reporter  Reporter
	logger    logger.ILogger
	cfg       Config
	tracer    trace.Tracer
}

func New(rephraser QueryRephraser, searcher Searcher, gen llm.Generator, reporter Reporter, log logger.ILogger, cfg Config) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		rephraser: rephraser,
		searcher:  searcher,
		llm:       gen,
		reporter:  reporter,
		logger:    log,
		cfg:       cfg,
		tracer:    otel.Tracer("research-assistant/pipeline"),
	}
}

// serialEmitter makes emission safe from worker goroutines.
type serialEmitter struct {
	mu   sync.Mutex
	emit Emitter
}

func (s *serialEmitter) send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emit(ev)
}

// Run executes the full search: rephrase, search and dedupe, score, rank,
// summarize. Events are emitted strictly phase by phase.
func (p *Pipeline) Run(ctx context.Context, req Request, emit Emitter) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("query", query),
		attribute.String("year_filter", req.YearFilter),
	))
	defer span.End()

	em := &serialEmitter{emit: emit}

	p.report(req.StatusKey, "Refining search query...")
	queries := p.rephraser.RephraseQuery(ctx, query)
	if err := em.send(Event{Type: EventRefinedQuery, Data: queries}); err != nil {
		return nil, err
	}

	p.report(req.StatusKey, "Searching for relevant papers...")
	papers, err := p.collect(ctx, queries, req.YearFilter, em)
	if err != nil {
		return nil, err
	}

	p.report(req.StatusKey, "Rating paper relevance...")
	if err := p.scoreAll(ctx, query, papers, em); err != nil {
		return nil, err
	}

	ranked := make([]store.Paper, len(papers))
	copy(ranked, papers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	p.report(req.StatusKey, "Summarizing the most relevant papers...")
	if err := p.summarizeAll(ctx, query, ranked, em); err != nil {
		return nil, err
	}

	p.report(req.StatusKey, "Search complete.")
	span.SetAttributes(attribute.Int("papers", len(ranked)))
	p.logger.Info("PIPELINE", "Search pipeline finished", map[string]interface{}{
		"query":       truncate(query, 80),
		"refined":     len(queries),
		"papers":      len(ranked),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &Result{
		Query:          query,
		RefinedQueries: queries,
		Papers:         ranked,
		Duration:       time.Since(start),
	}, nil
}

// Stream runs the pipeline in the background. The channel is closed when
// the run ends or ctx is cancelled.
func (p *Pipeline) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		_, err := p.Run(ctx, req, func(ev Event) error {
			select {
			case out <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("PIPELINE", "Stream ended early", map[string]interface{}{"error": err.Error()})
		}
	}()
	return out, nil
}

func (p *Pipeline) collect(ctx context.Context, queries []string, yearFilter string, em *serialEmitter) ([]store.Paper, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.search")
	defer span.End()

	var papers []store.Paper
	seen := make(map[string]bool)
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := p.searcher.Search(ctx, q, yearFilter)

		fresh := make([]store.Paper, 0, len(batch))
		for _, paper := range batch {
			if paper.ID == "" || seen[paper.ID] {
				continue
			}
			seen[paper.ID] = true
			fresh = append(fresh, paper)
		}
		if len(fresh) == 0 {
			continue
		}
		papers = append(papers, fresh...)
		if err := em.send(Event{Type: EventPapers, Data: toCards(fresh)}); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("unique_papers", len(papers)))
	return papers, nil
}

func (p *Pipeline) scoreAll(ctx context.Context, query string, papers []store.Paper, em *serialEmitter) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.score")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i := range papers {
		i := i
		g.Go(func() error {
			score := p.Score(gctx, query, papers[i])
			papers[i].RelevanceScore = score
			return em.send(Event{Type: EventRelevance, Data: RelevanceData{PaperID: papers[i].ID, Relevance: score}})
		})
	}
	return g.Wait()
}

// Score rates one paper 0-100 against query. Papers with neither abstract
// nor TLDR score 0 without a model call; unparseable answers score 0.
func (p *Pipeline) Score(ctx context.Context, query string, paper store.Paper) float64 {
	text := paper.Abstract
	if strings.TrimSpace(text) == "" {
		text = paper.TLDR
	}
	if strings.TrimSpace(text) == "" {
		return 0
	}

	raw := strings.TrimSpace(p.llm.Generate(ctx, prompt.Relevance(query, paper.Title, text)))
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		p.logger.Warn("PIPELINE", "Unparseable relevance score", map[string]interface{}{
			"paper_id": paper.ID,
			"response": truncate(raw, 60),
		})
		return 0
	}
	return math.Max(0, math.Min(100, score))
}

func (p *Pipeline) summarizeAll(ctx context.Context, query string, ranked []store.Paper, em *serialEmitter) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.summarize")
	defer span.End()

	var deferred []int
	for i := range ranked {
		switch {
		case ranked[i].TLDR != "":
			ranked[i].Summary = ranked[i].TLDR
		case ranked[i].Abstract != "":
			deferred = append(deferred, i)
			continue
		default:
			ranked[i].Summary = NoSummary
		}
		if err := em.send(Event{Type: EventSummary, Data: SummaryData{PaperID: ranked[i].ID, Summary: ranked[i].Summary}}); err != nil {
			return err
		}
	}

	span.SetAttributes(attribute.Int("generated", len(deferred)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, idx := range deferred {
		idx := idx
		g.Go(func() error {
			ranked[idx].Summary = p.Summarize(gctx, query, ranked[idx])
			return em.send(Event{Type: EventSummary, Data: SummaryData{PaperID: ranked[idx].ID, Summary: ranked[idx].Summary}})
		})
	}
	return g.Wait()
}

// Summarize writes a short query-focused summary from the abstract, falling
// back to the abstract itself when the model returns nothing.
func (p *Pipeline) Summarize(ctx context.Context, query string, paper store.Paper) string {
	summary := strings.TrimSpace(p.llm.Generate(ctx, prompt.Summary(query, paper)))
	if summary != "" {
		return summary
	}
	p.logger.Warn("PIPELINE", "Empty summary, using abstract", map[string]interface{}{"paper_id": paper.ID})
	return truncate(strings.TrimSpace(paper.Abstract), fallbackSummaryLen)
}

func (p *Pipeline) report(key, message string) {
	if p.reporter != nil {
		p.reporter.Publish(key, message)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
