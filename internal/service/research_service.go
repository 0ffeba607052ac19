package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"research-assistant-be/internal/dto"
	"research-assistant-be/internal/pkg/apperror"
	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/events"
	"research-assistant-be/pkg/markdown"
	"research-assistant-be/pkg/research/orchestrator"
	"research-assistant-be/pkg/research/pipeline"
	"research-assistant-be/pkg/research/session"
	"research-assistant-be/pkg/research/status"
	"research-assistant-be/pkg/research/synthesis"
	"research-assistant-be/pkg/scholar"
	"research-assistant-be/pkg/store"
)

const eventPublishTimeout = 3 * time.Second

// IResearchService is the single entry point used by the HTTP controller,
// the MCP server and the CLI.
type IResearchService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	LoadPaper(ctx context.Context, req *dto.LoadPaperRequest) (*dto.LoadPaperResponse, error)
	PrepareSearch(ctx context.Context, req *dto.SearchRequest) (*SearchJob, error)
	Timeline(ctx context.Context, req *dto.SynthesisRequest) (*dto.SynthesisResponse, error)
	FutureWork(ctx context.Context, req *dto.SynthesisRequest) (*dto.SynthesisResponse, error)
	Recommend(ctx context.Context, req *dto.RecommendRequest) ([]store.Paper, error)
	GetSession(ctx context.Context, id string) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, id string) error
	LatestStatus(key string) (*dto.StatusResponse, error)
	SubscribeStatus(ctx context.Context, key string) (<-chan status.Update, error)
}

// SearchRunner is the search pipeline as seen by the service.
type SearchRunner interface {
	Run(ctx context.Context, req pipeline.Request, emit pipeline.Emitter) (*pipeline.Result, error)
}

type Recommender interface {
	Recommend(ctx context.Context, seedIDs []string, limit int) []store.Paper
}

// EventPublisher sends domain events to the bus. It may be nil.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ResearchServiceConfig struct {
	RecommendLimit    int
	DefaultYearFilter string // used when a search names no year range
}

type researchService struct {
	sessions     *session.Manager
	orchestrator *orchestrator.Orchestrator
	search       SearchRunner
	synthesizer  *synthesis.Generator
	recommender  Recommender
	board        *status.Board
	publisher    EventPublisher
	logger       logger.ILogger
	cfg          ResearchServiceConfig
}

func NewResearchService(
	sessions *session.Manager,
	orch *orchestrator.Orchestrator,
	search SearchRunner,
	synthesizer *synthesis.Generator,
	recommender Recommender,
	board *status.Board,
	publisher EventPublisher,
	log logger.ILogger,
	cfg ResearchServiceConfig,
) IResearchService {
	if cfg.RecommendLimit <= 0 {
		cfg.RecommendLimit = 10
	}
	return &researchService{
		sessions:     sessions,
		orchestrator: orch,
		search:       search,
		synthesizer:  synthesizer,
		recommender:  recommender,
		board:        board,
		publisher:    publisher,
		logger:       log,
		cfg:          cfg,
	}
}

func (s *researchService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperror.NewInvalidRequest("message is required")
	}

	sess, created, err := s.sessions.LoadOrCreate(req.ChatId)
	if err != nil {
		return nil, s.sessionError(req.ChatId, err)
	}
	if !sess.TryLock() {
		return nil, apperror.NewConflict("another turn is in progress for this chat")
	}
	defer sess.Unlock()

	turn, err := s.orchestrator.Converse(ctx, sess, req.Message)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyMessage) {
			return nil, apperror.NewInvalidRequest(err.Error())
		}
		return nil, apperror.NewInternal(err)
	}
	s.sessions.Save(sess)

	if created {
		s.publish(events.NewSessionStarted(sess.ID, string(sess.Mode)))
	}

	return &dto.ChatResponse{
		ChatId:             turn.SessionID,
		Mode:               string(turn.Mode),
		MostRecentResponse: turn.Response,
		ReadyToSearch:      turn.ReadyToSearch,
		Summary:            nonNil(turn.Summary),
		Notes:              turn.Notes,
	}, nil
}

// LoadPaper opens a discussion session about one paper. When the paper was
// found through an existing chat, that chat's intent seeds the discussion.
func (s *researchService) LoadPaper(ctx context.Context, req *dto.LoadPaperRequest) (*dto.LoadPaperResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperror.NewInvalidRequest("text is required")
	}

	query := strings.TrimSpace(req.Query)
	if req.SourceChatId != "" {
		src, err := s.sessions.Get(req.SourceChatId)
		if err != nil {
			return nil, s.sessionError(req.SourceChatId, err)
		}
		if query == "" {
			query = intentOf(src.Snapshot())
		}
	}

	sess := s.sessions.CreatePaperDiscussion(strings.TrimSpace(req.Title), req.Text, query)
	s.logger.Info("RESEARCH", "Paper loaded into new discussion", map[string]interface{}{
		"chat_id": sess.ID,
		"title":   sess.PaperTitle,
		"chars":   len(req.Text),
	})
	s.publish(events.NewSessionStarted(sess.ID, string(sess.Mode)))

	return &dto.LoadPaperResponse{ChatId: sess.ID, Mode: string(sess.Mode), Title: sess.PaperTitle}, nil
}

// SearchJob is a validated search waiting to run. Run must be called
// exactly once; it releases the chat lock taken by PrepareSearch.
type SearchJob struct {
	svc     *researchService
	request pipeline.Request
	sess    *store.Session
}

func (s *researchService) PrepareSearch(ctx context.Context, req *dto.SearchRequest) (*SearchJob, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperror.NewInvalidRequest("query is required")
	}
	yearFilter := strings.TrimSpace(req.YearFilter)
	if yearFilter == "" {
		yearFilter = s.cfg.DefaultYearFilter
	}
	if _, ok := scholar.NormalizeYearFilter(yearFilter); !ok {
		return nil, apperror.NewInvalidRequest("year_filter must look like 2020, 2020-, -2020 or 2019-2021")
	}

	job := &SearchJob{
		svc:     s,
		request: pipeline.Request{Query: query, YearFilter: yearFilter, StatusKey: status.GlobalKey},
	}
	if req.ChatId != "" {
		sess, err := s.sessions.Get(req.ChatId)
		if err != nil {
			return nil, s.sessionError(req.ChatId, err)
		}
		if !sess.TryLock() {
			return nil, apperror.NewConflict("another turn is in progress for this chat")
		}
		job.sess = sess
		job.request.StatusKey = sess.ID
	}
	return job, nil
}

// StatusKey is where progress for this search is published.
func (j *SearchJob) StatusKey() string {
	return j.request.StatusKey
}

// Run streams pipeline events to emit. A bound chat moves into results
// discussion once the run completes.
func (j *SearchJob) Run(ctx context.Context, emit pipeline.Emitter) (*pipeline.Result, error) {
	if j.sess != nil {
		defer j.sess.Unlock()
	}

	s := j.svc
	res, err := s.search.Run(ctx, j.request, emit)
	if err != nil {
		s.logger.Warn("RESEARCH", "Search did not complete", map[string]interface{}{
			"query": j.request.Query,
			"error": err.Error(),
		})
		return nil, err
	}

	sessionID := ""
	if j.sess != nil {
		sessionID = j.sess.ID
		s.sessions.BindResults(j.sess, res.Query, res.Papers)
	}

	ids := make([]string, 0, len(res.Papers))
	for _, p := range res.Papers {
		ids = append(ids, p.ID)
	}
	s.publish(events.NewSearchCompleted(sessionID, res.Query, res.RefinedQueries, ids, res.Duration))
	return res, nil
}

func (s *researchService) Timeline(ctx context.Context, req *dto.SynthesisRequest) (*dto.SynthesisResponse, error) {
	papers, err := s.synthesisPapers(req)
	if err != nil {
		return nil, err
	}
	report, err := s.synthesizer.BuildTimeline(ctx, papers, synthesisOptions(req)...)
	if err != nil {
		return nil, synthesisError(err)
	}
	return s.renderReport(req.ChatId, report)
}

func (s *researchService) FutureWork(ctx context.Context, req *dto.SynthesisRequest) (*dto.SynthesisResponse, error) {
	papers, err := s.synthesisPapers(req)
	if err != nil {
		return nil, err
	}
	report, err := s.synthesizer.BuildFutureWork(ctx, papers, req.Cutoff, synthesisOptions(req)...)
	if err != nil {
		return nil, synthesisError(err)
	}
	return s.renderReport(req.ChatId, report)
}

func (s *researchService) synthesisPapers(req *dto.SynthesisRequest) ([]store.Paper, error) {
	if len(req.Papers) > 0 {
		return req.Papers, nil
	}
	if req.ChatId == "" {
		return nil, apperror.NewInvalidRequest("papers or chat_id is required")
	}
	sess, err := s.sessions.Get(req.ChatId)
	if err != nil {
		return nil, s.sessionError(req.ChatId, err)
	}
	results := sess.Snapshot().Results
	if len(results) == 0 {
		return nil, apperror.NewInvalidRequest("chat has no search results yet")
	}
	return results, nil
}

func (s *researchService) renderReport(chatID string, report *synthesis.Report) (*dto.SynthesisResponse, error) {
	html, err := markdown.ToHTML(report.Text)
	if err != nil {
		s.logger.Warn("RESEARCH", "Markdown rendering failed", map[string]interface{}{"error": err.Error()})
	}

	refs := make([]dto.ReferenceDTO, 0, len(report.References))
	for _, r := range report.References {
		refs = append(refs, dto.ReferenceDTO{Marker: r.Marker, PaperId: r.PaperID, Title: r.Title})
	}

	s.publish(events.NewSynthesisGenerated(chatID, string(report.Kind), report.PaperCount, len(refs)))

	return &dto.SynthesisResponse{
		Kind:       string(report.Kind),
		Text:       report.Text,
		Html:       html,
		PaperCount: report.PaperCount,
		References: refs,
	}, nil
}

func (s *researchService) Recommend(ctx context.Context, req *dto.RecommendRequest) ([]store.Paper, error) {
	if len(req.PaperIds) == 0 {
		return nil, apperror.NewInvalidRequest("paper_ids is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.RecommendLimit
	}
	return s.recommender.Recommend(ctx, req.PaperIds, limit), nil
}

func (s *researchService) GetSession(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, s.sessionError(id, err)
	}
	// Served from the last committed state so polling never waits on a turn.
	snap := sess.Snapshot()
	return &dto.SessionResponse{
		ChatId:        snap.ID,
		Mode:          string(snap.Mode),
		ReadyToSearch: snap.ReadyToSearch,
		Summary:       nonNil(snap.Summary),
		Notes:         snap.Notes,
		OriginalQuery: snap.OriginalQuery,
		PaperTitle:    snap.PaperTitle,
		LastResponse:  snap.LastResponse,
		Results:       snap.Results,
		CreatedAt:     snap.CreatedAt,
		UpdatedAt:     snap.UpdatedAt,
	}, nil
}

func (s *researchService) DeleteSession(ctx context.Context, id string) error {
	if err := s.sessions.Delete(id); err != nil {
		return s.sessionError(id, err)
	}
	return nil
}

func (s *researchService) LatestStatus(key string) (*dto.StatusResponse, error) {
	u, ok := s.board.Last(key)
	if !ok {
		return nil, apperror.NewNotFound("status", key)
	}
	return &dto.StatusResponse{Key: u.Key, Message: u.Message, At: u.At}, nil
}

func (s *researchService) SubscribeStatus(ctx context.Context, key string) (<-chan status.Update, error) {
	return s.board.Subscribe(ctx, key)
}

func (s *researchService) sessionError(id string, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return apperror.NewNotFound("chat", id)
	}
	return apperror.NewInternal(err)
}

// publish is fire-and-forget: a missing or unreachable bus never fails a request.
func (s *researchService) publish(ev events.BaseEvent) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("RESEARCH", "Failed to publish event", map[string]interface{}{
			"type":  ev.Type,
			"error": err.Error(),
		})
	}
}

func synthesisOptions(req *dto.SynthesisRequest) []synthesis.Option {
	if req.Citations != nil && !*req.Citations {
		return []synthesis.Option{synthesis.WithoutCitations()}
	}
	return nil
}

func synthesisError(err error) error {
	if errors.Is(err, synthesis.ErrNoDatedPapers) {
		return apperror.NewUnprocessable(err.Error())
	}
	if errors.Is(err, synthesis.ErrNoPapers) {
		return apperror.NewInvalidRequest(err.Error())
	}
	return apperror.NewInternal(err)
}

// intentOf describes what a chat was about, for seeding a paper discussion.
func intentOf(sess store.Snapshot) string {
	if sess.OriginalQuery != "" {
		return sess.OriginalQuery
	}
	return strings.Join(sess.Summary, " ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
