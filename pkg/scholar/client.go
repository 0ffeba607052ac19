package scholar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/store"

	"github.com/cenkalti/backoff/v5"
)

const (
	searchPath    = "/graph/v1/paper/search"
	recommendPath = "/recommendations/v1/papers"

	searchFields    = "title,url,abstract,publicationTypes,publicationDate,openAccessPdf,citationCount,authors,paperId,tldr"
	recommendFields = "title,url,abstract,citationCount,authors,publicationDate,openAccessPdf,paperId,tldr"
)

// Accepted year filters: 2021, 2021-, -2021, 2019-2021.
var yearFilterPattern = regexp.MustCompile(`^(\d{4}(-(\d{4})?)?|-\d{4})$`)

type Config struct {
	BaseURL      string
	APIKey       string
	PageSize     int
	MaxPages     int
	PageDelay    time.Duration // minimum gap between two requests
	Timeout      time.Duration // per request
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client searches the Semantic Scholar Graph API. All failures are logged
// and surface as empty or partial results.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  Cache
	logger logger.ILogger
	gate   *requestGate
}

func NewClient(cfg Config, cache Cache, log logger.ILogger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cache == nil {
		cache = NopCache{}
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		logger: log,
		gate:   &requestGate{},
	}
}

// NormalizeYearFilter returns the filter if it is well-formed, else "".
func NormalizeYearFilter(filter string) (string, bool) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return "", true
	}
	if !yearFilterPattern.MatchString(filter) {
		return "", false
	}
	return filter, true
}

func cacheKey(query, yearFilter string) string {
	return "scholar:search:" + yearFilter + ":" + query
}

// Search pages through results for query. It stops at MaxPages, at the
// first short page, or at the first page that still fails after retries;
// whatever was collected up to that point is returned.
func (c *Client) Search(ctx context.Context, query, yearFilter string) []store.Paper {
	year, ok := NormalizeYearFilter(yearFilter)
	if !ok {
		c.logger.Warn("SCHOLAR", "Ignoring invalid year filter", map[string]interface{}{"year_filter": yearFilter})
	}

	key := cacheKey(query, year)
	if papers, hit := c.cache.Get(ctx, key); hit {
		c.logger.Debug("SCHOLAR", "Cache hit", map[string]interface{}{"query": query, "year": year})
		return papers
	}

	var (
		all      []store.Paper
		complete = true
	)
	for page := 0; page < c.cfg.MaxPages; page++ {
		batch, err := c.fetchPage(ctx, query, year, page*c.cfg.PageSize)
		if err != nil {
			c.logger.Error("SCHOLAR", "Search page failed", map[string]interface{}{
				"query": query,
				"page":  page,
				"error": err.Error(),
			})
			complete = false
			break
		}
		all = append(all, batch...)
		if len(batch) < c.cfg.PageSize {
			break
		}
	}

	if complete {
		c.cache.Set(ctx, key, all)
	}
	c.logger.Info("SCHOLAR", "Search finished", map[string]interface{}{
		"query":    query,
		"year":     year,
		"papers":   len(all),
		"complete": complete,
	})
	return all
}

func (c *Client) fetchPage(ctx context.Context, query, year string, offset int) ([]store.Paper, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("fields", searchFields)
	params.Set("limit", strconv.Itoa(c.cfg.PageSize))
	params.Set("offset", strconv.Itoa(offset))
	if year != "" {
		params.Set("year", year)
	}
	endpoint := c.cfg.BaseURL + searchPath + "?" + params.Encode()

	var resp searchResponse
	err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, &resp)
	if err != nil {
		return nil, err
	}
	return toPapers(resp.Data), nil
}

// Recommend returns papers similar to the seeds. Empty seeds or any failure
// yield an empty list.
func (c *Client) Recommend(ctx context.Context, seedIDs []string, limit int) []store.Paper {
	if len(seedIDs) == 0 {
		return []store.Paper{}
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("fields", recommendFields)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := c.cfg.BaseURL + recommendPath + "?" + params.Encode()

	body, err := json.Marshal(recommendRequest{PositivePaperIDs: seedIDs})
	if err != nil {
		return []store.Paper{}
	}

	var resp recommendResponse
	err = c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &resp)
	if err != nil {
		c.logger.Error("SCHOLAR", "Recommendations failed", map[string]interface{}{
			"seeds": len(seedIDs),
			"error": err.Error(),
		})
		return []store.Paper{}
	}
	return toPapers(resp.RecommendedPapers)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("semantic scholar error: status %d, body: %s", e.code, e.body)
}

func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error), out interface{}) error {
	var b backoff.BackOff = backoff.NewConstantBackOff(0)
	if c.cfg.RetryBackoff > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.cfg.RetryBackoff
		b = eb
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		req, err := build()
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if c.cfg.APIKey != "" {
			req.Header.Set("x-api-key", c.cfg.APIKey)
		}
		return struct{}{}, c.do(ctx, req, out)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries)),
		backoff.WithMaxElapsedTime(time.Duration(c.cfg.MaxRetries+1)*(c.cfg.Timeout+c.cfg.PageDelay+10*c.cfg.RetryBackoff)),
	)
	return err
}

func (c *Client) do(ctx context.Context, req *http.Request, out interface{}) error {
	if err := c.gate.wait(ctx); err != nil {
		return backoff.Permanent(err)
	}
	defer c.gate.release(c.cfg.PageDelay)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("semantic scholar request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		serr := &statusError{code: resp.StatusCode, body: truncate(string(bodyBytes), 200)}
		// client errors other than rate limiting will not improve on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(serr)
		}
		return serr
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}
	return nil
}

// requestGate spaces out requests so that consecutive calls from this
// client, including concurrent searches, are at least a delay apart.
type requestGate struct {
	mu      sync.Mutex
	readyAt time.Time
}

// wait blocks until the next request may fire and returns holding the gate.
func (g *requestGate) wait(ctx context.Context) error {
	g.mu.Lock()
	if d := time.Until(g.readyAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			g.mu.Unlock()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (g *requestGate) release(delay time.Duration) {
	g.readyAt = time.Now().Add(delay)
	g.mu.Unlock()
}

// --- Wire types ---

type apiPaper struct {
	PaperID         string `json:"paperId"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	Abstract        string `json:"abstract"`
	PublicationDate string `json:"publicationDate"`
	CitationCount   int    `json:"citationCount"`
	Authors         []struct {
		AuthorID string `json:"authorId"`
		Name     string `json:"name"`
	} `json:"authors"`
	OpenAccessPdf *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
	TLDR *struct {
		Text string `json:"text"`
	} `json:"tldr"`
}

type searchResponse struct {
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Data   []apiPaper `json:"data"`
}

type recommendRequest struct {
	PositivePaperIDs []string `json:"positivePaperIds"`
}

type recommendResponse struct {
	RecommendedPapers []apiPaper `json:"recommendedPapers"`
}

func toPapers(in []apiPaper) []store.Paper {
	out := make([]store.Paper, 0, len(in))
	for _, p := range in {
		if p.PaperID == "" {
			continue
		}
		paper := store.Paper{
			ID:              p.PaperID,
			Title:           p.Title,
			URL:             p.URL,
			Abstract:        p.Abstract,
			PublicationDate: p.PublicationDate,
			CitationCount:   p.CitationCount,
			Authors:         make([]string, 0, len(p.Authors)),
		}
		if paper.Title == "" {
			paper.Title = "Untitled"
		}
		for _, a := range p.Authors {
			paper.Authors = append(paper.Authors, a.Name)
		}
		if p.OpenAccessPdf != nil {
			paper.PDFURL = p.OpenAccessPdf.URL
		}
		if p.TLDR != nil {
			paper.TLDR = p.TLDR.Text
		}
		out = append(out, paper)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
