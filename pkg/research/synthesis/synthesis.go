package synthesis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/llm"
	"research-assistant-be/pkg/research/prompt"
	"research-assistant-be/pkg/store"
)

const (
	referencesHeader = "\n\n## References\n\n"
	maxAuthors       = 5
)

var (
	ErrNoPapers      = errors.New("no papers available to synthesize")
	ErrNoDatedPapers = fmt.Errorf("%w: none of the papers has a publication date", ErrNoPapers)

	markerPattern = regexp.MustCompile(`\[(\d+)\]`)
)

type Kind string

const (
	KindTimeline   Kind = "timeline"
	KindFutureWork Kind = "future_work"
)

// Reference is one bibliography entry that made it into a report.
type Reference struct {
	Marker  string `json:"marker"`
	PaperID string `json:"paper_id"`
	Title   string `json:"title"`
}

type Report struct {
	Kind       Kind        `json:"kind"`
	Text       string      `json:"text"`
	References []Reference `json:"references"`
	PaperCount int         `json:"paper_count"`
}

type options struct {
	citations bool
}

type Option func(*options)

// WithoutCitations drops markers from the prompt and skips the bibliography.
func WithoutCitations() Option {
	return func(o *options) { o.citations = false }
}

type Generator struct {
	llm           llm.Generator
	logger        logger.ILogger
	defaultCutoff int
}

func New(gen llm.Generator, log logger.ILogger, defaultCutoff int) *Generator {
	return &Generator{llm: gen, logger: log, defaultCutoff: defaultCutoff}
}

// BuildTimeline narrates the dated papers newest first.
func (g *Generator) BuildTimeline(ctx context.Context, papers []store.Paper, opts ...Option) (*Report, error) {
	if len(papers) == 0 {
		return nil, ErrNoPapers
	}

	dated := make([]store.Paper, 0, len(papers))
	for _, p := range papers {
		if p.HasDate() {
			dated = append(dated, p)
		}
	}
	if len(dated) == 0 {
		return nil, ErrNoDatedPapers
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].PublicationDate > dated[j].PublicationDate
	})

	return g.build(ctx, KindTimeline, dated, prompt.Timeline, opts)
}

// BuildFutureWork proposes research directions from the cutoff most
// relevant papers. A cutoff of zero or less uses the configured default,
// and a non-positive default keeps every paper.
func (g *Generator) BuildFutureWork(ctx context.Context, papers []store.Paper, cutoff int, opts ...Option) (*Report, error) {
	if len(papers) == 0 {
		return nil, ErrNoPapers
	}
	if cutoff <= 0 {
		cutoff = g.defaultCutoff
	}

	ranked := make([]store.Paper, len(papers))
	copy(ranked, papers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	if cutoff > 0 && len(ranked) > cutoff {
		ranked = ranked[:cutoff]
	}

	return g.build(ctx, KindFutureWork, ranked, prompt.FutureWork, opts)
}

func (g *Generator) build(ctx context.Context, kind Kind, papers []store.Paper, render func([]prompt.CitedPaper) string, opts []Option) (*Report, error) {
	o := options{citations: true}
	for _, opt := range opts {
		opt(&o)
	}

	cited := make([]prompt.CitedPaper, len(papers))
	for i, p := range papers {
		cited[i] = prompt.CitedPaper{Paper: p}
		if o.citations {
			cited[i].Marker = marker(i + 1)
		}
	}

	text := strings.TrimSpace(g.llm.Generate(ctx, render(cited), prompt.SynthesisStops...))
	if text == "" {
		g.logger.Warn("SYNTHESIS", "Model returned no text", map[string]interface{}{
			"kind":   string(kind),
			"papers": len(papers),
		})
	}

	report := &Report{Kind: kind, PaperCount: len(papers), References: []Reference{}}
	if o.citations {
		text = StripUnknownMarkers(text, len(papers))
		var bib string
		bib, report.References = Bibliography(cited, text)
		text += bib
	}
	report.Text = text

	g.logger.Info("SYNTHESIS", "Report generated", map[string]interface{}{
		"kind":       string(kind),
		"papers":     len(papers),
		"references": len(report.References),
	})
	return report, nil
}

// StripUnknownMarkers removes [n] markers that do not point at one of the
// first count papers.
func StripUnknownMarkers(text string, count int) string {
	return markerPattern.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || n < 1 || n > count {
			return ""
		}
		return m
	})
}

// Bibliography lists, in citation order, the papers whose marker appears in
// text. It returns "" when nothing was cited.
func Bibliography(cited []prompt.CitedPaper, text string) (string, []Reference) {
	var b strings.Builder
	refs := []Reference{}
	for _, cp := range cited {
		if cp.Marker == "" || !strings.Contains(text, cp.Marker) {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(referencesHeader)
		}
		fmt.Fprintf(&b, "%s %s - %s\n\n", cp.Marker, cp.Paper.Title, authorList(cp.Paper.Authors))
		refs = append(refs, Reference{Marker: cp.Marker, PaperID: cp.Paper.ID, Title: cp.Paper.Title})
	}
	return strings.TrimRight(b.String(), "\n"), refs
}

func authorList(authors []string) string {
	if len(authors) > maxAuthors {
		return strings.Join(authors[:maxAuthors], ", ") + " et al."
	}
	return strings.Join(authors, ", ")
}

func marker(n int) string {
	return "[" + strconv.Itoa(n) + "]"
}
