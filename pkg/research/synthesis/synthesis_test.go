package synthesis

import (
	"context"
	"strings"
	"testing"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/research/prompt"
	"research-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedLLM struct {
	answer string
	prompt string
	stops  []string
}

func (c *cannedLLM) Generate(_ context.Context, p string, stops ...string) string {
	c.prompt = p
	c.stops = stops
	return c.answer
}

func samplePapers() []store.Paper {
	return []store.Paper{
		{ID: "old", Title: "Old Work", PublicationDate: "2019-05-01", RelevanceScore: 30, Authors: []string{"Ann"}},
		{ID: "undated", Title: "Undated", RelevanceScore: 95},
		{ID: "new", Title: "New Work", PublicationDate: "2023-01-10", RelevanceScore: 80, Summary: "new summary",
			Authors: []string{"A1", "A2", "A3", "A4", "A5", "A6"}},
		{ID: "mid", Title: "Mid Work", PublicationDate: "2021-07-15", RelevanceScore: 80},
	}
}

func TestTimelineOrdersByDateAndCitesOnlyUsedPapers(t *testing.T) {
	gen := &cannedLLM{answer: "- 2021: Mid Work advanced things [2]\n- 2023: more [7]"}
	g := New(gen, logger.NewNopLogger(), 10)

	report, err := g.BuildTimeline(context.Background(), samplePapers())
	require.NoError(t, err)

	assert.Contains(t, gen.prompt, "- 2023-01-10: New Work [1]: new summary\n")
	assert.Contains(t, gen.prompt, "- 2021-07-15: Mid Work [2]: No summary available\n")
	assert.Contains(t, gen.prompt, "- 2019-05-01: Old Work [3]:")
	assert.NotContains(t, gen.prompt, "Undated")
	assert.Equal(t, prompt.SynthesisStops, gen.stops)

	assert.NotContains(t, report.Text, "[7]", "markers past the list are dropped")
	require.Len(t, report.References, 1)
	assert.Equal(t, "mid", report.References[0].PaperID)
	assert.Equal(t, 1, strings.Count(report.Text, "## References"))
	assert.True(t, strings.HasSuffix(report.Text, "\n\n## References\n\n[2] Mid Work - "))
	assert.Equal(t, 3, report.PaperCount)
}

func TestFutureWorkRanksAndTruncates(t *testing.T) {
	gen := &cannedLLM{answer: "Combine [1] with [2]."}
	g := New(gen, logger.NewNopLogger(), 10)

	report, err := g.BuildFutureWork(context.Background(), samplePapers(), 2)
	require.NoError(t, err)

	assert.Contains(t, gen.prompt, "- Undated [1]:\n")
	assert.Contains(t, gen.prompt, "- New Work [2]:\nnew summary\n")
	assert.NotContains(t, gen.prompt, "Mid Work", "ties keep input order so Mid Work falls past the cutoff")
	assert.Equal(t, 2, report.PaperCount)
	assert.Contains(t, report.Text, "[2] New Work - A1, A2, A3, A4, A5 et al.")
	assert.Len(t, report.References, 2)
}

func TestFutureWorkCutoffDefaults(t *testing.T) {
	gen := &cannedLLM{answer: "ideas"}

	report, err := New(gen, logger.NewNopLogger(), 3).BuildFutureWork(context.Background(), samplePapers(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, report.PaperCount)

	report, err = New(gen, logger.NewNopLogger(), 0).BuildFutureWork(context.Background(), samplePapers(), -1)
	require.NoError(t, err)
	assert.Equal(t, 4, report.PaperCount)
	assert.Equal(t, "ideas", report.Text, "no markers, no bibliography")
	assert.Empty(t, report.References)
}

func TestWithoutCitations(t *testing.T) {
	gen := &cannedLLM{answer: "plain [1] text"}
	g := New(gen, logger.NewNopLogger(), 10)

	report, err := g.BuildTimeline(context.Background(), samplePapers(), WithoutCitations())
	require.NoError(t, err)

	assert.NotContains(t, gen.prompt, "[1]")
	assert.Equal(t, "plain [1] text", report.Text)
	assert.Empty(t, report.References)
}

func TestEmptyInputs(t *testing.T) {
	g := New(&cannedLLM{}, logger.NewNopLogger(), 10)

	_, err := g.BuildTimeline(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoPapers)

	_, err = g.BuildTimeline(context.Background(), []store.Paper{{ID: "x"}})
	assert.ErrorIs(t, err, ErrNoPapers)
	assert.ErrorIs(t, err, ErrNoDatedPapers)

	_, err = g.BuildFutureWork(context.Background(), []store.Paper{}, 5)
	assert.ErrorIs(t, err, ErrNoPapers)
}

func TestBibliographyOnlyCitedEntries(t *testing.T) {
	cited := []prompt.CitedPaper{
		{Marker: "[1]", Paper: store.Paper{ID: "a", Title: "A"}},
		{Marker: "[2]", Paper: store.Paper{ID: "b", Title: "B", Authors: []string{"X", "Y"}}},
		{Marker: "[3]", Paper: store.Paper{ID: "c", Title: "C"}},
	}

	bib, refs := Bibliography(cited, "only [2] matters, not [12]")

	assert.Equal(t, "\n\n## References\n\n[2] B - X, Y", bib)
	require.Len(t, refs, 1)
	assert.Equal(t, "b", refs[0].PaperID)

	bib, refs = Bibliography(cited, "nothing cited")
	assert.Empty(t, bib)
	assert.Empty(t, refs)
}

func TestStripUnknownMarkers(t *testing.T) {
	tests := []struct {
		in    string
		count int
		want  string
	}{
		{"see [1] and [3]", 3, "see [1] and [3]"},
		{"see [1] and [4]", 3, "see [1] and "},
		{"[0] is never valid", 3, " is never valid"},
		{"no markers", 0, "no markers"},
		{"[brackets] stay", 1, "[brackets] stay"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripUnknownMarkers(tt.in, tt.count), tt.in)
	}
}
