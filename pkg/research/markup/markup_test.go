package markup

import (
	"reflect"
	"testing"
)

func TestParseClarification(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantReady   bool
		wantSummary []string
		wantDisplay string
	}{
		{
			name:        "question only",
			raw:         "Which years are you interested in?\nAny venue?",
			wantReady:   false,
			wantDisplay: "Which years are you interested in?<br />Any venue?",
		},
		{
			name:        "summary span",
			raw:         "Great, here is the summary:\n[GNNs for traffic forecasting, 2021 onward]",
			wantReady:   true,
			wantSummary: []string{"GNNs for traffic forecasting, 2021 onward"},
			wantDisplay: "Great, here is the summary:<br />GNNs for traffic forecasting, 2021 onward",
		},
		{
			name:        "empty first span does not count",
			raw:         "Put it in [ ] later. [real summary]",
			wantReady:   false,
			wantDisplay: "Put it in [ ] later. [real summary]",
		},
		{
			name:        "instruction echo is ignored",
			raw:         "I will use [brackets] once ready.",
			wantReady:   false,
			wantDisplay: "I will use  once ready.",
		},
		{
			name:        "multi-line summary",
			raw:         "[topic: protein folding\nyears: 2020-]",
			wantReady:   true,
			wantSummary: []string{"topic: protein folding\nyears: 2020-"},
			wantDisplay: "topic: protein folding<br />years: 2020-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseClarification(tt.raw)
			if got.Ready != tt.wantReady {
				t.Errorf("Ready = %v, want %v", got.Ready, tt.wantReady)
			}
			if !reflect.DeepEqual(got.Summary, tt.wantSummary) {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if got.Display != tt.wantDisplay {
				t.Errorf("Display = %q, want %q", got.Display, tt.wantDisplay)
			}
		})
	}
}

func TestParseDiscussion(t *testing.T) {
	raw := "<<user cares about latency>>The paper uses a GRU encoder.\n<< check ablations >>\n"

	got := ParseDiscussion(raw)

	wantNotes := []string{"user cares about latency", "check ablations"}
	if !reflect.DeepEqual(got.Notes, wantNotes) {
		t.Errorf("Notes = %q, want %q", got.Notes, wantNotes)
	}
	if got.Display != "The paper uses a GRU encoder." {
		t.Errorf("Display = %q", got.Display)
	}
}

func TestParseQueries(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"two queries", "[gnn AND traffic] [graph neural network forecasting]", []string{"gnn AND traffic", "graph neural network forecasting"}},
		{"duplicates collapse", "[a] [a] [b]", []string{"a", "b"}},
		{"whitespace only falls back", "[  ]", []string{"original"}},
		{"no brackets falls back", "sorry, I cannot help", []string{"original"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseQueries(tt.raw, "original"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseQueries() = %q, want %q", got, tt.want)
			}
		})
	}
}
