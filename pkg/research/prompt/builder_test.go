package prompt

import (
	"strings"
	"testing"

	"research-assistant-be/pkg/store"
)

func TestClarifyNextExtendsHistory(t *testing.T) {
	history := ClarifyFirst("gnn traffic") + "Which cities?"
	next := ClarifyNext(history, "Any city")

	if !strings.HasPrefix(next, history) {
		t.Fatalf("next prompt must start with the history")
	}
	if !strings.HasSuffix(next, "Researcher: Any city\n\nAI Assistant: ") {
		t.Errorf("unexpected suffix: %q", next[len(history):])
	}
}

func TestDiscussNextIncludesNotesOnlyWhenPresent(t *testing.T) {
	without := DiscussNext("H", "q", "  ")
	if strings.Contains(without, "Notes to self") {
		t.Errorf("empty notes should be omitted: %q", without)
	}

	with := DiscussNext("H", "q", "user wants code\n")
	want := "H\n\nResearcher: q\n\nNotes to self: user wants code\n\nExpert Assistant: "
	if with != want {
		t.Errorf("DiscussNext() = %q, want %q", with, want)
	}
}

func TestStopsFor(t *testing.T) {
	stops := StopsFor(ExpertLabel)
	if len(stops) != 6 {
		t.Fatalf("expected 6 stops, got %d", len(stops))
	}
	if stops[4] != "\nExpert Assistant:" {
		t.Errorf("unexpected stop %q", stops[4])
	}
}

func TestTimelineListsEveryCitedPaper(t *testing.T) {
	p := Timeline([]CitedPaper{
		{Marker: "[1]", Paper: store.Paper{Title: "B", PublicationDate: "2023-01-01", Summary: "second"}},
		{Marker: "[2]", Paper: store.Paper{Title: "A", PublicationDate: "2021-05-01"}},
	})

	if !strings.Contains(p, "- 2023-01-01: B [1]: second\n") {
		t.Errorf("missing first entry in %q", p)
	}
	if !strings.Contains(p, "- 2021-05-01: A [2]: No summary available\n") {
		t.Errorf("missing placeholder entry in %q", p)
	}
}
