// Package markup implements the in-band delimiter protocol the model uses:
// a [bracketed] span carries the search-ready summary or a refined query,
// and <<double angle brackets>> carry private notes that never reach the user.
package markup

import (
	"regexp"
	"strings"
)

const LineBreak = "<br />"

var (
	bracketPattern    = regexp.MustCompile(`(?s)\[(.*?)\]`)
	scratchPadPattern = regexp.MustCompile(`(?s)<<(.*?)>>`)

	// Echoes of the instruction text itself, never a real summary.
	bracketArtifacts = []string{"[brackets]", "[]"}
)

// ExtractBrackets returns the contents of every [..] span in order.
func ExtractBrackets(text string) []string {
	matches := bracketPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// StripBracketMarkers removes the bracket characters but keeps their content.
func StripBracketMarkers(text string) string {
	return bracketPattern.ReplaceAllString(text, "$1")
}

func StripArtifacts(text string) string {
	for _, a := range bracketArtifacts {
		text = strings.ReplaceAll(text, a, "")
	}
	return text
}

// ExtractScratchPad returns the contents of every <<..>> span in order.
func ExtractScratchPad(text string) []string {
	matches := scratchPadPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func StripScratchPad(text string) string {
	return scratchPadPattern.ReplaceAllString(text, "")
}

// NormalizeLineBreaks converts newlines to the HTML break used for display.
func NormalizeLineBreaks(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", LineBreak)
}

// NonEmpty trims items and drops the blank ones.
func NonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Clarification is a clarifying-turn response split into its parts.
type Clarification struct {
	Display string
	Summary []string
	Ready   bool
}

// ParseClarification decides readiness: only a non-empty first bracketed
// span counts as a search-ready summary.
func ParseClarification(raw string) Clarification {
	text := StripArtifacts(raw)
	spans := ExtractBrackets(text)

	var c Clarification
	if len(spans) > 0 && strings.TrimSpace(spans[0]) != "" {
		c.Ready = true
		c.Summary = NonEmpty(spans)
		text = StripBracketMarkers(text)
	}
	c.Display = NormalizeLineBreaks(text)
	return c
}

// Discussion is a discussion-turn response split into its parts.
type Discussion struct {
	Display string
	Notes   []string
}

func ParseDiscussion(raw string) Discussion {
	return Discussion{
		Notes:   NonEmpty(ExtractScratchPad(raw)),
		Display: NormalizeLineBreaks(strings.TrimSpace(StripScratchPad(raw))),
	}
}

// ParseQueries extracts bracketed queries, deduplicated in order of first
// appearance. Falls back to the original query when none are present.
func ParseQueries(raw, original string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range NonEmpty(ExtractBrackets(raw)) {
		if seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	if len(out) == 0 {
		return []string{original}
	}
	return out
}
