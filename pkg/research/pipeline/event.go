package pipeline

import (
	"research-assistant-be/pkg/store"
)

type EventType string

const (
	EventRefinedQuery EventType = "refined_query"
	EventPapers       EventType = "papers"
	EventRelevance    EventType = "relevance"
	EventSummary      EventType = "summary"
)

// Event is one NDJSON record of the search stream.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// PaperCard is the shape of a paper inside a papers batch.
type PaperCard struct {
	PaperID         string   `json:"paper_id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	PublicationDate string   `json:"publication_date"`
	CitationCount   int      `json:"citation_count"`
	Authors         []string `json:"authors"`
	PDFURL          string   `json:"pdf_url"`
	Abstract        string   `json:"abstract"`
	TLDR            string   `json:"tldr,omitempty"`
}

type RelevanceData struct {
	PaperID   string  `json:"paper_id"`
	Relevance float64 `json:"relevance"`
}

type SummaryData struct {
	PaperID string `json:"paper_id"`
	Summary string `json:"summary"`
}

func toCards(papers []store.Paper) []PaperCard {
	cards := make([]PaperCard, 0, len(papers))
	for _, p := range papers {
		cards = append(cards, PaperCard{
			PaperID:         p.ID,
			Title:           p.Title,
			URL:             p.URL,
			PublicationDate: p.PublicationDate,
			CitationCount:   p.CitationCount,
			Authors:         p.Authors,
			PDFURL:          p.PDFURL,
			Abstract:        p.Abstract,
			TLDR:            p.TLDR,
		})
	}
	return cards
}
