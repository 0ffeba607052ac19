package store

// Paper is a search result as it flows through ranking and synthesis.
type Paper struct {
	ID              string   `json:"paper_id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	Authors         []string `json:"authors"`
	PublicationDate string   `json:"publication_date"` // YYYY-MM-DD or empty
	CitationCount   int      `json:"citation_count"`
	Abstract        string   `json:"abstract,omitempty"`
	TLDR            string   `json:"tldr,omitempty"`
	PDFURL          string   `json:"pdf_url,omitempty"`
	RelevanceScore  float64  `json:"relevance"`
	Summary         string   `json:"summary,omitempty"`
}

// HasDate reports whether the paper carries a publication date.
func (p Paper) HasDate() bool {
	return p.PublicationDate != ""
}
