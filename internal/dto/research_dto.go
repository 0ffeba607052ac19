package dto

import (
	"time"

	"research-assistant-be/pkg/store"
)

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	ChatId  string `json:"chat_id,omitempty"`
}

type ChatResponse struct {
	ChatId             string   `json:"chat_id"`
	Mode               string   `json:"mode"`
	MostRecentResponse string   `json:"most_recent_response"`
	ReadyToSearch      bool     `json:"ready_to_search"`
	Summary            []string `json:"summary"`
	Notes              string   `json:"notes,omitempty"`
}

// LoadPaperRequest carries text already extracted from a paper.
type LoadPaperRequest struct {
	Text         string `json:"text" validate:"required"`
	Title        string `json:"title,omitempty"`
	Query        string `json:"query,omitempty"`
	SourceChatId string `json:"source_chat_id,omitempty"`
}

type LoadPaperResponse struct {
	ChatId string `json:"chat_id"`
	Mode   string `json:"mode"`
	Title  string `json:"title,omitempty"`
}

type SearchRequest struct {
	Query      string `json:"query" validate:"required"`
	YearFilter string `json:"year_filter,omitempty"`
	ChatId     string `json:"chat_id,omitempty"`
}

// SynthesisRequest takes papers inline or falls back to the results of
// the session named by chat_id.
type SynthesisRequest struct {
	Papers    []store.Paper `json:"papers,omitempty"`
	ChatId    string        `json:"chat_id,omitempty"`
	Cutoff    int           `json:"cutoff,omitempty" validate:"omitempty,min=1"`
	Citations *bool         `json:"citations,omitempty"`
}

type ReferenceDTO struct {
	Marker  string `json:"marker"`
	PaperId string `json:"paper_id"`
	Title   string `json:"title"`
}

type SynthesisResponse struct {
	Kind       string         `json:"kind"`
	Text       string         `json:"text"`
	Html       string         `json:"html"`
	PaperCount int            `json:"paper_count"`
	References []ReferenceDTO `json:"references"`
}

type RecommendRequest struct {
	PaperIds []string `json:"paper_ids" validate:"required,min=1,dive,required"`
	Limit    int      `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

type SessionResponse struct {
	ChatId        string        `json:"chat_id"`
	Mode          string        `json:"mode"`
	ReadyToSearch bool          `json:"ready_to_search"`
	Summary       []string      `json:"summary"`
	Notes         string        `json:"notes,omitempty"`
	OriginalQuery string        `json:"original_query,omitempty"`
	PaperTitle    string        `json:"paper_title,omitempty"`
	LastResponse  string        `json:"last_response"`
	Results       []store.Paper `json:"results,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type StatusResponse struct {
	Key     string    `json:"key"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
