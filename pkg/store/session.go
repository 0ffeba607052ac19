package store

import (
	"sync"
	"time"
)

// Mode is the conversation phase a session is in.
type Mode string

const (
	ModeClarifying        Mode = "CLARIFYING"
	ModeDiscussingPaper   Mode = "DISCUSSING_PAPER"
	ModeDiscussingResults Mode = "DISCUSSING_SEARCH_RESULTS"
)

// Session represents one research conversation held in memory
type Session struct {
	ID   string `json:"id"`
	Mode Mode   `json:"mode"`

	// History is the literal transcript: the last prompt sent to the model
	// followed by its raw response.
	History string `json:"history"`

	// Clarifying phase
	ReadyToSearch bool     `json:"ready_to_search"`
	Summary       []string `json:"summary"`

	// Discussion phase
	Notes         string  `json:"notes"`
	Started       bool    `json:"started"`
	OriginalQuery string  `json:"original_query"`
	PaperTitle    string  `json:"paper_title,omitempty"`
	PaperText     string  `json:"-"`
	Results       []Paper `json:"results,omitempty"`

	LastResponse string    `json:"last_response"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	mu sync.Mutex

	snapMu    sync.RWMutex
	committed Snapshot
}

// Snapshot is a read-only copy of the last committed session state.
type Snapshot struct {
	ID            string
	Mode          Mode
	ReadyToSearch bool
	Summary       []string
	Notes         string
	OriginalQuery string
	PaperTitle    string
	LastResponse  string
	Results       []Paper
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSession starts a conversation in the clarifying phase.
func NewSession(id string, now time.Time) *Session {
	s := &Session{
		ID:        id,
		Mode:      ModeClarifying,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Commit()
	return s
}

// TryLock claims the session for one turn. A false return means another
// turn is already in flight.
func (s *Session) TryLock() bool {
	return s.mu.TryLock()
}

func (s *Session) Unlock() {
	s.mu.Unlock()
}

// IsDiscussing reports whether the session is past clarification.
func (s *Session) IsDiscussing() bool {
	return s.Mode == ModeDiscussingPaper || s.Mode == ModeDiscussingResults
}

// Commit publishes the current fields to readers. Only the owner of the
// session (the turn holding the lock, or its creator) may call it.
func (s *Session) Commit() {
	snap := Snapshot{
		ID:            s.ID,
		Mode:          s.Mode,
		ReadyToSearch: s.ReadyToSearch,
		Summary:       append([]string(nil), s.Summary...),
		Notes:         s.Notes,
		OriginalQuery: s.OriginalQuery,
		PaperTitle:    s.PaperTitle,
		LastResponse:  s.LastResponse,
		Results:       append([]Paper(nil), s.Results...),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}

	s.snapMu.Lock()
	s.committed = snap
	s.snapMu.Unlock()
}

// Snapshot returns the last committed state without waiting for a turn in
// flight. Slices are copies the caller may keep.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	snap := s.committed
	s.snapMu.RUnlock()

	snap.Summary = append([]string(nil), snap.Summary...)
	snap.Results = append([]Paper(nil), snap.Results...)
	return snap
}
