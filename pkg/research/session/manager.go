package session

import (
	"errors"
	"time"

	"research-assistant-be/internal/repository/memory"
	"research-assistant-be/pkg/store"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Manager handles session lifecycle on top of the in-memory repository
type Manager struct {
	sessionRepo *memory.SessionRepository
	now         func() time.Time
}

func NewManager(sessionRepo *memory.SessionRepository) *Manager {
	return &Manager{sessionRepo: sessionRepo, now: time.Now}
}

// Create opens a new clarifying session under a fresh opaque id.
func (m *Manager) Create() *store.Session {
	s := store.NewSession(uuid.NewString(), m.now())
	m.sessionRepo.Save(s)
	return s
}

// CreatePaperDiscussion opens a session that discusses a single paper.
func (m *Manager) CreatePaperDiscussion(title, text, originalQuery string) *store.Session {
	s := store.NewSession(uuid.NewString(), m.now())
	s.Mode = store.ModeDiscussingPaper
	s.PaperTitle = title
	s.PaperText = text
	s.OriginalQuery = originalQuery
	s.Commit()
	m.sessionRepo.Save(s)
	return s
}

func (m *Manager) Get(id string) (*store.Session, error) {
	s, ok := m.sessionRepo.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// LoadOrCreate returns the session for id, or a new one when id is empty.
func (m *Manager) LoadOrCreate(id string) (*store.Session, bool, error) {
	if id == "" {
		return m.Create(), true, nil
	}
	s, err := m.Get(id)
	if err != nil {
		return nil, false, err
	}
	return s, false, nil
}

// BindResults moves a session into results discussion, seeded with papers.
// The first discussion turn after binding starts a fresh transcript.
func (m *Manager) BindResults(s *store.Session, query string, papers []store.Paper) {
	s.Mode = store.ModeDiscussingResults
	s.OriginalQuery = query
	s.Results = papers
	s.Started = false
	s.History = ""
	s.Notes = ""
	m.Save(s)
}

// Save commits session state for readers and refreshes its expiry. The
// caller must own the session's turn lock.
func (m *Manager) Save(s *store.Session) {
	s.UpdatedAt = m.now()
	s.Commit()
	m.sessionRepo.Save(s)
}

func (m *Manager) Delete(id string) error {
	if !m.sessionRepo.Delete(id) {
		return ErrNotFound
	}
	return nil
}
