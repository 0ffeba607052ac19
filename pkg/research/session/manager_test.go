package session

import (
	"testing"
	"time"

	"research-assistant-be/internal/repository/memory"
	"research-assistant-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStartsClarifying(t *testing.T) {
	m := NewManager(memory.NewSessionRepository(time.Hour))

	s := m.Create()

	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ModeClarifying, s.Mode)
	assert.False(t, s.ReadyToSearch)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestLoadOrCreate(t *testing.T) {
	m := NewManager(memory.NewSessionRepository(time.Hour))

	s, created, err := m.LoadOrCreate("")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := m.LoadOrCreate(s.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, s, again)

	_, _, err = m.LoadOrCreate("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBindResultsResetsDiscussion(t *testing.T) {
	m := NewManager(memory.NewSessionRepository(time.Hour))
	s := m.Create()
	s.History = "old transcript"
	s.Started = true

	m.BindResults(s, "graph neural networks", []store.Paper{{ID: "p1"}})

	assert.Equal(t, store.ModeDiscussingResults, s.Mode)
	assert.Equal(t, "graph neural networks", s.OriginalQuery)
	assert.Empty(t, s.History)
	assert.False(t, s.Started)
	assert.Len(t, s.Results, 1)
}

func TestPaperDiscussionAndDelete(t *testing.T) {
	m := NewManager(memory.NewSessionRepository(time.Hour))

	s := m.CreatePaperDiscussion("Attention", "full text", "transformers")
	assert.Equal(t, store.ModeDiscussingPaper, s.Mode)
	assert.True(t, s.IsDiscussing())

	require.NoError(t, m.Delete(s.ID))
	assert.ErrorIs(t, m.Delete(s.ID), ErrNotFound)
}
