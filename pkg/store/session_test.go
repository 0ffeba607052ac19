package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotShowsOnlyCommittedState(t *testing.T) {
	s := NewSession("s1", time.Unix(0, 0))
	assert.Equal(t, ModeClarifying, s.Snapshot().Mode)

	s.Mode = ModeDiscussingResults
	s.Results = []Paper{{ID: "a"}}
	assert.Equal(t, ModeClarifying, s.Snapshot().Mode)
	assert.Empty(t, s.Snapshot().Results)

	s.Commit()
	snap := s.Snapshot()
	assert.Equal(t, ModeDiscussingResults, snap.Mode)
	assert.Equal(t, []Paper{{ID: "a"}}, snap.Results)
}

func TestSnapshotSlicesAreCopies(t *testing.T) {
	s := NewSession("s1", time.Now())
	s.Summary = []string{"gnn"}
	s.Results = []Paper{{ID: "a"}}
	s.Commit()

	s.Summary[0] = "live edit"
	snap := s.Snapshot()
	assert.Equal(t, []string{"gnn"}, snap.Summary)

	snap.Results[0].ID = "caller edit"
	assert.Equal(t, "a", s.Snapshot().Results[0].ID)
}
