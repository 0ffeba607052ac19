package status

import (
	"context"
	"testing"
	"time"

	"research-assistant-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoard(t *testing.T) *Board {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return NewBoard(ps, logger.NewNopLogger())
}

func TestLastWriterWins(t *testing.T) {
	b := newBoard(t)

	_, ok := b.Last("s1")
	assert.False(t, ok)

	b.Publish("s1", "Searching for relevant papers...")
	b.Publish("s1", "Rating paper relevance...")
	b.Publish("", "idle")

	u, ok := b.Last("s1")
	require.True(t, ok)
	assert.Equal(t, "Rating paper relevance...", u.Message)

	g, ok := b.Last(GlobalKey)
	require.True(t, ok)
	assert.Equal(t, "idle", g.Message)
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	b := newBoard(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish("k", "tick")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked")
	}
}

func TestSubscribeFiltersByKey(t *testing.T) {
	b := newBoard(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := b.Subscribe(ctx, "s2")
	require.NoError(t, err)

	b.Publish("s1", "not for us")
	b.Publish("s2", "Search complete.")

	select {
	case u := <-updates:
		assert.Equal(t, "s2", u.Key)
		assert.Equal(t, "Search complete.", u.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, open := <-updates:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
