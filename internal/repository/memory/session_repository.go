package memory

import (
	"research-assistant-be/pkg/store"
	"time"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository keeps sessions for ttl after their last save and
// purges expired ones every ttl/6.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := cache.New(ttl, ttl/6)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) bool {
	if _, found := r.cache.Get(sessionID); !found {
		return false
	}
	r.cache.Delete(sessionID)
	return true
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
