package redis

import (
	"context"
	"sync"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Live session state (players, timers, round cursor) stays in a local
//     map; the engine's serialization discipline depends on in-process locks.
//   - Redis marks session liveness, which doubles as cross-instance code
//     collision detection: SETNX fails if another instance already owns the
//     code.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Create(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := session.Code()
	if _, ok := s.sessions[code]; ok {
		return domain.ErrCodeTaken
	}
	ok, err := s.client.SetNX(context.Background(), s.key(code), "1", s.ttl).Result()
	if err == nil && !ok {
		return domain.ErrCodeTaken
	}
	// Redis being down degrades to local-only collision detection.
	s.sessions[code] = session
	return nil
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

// ForEach visits a snapshot of current sessions. fn runs without the store
// lock held, so it may call Delete.
func (s *SessionStore) ForEach(fn func(*app.Session)) {
	s.mu.RLock()
	snapshot := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		snapshot = append(snapshot, session)
	}
	s.mu.RUnlock()

	for _, session := range snapshot {
		fn(session)
	}
}

func (s *SessionStore) key(code string) string {
	return "trivia:session:" + code
}
