package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Live sessions stay in a local map; timers and background loading are
//     process-local and are never resumed elsewhere.
//   - Each Save mirrors a snapshot into a Redis hash with a TTL so operators
//     (and other instances) can see which sessions are in play.
//
// Hash layout: HSET quiz:session:{id} difficulty category cursor loaded expected score loading completed
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

func (s *SessionStore) Save(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	snap := session.Snapshot()
	ctx := context.Background()
	key := s.key(snap.SessionID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key,
		"difficulty", string(snap.Difficulty),
		"category", snap.Category.Name,
		"cursor", snap.CurrentQuestionIndex,
		"loaded", snap.LoadedQuestions,
		"expected", snap.ExpectedTotalQuestions,
		"score", snap.Score,
		"loading", strconv.FormatBool(snap.LoadingMoreQuestions),
		"completed", strconv.FormatBool(snap.Completed),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	// best-effort mirror
	_, _ = pipe.Exec(ctx)
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
