package memory

import (
	"context"
	"sync"
	"time"

	"trivia-quiz-service/internal/trivia"
)

// TokenStore keeps the trivia session token in process memory.
type TokenStore struct {
	mu    sync.RWMutex
	token trivia.Token
	ok    bool
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) Load(_ context.Context) (trivia.Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.ok, nil
}

func (s *TokenStore) Save(_ context.Context, token trivia.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.ok = true
	return nil
}

func (s *TokenStore) Discard(_ context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ok || s.token.Value != value {
		return false, nil
	}
	s.token = trivia.Token{}
	s.ok = false
	return true, nil
}

func (s *TokenStore) Extend(_ context.Context, value string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ok || s.token.Value != value {
		return false, nil
	}
	s.token.ExpiresAt = expiresAt
	return true, nil
}
