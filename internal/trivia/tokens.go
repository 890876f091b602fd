package trivia

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTokenLifetime is how long OpenTDB keeps an idle session token.
const DefaultTokenLifetime = 6 * time.Hour

// Token is a session token and the moment it stops being trusted.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenAPI issues and resets session tokens.
type TokenAPI interface {
	RequestToken(ctx context.Context) (string, error)
	ResetToken(ctx context.Context, token string) error
}

// TokenStore holds the single current token (in-memory, Redis, etc).
// Discard and Extend only act while the store still holds value, so a caller
// holding an old token never clobbers one another caller just acquired.
type TokenStore interface {
	Load(ctx context.Context) (Token, bool, error)
	Save(ctx context.Context, token Token) error
	Discard(ctx context.Context, value string) (bool, error)
	Extend(ctx context.Context, value string, expiresAt time.Time) (bool, error)
}

// TokenManager owns the trivia session token: acquire, invalidate, reset.
// Concurrent Acquire calls share one in-flight token request.
type TokenManager struct {
	api      TokenAPI
	store    TokenStore
	lifetime time.Duration
	now      func() time.Time
	sf       singleflight.Group
}

func NewTokenManager(api TokenAPI, store TokenStore, lifetime time.Duration) *TokenManager {
	return NewTokenManagerWithClock(api, store, lifetime, time.Now)
}

// NewTokenManagerWithClock allows deterministic expiry in tests.
func NewTokenManagerWithClock(api TokenAPI, store TokenStore, lifetime time.Duration, now func() time.Time) *TokenManager {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenManager{api: api, store: store, lifetime: lifetime, now: now}
}

// Acquire returns the cached token while it is fresh, otherwise requests a new one.
// A failed request yields "" so fetches can continue without a token.
func (m *TokenManager) Acquire(ctx context.Context) string {
	if tok, ok := m.fresh(ctx); ok {
		return tok.Value
	}

	v, _, _ := m.sf.Do("token", func() (interface{}, error) {
		if tok, ok := m.fresh(ctx); ok {
			return tok.Value, nil
		}

		value, err := m.api.RequestToken(ctx)
		if err != nil {
			log.Printf("trivia token request failed, continuing without token: %v", err)
			return "", nil
		}
		tok := Token{Value: value, ExpiresAt: m.now().Add(m.lifetime)}
		if err := m.store.Save(ctx, tok); err != nil {
			log.Printf("trivia token save failed: %v", err)
		}
		log.Printf("trivia session token acquired")
		return value, nil
	})
	return v.(string)
}

// Invalidate discards stale so the next Acquire requests a new token.
// A token that already replaced stale is left alone.
func (m *TokenManager) Invalidate(ctx context.Context, stale string) {
	if stale == "" {
		return
	}
	discarded, err := m.store.Discard(ctx, stale)
	if err != nil {
		log.Printf("trivia token discard failed: %v", err)
		return
	}
	if !discarded {
		log.Printf("trivia token already replaced, keeping the current one")
	}
}

// Reset asks the API to forget stale's question history. On success the
// token lifetime is extended; on failure the token is discarded. Nothing
// happens once stale is no longer the current token.
func (m *TokenManager) Reset(ctx context.Context, stale string) {
	if stale == "" {
		return
	}
	tok, ok, err := m.store.Load(ctx)
	if err != nil || !ok || tok.Value != stale {
		return
	}

	if err := m.api.ResetToken(ctx, stale); err != nil {
		log.Printf("trivia token reset failed, discarding token: %v", err)
		m.Invalidate(ctx, stale)
		return
	}

	if _, err := m.store.Extend(ctx, stale, m.now().Add(m.lifetime)); err != nil {
		log.Printf("trivia token save failed: %v", err)
		return
	}
	log.Printf("trivia session token reset")
}

func (m *TokenManager) fresh(ctx context.Context) (Token, bool) {
	tok, ok, err := m.store.Load(ctx)
	if err != nil {
		log.Printf("trivia token load failed: %v", err)
		return Token{}, false
	}
	if !ok || tok.Value == "" || !m.now().Before(tok.ExpiresAt) {
		return Token{}, false
	}
	return tok, true
}
