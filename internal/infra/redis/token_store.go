package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-quiz-service/internal/trivia"
)

const tokenKey = "trivia:token"

// the compare and the write run as one script so instances cannot interleave
var (
	discardTokenScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "value") == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendTokenScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "value") ~= ARGV[1] then
	return 0
end
redis.call("HSET", KEYS[1], "expires_at", ARGV[2])
redis.call("PEXPIREAT", KEYS[1], ARGV[2])
return 1`)
)

// TokenStore shares the trivia session token between service instances.
// Stored as: HSET trivia:token value {token} expires_at {unix millis}, expiring with the token.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Load(ctx context.Context) (trivia.Token, bool, error) {
	fields, err := s.client.HGetAll(ctx, tokenKey).Result()
	if err != nil {
		return trivia.Token{}, false, fmt.Errorf("load trivia token: %w", err)
	}
	value, ok := fields["value"]
	if !ok || value == "" {
		return trivia.Token{}, false, nil
	}
	millis, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return trivia.Token{}, false, nil
	}
	return trivia.Token{Value: value, ExpiresAt: time.UnixMilli(millis)}, true, nil
}

func (s *TokenStore) Save(ctx context.Context, token trivia.Token) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, tokenKey, "value", token.Value, "expires_at", token.ExpiresAt.UnixMilli())
	pipe.ExpireAt(ctx, tokenKey, token.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save trivia token: %w", err)
	}
	return nil
}

func (s *TokenStore) Discard(ctx context.Context, value string) (bool, error) {
	n, err := discardTokenScript.Run(ctx, s.client, []string{tokenKey}, value).Int()
	if err != nil {
		return false, fmt.Errorf("discard trivia token: %w", err)
	}
	return n == 1, nil
}

func (s *TokenStore) Extend(ctx context.Context, value string, expiresAt time.Time) (bool, error) {
	n, err := extendTokenScript.Run(ctx, s.client, []string{tokenKey}, value, expiresAt.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("extend trivia token: %w", err)
	}
	return n == 1, nil
}
