package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"trivia-quiz-service/internal/domain"
)

// BatchSource fetches normalized questions and manages the token behind them.
type BatchSource interface {
	FetchBatch(ctx context.Context, difficulty domain.Difficulty, category domain.Category, amount int) ([]domain.Question, error)
	InvalidateToken(ctx context.Context, stale string)
	ResetToken(ctx context.Context, stale string)
}

// RetryPolicy bounds the retries of a single batch fetch.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries 3 times with 2s, 4s, 8s waits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second}
}

// Fetcher wraps a BatchSource with retry, backoff and token recovery.
type Fetcher struct {
	source BatchSource
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewFetcher(source BatchSource, policy RetryPolicy) *Fetcher {
	return NewFetcherWithSleep(source, policy, sleepContext)
}

// NewFetcherWithSleep lets tests observe backoff without waiting.
func NewFetcherWithSleep(source BatchSource, policy RetryPolicy, sleep func(ctx context.Context, d time.Duration) error) *Fetcher {
	return &Fetcher{source: source, policy: policy, sleep: sleep}
}

// Fetch returns amount questions or the last error once retries are spent.
// ErrInsufficientQuestions is returned immediately.
func (f *Fetcher) Fetch(ctx context.Context, difficulty domain.Difficulty, category domain.Category, amount int) ([]domain.Question, error) {
	for attempt := 0; ; attempt++ {
		questions, err := f.source.FetchBatch(ctx, difficulty, category, amount)
		if err == nil {
			return questions, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		switch {
		case errors.Is(err, domain.ErrInsufficientQuestions):
			return nil, err
		case errors.Is(err, domain.ErrTokenNotFound):
			log.Printf("trivia token not found, requesting a new one")
			f.source.InvalidateToken(ctx, domain.FailedToken(err))
		case errors.Is(err, domain.ErrTokenExhausted):
			log.Printf("trivia token exhausted, resetting")
			f.source.ResetToken(ctx, domain.FailedToken(err))
		}

		if attempt >= f.policy.MaxRetries {
			return nil, fmt.Errorf("fetch %s questions after %d attempts: %w", difficulty, attempt+1, err)
		}

		if errors.Is(err, domain.ErrTokenNotFound) || errors.Is(err, domain.ErrTokenExhausted) {
			continue
		}
		delay := f.policy.BaseDelay << attempt
		log.Printf("fetch %s questions failed (%v), retry %d/%d in %s", difficulty, err, attempt+1, f.policy.MaxRetries, delay)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
