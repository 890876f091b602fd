package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
)

type scriptedSource struct {
	errs        []error // per call; calls past the end succeed
	always      error
	calls       int
	invalidated int
	resets      int
	stale       []string
}

func (s *scriptedSource) FetchBatch(_ context.Context, difficulty domain.Difficulty, _ domain.Category, amount int) ([]domain.Question, error) {
	s.calls++
	if s.always != nil {
		return nil, s.always
	}
	if i := s.calls - 1; i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return makeQuestions(fmt.Sprintf("call%d", s.calls), amount, difficulty), nil
}

func (s *scriptedSource) InvalidateToken(_ context.Context, stale string) {
	s.invalidated++
	s.stale = append(s.stale, stale)
}

func (s *scriptedSource) ResetToken(_ context.Context, stale string) {
	s.resets++
	s.stale = append(s.stale, stale)
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestFetcherRetryCeilingOnRateLimit(t *testing.T) {
	source := &scriptedSource{always: fmt.Errorf("status 429: %w", domain.ErrRateLimited)}
	sleeps := &recordedSleeps{}
	fetcher := NewFetcherWithSleep(source, DefaultRetryPolicy(), sleeps.sleep)

	_, err := fetcher.Fetch(context.Background(), domain.DifficultyEasy, domain.Categories[0], 10)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if source.calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", source.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(sleeps.delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, sleeps.delays)
	}
	for i := range want {
		if sleeps.delays[i] != want[i] {
			t.Fatalf("expected delays %v, got %v", want, sleeps.delays)
		}
	}
}

func TestFetcherRecoversFromTransientFailure(t *testing.T) {
	source := &scriptedSource{errs: []error{domain.ErrTransient, domain.ErrRateLimited}}
	sleeps := &recordedSleeps{}
	fetcher := NewFetcherWithSleep(source, DefaultRetryPolicy(), sleeps.sleep)

	qs, err := fetcher.Fetch(context.Background(), domain.DifficultyEasy, domain.Categories[0], 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(qs) != 5 || source.calls != 3 {
		t.Fatalf("expected 5 questions after 3 calls, got %d after %d", len(qs), source.calls)
	}
	if len(sleeps.delays) != 2 || sleeps.delays[1] != 4*time.Second {
		t.Fatalf("unexpected delays %v", sleeps.delays)
	}
}

func TestFetcherInsufficientQuestionsIsNotRetried(t *testing.T) {
	source := &scriptedSource{always: domain.ErrInsufficientQuestions}
	sleeps := &recordedSleeps{}
	fetcher := NewFetcherWithSleep(source, DefaultRetryPolicy(), sleeps.sleep)

	_, err := fetcher.Fetch(context.Background(), domain.DifficultyHard, domain.Categories[1], 5)
	if !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected insufficient questions, got %v", err)
	}
	if source.calls != 1 || len(sleeps.delays) != 0 {
		t.Fatalf("expected a single attempt without waiting, got calls=%d sleeps=%v", source.calls, sleeps.delays)
	}
}

func TestFetcherTokenRecovery(t *testing.T) {
	source := &scriptedSource{errs: []error{
		&domain.TokenError{Token: "old", Err: domain.ErrTokenNotFound},
		&domain.TokenError{Token: "new", Err: domain.ErrTokenExhausted},
	}}
	sleeps := &recordedSleeps{}
	fetcher := NewFetcherWithSleep(source, DefaultRetryPolicy(), sleeps.sleep)

	if _, err := fetcher.Fetch(context.Background(), domain.DifficultyMedium, domain.Categories[0], 5); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if source.invalidated != 1 || source.resets != 1 {
		t.Fatalf("expected one invalidate and one reset, got %d/%d", source.invalidated, source.resets)
	}
	if len(source.stale) != 2 || source.stale[0] != "old" || source.stale[1] != "new" {
		t.Fatalf("expected recovery to target the failing tokens, got %v", source.stale)
	}
	if source.calls != 3 {
		t.Fatalf("expected token errors to consume attempts, got %d calls", source.calls)
	}
	if len(sleeps.delays) != 0 {
		t.Fatalf("expected token recovery without backoff, got %v", sleeps.delays)
	}
}

func TestFetcherTokenErrorsExhaustAttempts(t *testing.T) {
	source := &scriptedSource{always: domain.ErrTokenExhausted}
	fetcher := NewFetcherWithSleep(source, DefaultRetryPolicy(), (&recordedSleeps{}).sleep)

	_, err := fetcher.Fetch(context.Background(), domain.DifficultyMedium, domain.Categories[0], 5)
	if !errors.Is(err, domain.ErrTokenExhausted) {
		t.Fatalf("expected token exhausted, got %v", err)
	}
	if source.calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", source.calls)
	}
}

func TestFetcherStopsOnCancelledContext(t *testing.T) {
	source := &scriptedSource{always: domain.ErrTransient}
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := NewFetcherWithSleep(source, DefaultRetryPolicy(), func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	_, err := fetcher.Fetch(ctx, domain.DifficultyEasy, domain.Categories[0], 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected no retry after cancel, got %d calls", source.calls)
	}
}
