package app

import (
	"context"
	"errors"
	"log"
	"time"

	"trivia-quiz-service/internal/domain"
)

// PrefetchPolicy schedules background catch-up fetches: a first attempt after
// InitialDelay, then linear Step backoff capped at MaxDelay, MaxAttempts in total.
type PrefetchPolicy struct {
	InitialDelay time.Duration
	Step         time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// DefaultPrefetchPolicy waits 2s, then 3s, 6s, 9s ... up to 15s, for 10 attempts.
func DefaultPrefetchPolicy() PrefetchPolicy {
	return PrefetchPolicy{
		InitialDelay: 2 * time.Second,
		Step:         3 * time.Second,
		MaxDelay:     15 * time.Second,
		MaxAttempts:  10,
	}
}

// Backoff is the wait after the given failed attempt (1-based).
func (p PrefetchPolicy) Backoff(attempt int) time.Duration {
	d := p.Step * time.Duration(attempt)
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// PrefetchOutcome is how a background loop ended.
type PrefetchOutcome int

const (
	PrefetchFilled PrefetchOutcome = iota
	PrefetchGaveUp
	PrefetchCancelled
)

func (o PrefetchOutcome) String() string {
	switch o {
	case PrefetchFilled:
		return "filled"
	case PrefetchGaveUp:
		return "gave up"
	case PrefetchCancelled:
		return "cancelled"
	}
	return "unknown"
}

// RemainingFetcher fetches up to amount more questions for a session.
type RemainingFetcher func(ctx context.Context, amount int) ([]domain.Question, error)

// Prefetcher completes a session's question list while play is already underway.
// It only ever appends; it never touches the cursor or score.
type Prefetcher struct {
	policy PrefetchPolicy
	after  func(d time.Duration) <-chan time.Time
}

func NewPrefetcher(policy PrefetchPolicy) *Prefetcher {
	return NewPrefetcherWithTimer(policy, time.After)
}

// NewPrefetcherWithTimer lets tests drive the schedule.
func NewPrefetcherWithTimer(policy PrefetchPolicy, after func(d time.Duration) <-chan time.Time) *Prefetcher {
	return &Prefetcher{policy: policy, after: after}
}

// Run blocks until the session is full, attempts run out, or ctx is cancelled.
// Fetch failures are logged and rescheduled, never returned.
func (p *Prefetcher) Run(ctx context.Context, session *Session, fetch RemainingFetcher) PrefetchOutcome {
	if !p.wait(ctx, p.policy.InitialDelay) {
		return PrefetchCancelled
	}

	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		missing := session.Missing()
		if missing <= 0 {
			session.StopLoading()
			return PrefetchFilled
		}

		questions, err := fetch(ctx, missing)
		if ctx.Err() != nil {
			return PrefetchCancelled
		}

		switch {
		case err != nil:
			log.Printf("session %s: background fetch attempt %d/%d failed: %v", session.ID(), attempt, p.policy.MaxAttempts, err)
		case len(questions) == 0:
			log.Printf("session %s: background fetch attempt %d/%d returned no questions", session.ID(), attempt, p.policy.MaxAttempts)
		default:
			added, appendErr := session.AppendQuestions(questions)
			if errors.Is(appendErr, domain.ErrSessionComplete) {
				return PrefetchCancelled
			}
			log.Printf("session %s: background fetch added %d questions", session.ID(), added)
			if session.Missing() <= 0 {
				return PrefetchFilled
			}
		}

		if attempt == p.policy.MaxAttempts {
			break
		}
		delay := p.policy.Backoff(attempt)
		log.Printf("session %s: background retry in %s", session.ID(), delay)
		if !p.wait(ctx, delay) {
			return PrefetchCancelled
		}
	}

	log.Printf("session %s: background loading gave up after %d attempts", session.ID(), p.policy.MaxAttempts)
	session.StopLoading()
	return PrefetchGaveUp
}

func (p *Prefetcher) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.after(d):
		return ctx.Err() == nil
	}
}
