package trivia

import (
	"context"
	"errors"
	"html"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"trivia-quiz-service/internal/domain"
)

// Source fetches normalized questions, managing the session token along the way.
type Source struct {
	client *Client
	tokens *TokenManager

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSource(client *Client, tokens *TokenManager) *Source {
	return &Source{
		client: client,
		tokens: tokens,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchBatch fetches amount questions of one difficulty and category.
// Errors wrap the domain trivia taxonomy (ErrRateLimited, ErrTokenNotFound, ...).
func (s *Source) FetchBatch(ctx context.Context, difficulty domain.Difficulty, category domain.Category, amount int) ([]domain.Question, error) {
	token := s.tokens.Acquire(ctx)
	raw, err := s.client.FetchQuestions(ctx, BatchRequest{
		Difficulty: difficulty,
		CategoryID: category.ID,
		Amount:     amount,
		Token:      token,
	})
	if errors.Is(err, domain.ErrTokenNotFound) || errors.Is(err, domain.ErrTokenExhausted) {
		return nil, &domain.TokenError{Token: token, Err: err}
	}
	if err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, len(raw))
	for _, rq := range raw {
		questions = append(questions, s.normalize(rq, difficulty))
	}
	return questions, nil
}

// InvalidateToken discards stale if it is still the current token.
func (s *Source) InvalidateToken(ctx context.Context, stale string) {
	s.tokens.Invalidate(ctx, stale)
}

// ResetToken resets stale if it is still the current token.
func (s *Source) ResetToken(ctx context.Context, stale string) {
	s.tokens.Reset(ctx, stale)
}

func (s *Source) normalize(rq RawQuestion, difficulty domain.Difficulty) domain.Question {
	correct := decodeText(rq.CorrectAnswer)
	answers := make([]string, 0, len(rq.IncorrectAnswers)+1)
	answers = append(answers, correct)
	for _, a := range rq.IncorrectAnswers {
		answers = append(answers, decodeText(a))
	}
	s.shuffle(answers)

	return domain.Question{
		ID:            uuid.NewString(),
		Category:      decodeText(rq.Category),
		Text:          decodeText(rq.Question),
		CorrectAnswer: correct,
		Answers:       answers,
		Difficulty:    difficulty,
	}
}

func (s *Source) shuffle(answers []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
}

// decodeText undoes the API's percent-encoding, then any HTML entities left inside.
func decodeText(s string) string {
	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}
	return html.UnescapeString(s)
}
