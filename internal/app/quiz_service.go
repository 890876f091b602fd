package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"trivia-quiz-service/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionFetcher fetches a batch of questions with whatever recovery it needs.
type QuestionFetcher interface {
	Fetch(ctx context.Context, difficulty domain.Difficulty, category domain.Category, amount int) ([]domain.Question, error)
}

// ResultSubmitter hands a finished result to an external sink (leaderboard, archive).
type ResultSubmitter interface {
	Submit(ctx context.Context, submission domain.LeaderboardSubmission) error
}

// IdentityRequirer is implemented by submitters that only accept results from
// identified players, such as the public leaderboard. Anonymous results skip them.
type IdentityRequirer interface {
	RequiresIdentity() bool
}

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions   SessionRepository
	fetcher    QuestionFetcher
	prefetcher *Prefetcher
	submitters []ResultSubmitter
	now        func() time.Time
}

func NewQuizService(store SessionRepository, fetcher QuestionFetcher, prefetcher *Prefetcher, submitters ...ResultSubmitter) *QuizService {
	return NewQuizServiceWithClock(store, fetcher, prefetcher, time.Now, submitters...)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(store SessionRepository, fetcher QuestionFetcher, prefetcher *Prefetcher, now func() time.Time, submitters ...ResultSubmitter) *QuizService {
	return &QuizService{
		sessions:   store,
		fetcher:    fetcher,
		prefetcher: prefetcher,
		submitters: submitters,
		now:        now,
	}
}

// FetchInitialQuestions fetches what a difficulty needs before play can start.
// The player is waiting, so every failure is returned.
func (s *QuizService) FetchInitialQuestions(ctx context.Context, difficulty domain.Difficulty, category domain.Category) ([]domain.Question, error) {
	tier, err := TierFor(difficulty)
	if err != nil {
		return nil, err
	}
	questions, err := s.fetcher.Fetch(ctx, tier.InitialDifficulty, category, tier.InitialCount)
	if err != nil {
		return nil, fmt.Errorf("initial %s questions for %s: %w", difficulty, category.Name, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("initial %s questions for %s: %w", difficulty, category.Name, domain.ErrNoQuestions)
	}
	log.Printf("fetched %d initial %s questions for %s (%s)", len(questions), tier.InitialDifficulty, category.Name, difficulty)
	return questions, nil
}

// FetchRemainingQuestions fetches the second half of a tier in the background.
func (s *QuizService) FetchRemainingQuestions(ctx context.Context, difficulty domain.Difficulty, category domain.Category, amount int) ([]domain.Question, error) {
	tier, err := TierFor(difficulty)
	if err != nil {
		return nil, err
	}
	if tier.FetchesAllUpfront() || amount <= 0 {
		return nil, nil
	}
	return s.fetcher.Fetch(ctx, tier.RemainingDifficulty, category, amount)
}

// CreateSession builds a session from already fetched questions. Easy needs the
// full set; medium and hard may start with a partial set and load the rest later.
func (s *QuizService) CreateSession(difficulty domain.Difficulty, category domain.Category, questions []domain.Question) (*Session, error) {
	tier, err := TierFor(difficulty)
	if err != nil {
		return nil, err
	}
	switch {
	case len(questions) == 0:
		return nil, domain.ErrNoQuestions
	case len(questions) > domain.QuestionsPerQuiz:
		return nil, fmt.Errorf("%d questions for a %d question quiz: %w", len(questions), domain.QuestionsPerQuiz, domain.ErrSessionFull)
	case tier.FetchesAllUpfront() && len(questions) < domain.QuestionsPerQuiz:
		return nil, fmt.Errorf("%s needs %d questions, got %d: %w", difficulty, domain.QuestionsPerQuiz, len(questions), domain.ErrIncompleteQuestionSet)
	}

	session := newSessionWithClock(uuid.NewString(), tier, category, questions, s.now)
	s.sessions.Save(session)
	return session, nil
}

// StartSession fetches the initial questions, creates the session and, when the
// tier did not fetch everything upfront, starts background loading.
func (s *QuizService) StartSession(ctx context.Context, difficulty domain.Difficulty, category domain.Category) (*Session, error) {
	questions, err := s.FetchInitialQuestions(ctx, difficulty, category)
	if err != nil {
		return nil, err
	}
	session, err := s.CreateSession(difficulty, category, questions)
	if err != nil {
		return nil, fmt.Errorf("initial %s questions for %s: %w", difficulty, category.Name, err)
	}
	log.Printf("session %s started: %s/%s with %d questions", session.ID(), category.Name, difficulty, len(questions))

	s.StartPrefetch(session)
	return session, nil
}

// StartPrefetch launches background loading bound to the session's lifetime.
// It is a no-op for sessions that already hold every question.
func (s *QuizService) StartPrefetch(session *Session) {
	if !session.IsLoadingMoreQuestions() {
		return
	}
	go func() {
		outcome := s.prefetcher.Run(session.ctx, session, func(ctx context.Context, amount int) ([]domain.Question, error) {
			return s.FetchRemainingQuestions(ctx, session.Difficulty(), session.Category(), amount)
		})
		log.Printf("session %s: background loading %s", session.ID(), outcome)
		if outcome != PrefetchCancelled && session.ctx.Err() == nil {
			s.sessions.Save(session)
		}
	}()
}

// AppendQuestions adds questions to a session.
func (s *QuizService) AppendQuestions(session *Session, questions []domain.Question) (int, error) {
	n, err := session.AppendQuestions(questions)
	if err != nil {
		return 0, err
	}
	s.sessions.Save(session)
	return n, nil
}

// GetSession looks up a live session.
func (s *QuizService) GetSession(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Answer records the player's answer to the current question.
func (s *QuizService) Answer(sessionID, answer string) (domain.AnswerResult, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	result, err := session.Answer(answer)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.sessions.Save(session)
	return result, nil
}

// TimeOut closes the current question without points.
func (s *QuizService) TimeOut(sessionID string) (domain.AnswerResult, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return session.TimeOut()
}

// Advance moves a session to its next question. A stall is reported as
// ErrAwaitingQuestions alongside the Stalled outcome.
func (s *QuizService) Advance(sessionID string) (AdvanceOutcome, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return Completed, err
	}
	outcome, err := session.Advance()
	if err != nil {
		return outcome, err
	}
	if outcome == Stalled {
		return outcome, domain.ErrAwaitingQuestions
	}
	s.sessions.Save(session)
	return outcome, nil
}

// CompleteSession derives the immutable result and stops background work.
func (s *QuizService) CompleteSession(session *Session, correctAnswers int) domain.Result {
	result := session.complete(correctAnswers)
	session.release()
	log.Printf("session %s completed: %d/%d correct, score %d", result.SessionID, result.CorrectAnswers, result.TotalQuestions, result.TotalScore)
	return result
}

// SubmitResult hands a result to every configured submitter concurrently. One
// failing submitter never cancels the others; all failures are joined and
// returned to the caller, and nothing is retried.
func (s *QuizService) SubmitResult(ctx context.Context, result domain.Result, username, authToken string) error {
	submission := domain.LeaderboardSubmission{
		LeaderboardID: result.LeaderboardID(),
		Username:      username,
		AuthToken:     authToken,
		Result:        result,
	}
	anonymous := username == "" || authToken == ""

	errs := make([]error, len(s.submitters))
	var g errgroup.Group
	for i, submitter := range s.submitters {
		if r, ok := submitter.(IdentityRequirer); ok && anonymous && r.RequiresIdentity() {
			continue
		}
		i, submitter := i, submitter
		g.Go(func() error {
			errs[i] = submitter.Submit(ctx, submission)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		log.Printf("submit result %s to %s failed: %v", result.SessionID, submission.LeaderboardID, err)
		return err
	}
	return nil
}

// End releases a session: background loading stops and the session is forgotten.
func (s *QuizService) End(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.release()
	s.sessions.Delete(sessionID)
}
