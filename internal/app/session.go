package app

import (
	"context"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
)

// AdvanceOutcome is what happened when the cursor was asked to move on.
type AdvanceOutcome int

const (
	// Advanced moved the cursor to the next question.
	Advanced AdvanceOutcome = iota
	// Stalled means the cursor caught up with the fetched questions while more are expected.
	Stalled
	// Completed means no question follows; a result should be derived.
	Completed
)

func (o AdvanceOutcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Stalled:
		return "stalled"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Session is one play-through. The question list is append-only and never
// exceeds the expected total; score only grows.
type Session struct {
	id              string
	difficulty      domain.Difficulty
	category        domain.Category
	expected        int
	timePerQuestion int
	startedAt       time.Time
	now             func() time.Time
	ctx             context.Context
	cancel          context.CancelFunc

	mu          sync.RWMutex
	questions   []domain.Question
	cursor      int
	score       int
	correct     int
	answered    bool
	shownAt     time.Time
	loading     bool
	completed   bool
	result      *domain.Result
	subscribers map[chan domain.SessionSnapshot]struct{}
}

func newSessionWithClock(id string, tier Tier, category domain.Category, questions []domain.Question, now func() time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	started := now()
	qs := append(make([]domain.Question, 0, domain.QuestionsPerQuiz), questions...)
	return &Session{
		id:              id,
		difficulty:      tier.Difficulty,
		category:        category,
		expected:        domain.QuestionsPerQuiz,
		timePerQuestion: tier.TimePerQuestion,
		startedAt:       started,
		now:             now,
		ctx:             ctx,
		cancel:          cancel,
		questions:       qs,
		shownAt:         started,
		loading:         len(qs) < domain.QuestionsPerQuiz,
		subscribers:     make(map[chan domain.SessionSnapshot]struct{}),
	}
}

func (s *Session) ID() string                    { return s.id }
func (s *Session) Difficulty() domain.Difficulty { return s.difficulty }
func (s *Session) Category() domain.Category     { return s.category }
func (s *Session) TimePerQuestion() int          { return s.timePerQuestion }
func (s *Session) StartedAt() time.Time          { return s.startedAt }

// Questions returns a copy of the questions fetched so far.
func (s *Session) Questions() []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Question(nil), s.questions...)
}

// Missing is how many expected questions have not arrived yet.
func (s *Session) Missing() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expected - len(s.questions)
}

// IsLoadingMoreQuestions reports whether more questions are still expected from the background.
func (s *Session) IsLoadingMoreQuestions() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot returns a consistent view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// AppendQuestions adds questions up to the expected total and returns how many were kept.
// Loading stops once the list is full.
func (s *Session) AppendQuestions(questions []domain.Question) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return 0, domain.ErrSessionComplete
	}
	room := s.expected - len(s.questions)
	if room <= 0 {
		s.loading = false
		return 0, domain.ErrSessionFull
	}
	if len(questions) > room {
		questions = questions[:room]
	}
	s.questions = append(s.questions, questions...)
	if len(s.questions) >= s.expected {
		s.loading = false
	}
	s.broadcastLocked()
	return len(questions), nil
}

// StopLoading marks that no more questions will arrive.
func (s *Session) StopLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loading {
		return
	}
	s.loading = false
	s.broadcastLocked()
}

// Current returns the question under the cursor.
func (s *Session) Current() (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.completed {
		return domain.Question{}, domain.ErrSessionComplete
	}
	if s.cursor >= len(s.questions) {
		return domain.Question{}, domain.ErrAwaitingQuestions
	}
	return s.questions[s.cursor], nil
}

// Answer scores a chosen answer for the current question using the time left on its clock.
func (s *Session) Answer(answer string) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.pendingLocked()
	if err != nil {
		return domain.AnswerResult{}, err
	}

	remaining := float64(s.timePerQuestion) - s.now().Sub(s.shownAt).Seconds()
	timedOut := remaining <= 0
	// an answer after the budget ran out counts as a timeout
	correct := !timedOut && answer == q.CorrectAnswer
	awarded := 0
	if correct {
		awarded = ComputeScore(remaining, s.difficulty)
		s.score += awarded
		s.correct++
	}
	s.answered = true
	s.broadcastLocked()

	return domain.AnswerResult{
		QuestionID:    q.ID,
		Answer:        answer,
		Correct:       correct,
		TimedOut:      timedOut,
		CorrectAnswer: q.CorrectAnswer,
		Awarded:       awarded,
		TotalScore:    s.score,
	}, nil
}

// TimeOut closes the current question without points.
func (s *Session) TimeOut() (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.pendingLocked()
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.answered = true
	s.broadcastLocked()

	return domain.AnswerResult{
		QuestionID:    q.ID,
		TimedOut:      true,
		CorrectAnswer: q.CorrectAnswer,
		TotalScore:    s.score,
	}, nil
}

// Advance moves the cursor by one once the current question was answered or
// timed out. At the end of the fetched questions it stalls while more are
// loading; once loading stopped it completes with what was presented.
func (s *Session) Advance() (AdvanceOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return Completed, domain.ErrSessionComplete
	}
	if !s.answered {
		return Advanced, domain.ErrQuestionPending
	}

	next := s.cursor + 1
	if next >= s.expected {
		s.finishLocked(next)
		return Completed, nil
	}
	if next >= len(s.questions) {
		if s.loading {
			return Stalled, nil
		}
		s.finishLocked(next)
		return Completed, nil
	}

	s.cursor = next
	s.answered = false
	s.shownAt = s.now()
	s.broadcastLocked()
	return Advanced, nil
}

// complete derives the result once; later calls return the same result.
func (s *Session) complete(correctAnswers int) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result != nil {
		return *s.result
	}

	end := s.now()
	total := len(s.questions)
	avg := 0.0
	if total > 0 {
		avg = end.Sub(s.startedAt).Seconds() / float64(total)
	}
	s.result = &domain.Result{
		SessionID:              s.id,
		Difficulty:             s.difficulty,
		Category:               s.category,
		TotalQuestions:         total,
		CorrectAnswers:         correctAnswers,
		TotalScore:             s.score,
		AverageTimePerQuestion: avg,
		CompletedAt:            end,
	}
	s.completed = true
	s.loading = false
	s.broadcastLocked()
	return *s.result
}

// Done is closed once the session is released; timers and background loading
// bound to the session stop when it closes.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context is cancelled together with Done.
func (s *Session) Context() context.Context {
	return s.ctx
}

// release stops background work bound to the session.
func (s *Session) release() {
	s.cancel()
}

func (s *Session) pendingLocked() (domain.Question, error) {
	if s.completed {
		return domain.Question{}, domain.ErrSessionComplete
	}
	if s.cursor >= len(s.questions) {
		return domain.Question{}, domain.ErrAwaitingQuestions
	}
	if s.answered {
		return domain.Question{}, domain.ErrAlreadyAnswered
	}
	return s.questions[s.cursor], nil
}

func (s *Session) finishLocked(cursor int) {
	s.cursor = cursor
	s.completed = true
	s.loading = false
	s.broadcastLocked()
}

// Subscribe returns a channel that receives a snapshot after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest pending snapshot so slow readers never block writers
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		SessionID:              s.id,
		Difficulty:             s.difficulty,
		Category:               s.category,
		CurrentQuestionIndex:   s.cursor,
		LoadedQuestions:        len(s.questions),
		ExpectedTotalQuestions: s.expected,
		Score:                  s.score,
		CorrectAnswers:         s.correct,
		TimePerQuestion:        s.timePerQuestion,
		LoadingMoreQuestions:   s.loading,
		Completed:              s.completed,
		StartedAt:              s.startedAt,
	}
}
