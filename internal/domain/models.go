package domain

import (
	"fmt"
	"time"
)

// QuestionsPerQuiz is the expected question count for every difficulty.
const QuestionsPerQuiz = 10

// Difficulty is a quiz tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a raw difficulty name.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(raw); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, raw)
}

// Question is a normalized trivia question. Answers are shuffled once on creation.
type Question struct {
	ID            string     `json:"id"`
	Category      string     `json:"category"`
	Text          string     `json:"question"`
	CorrectAnswer string     `json:"correctAnswer"`
	Answers       []string   `json:"answers"`
	Difficulty    Difficulty `json:"difficulty"`
}

// PublicQuestion is what players see: no correct answer.
type PublicQuestion struct {
	ID         string     `json:"id"`
	Category   string     `json:"category"`
	Text       string     `json:"question"`
	Answers    []string   `json:"answers"`
	Difficulty Difficulty `json:"difficulty"`
}

// Public strips the correct answer.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Category:   q.Category,
		Text:       q.Text,
		Answers:    q.Answers,
		Difficulty: q.Difficulty,
	}
}

// SessionSnapshot is a read-only view of a session at a point in time.
type SessionSnapshot struct {
	SessionID              string     `json:"sessionId"`
	Difficulty             Difficulty `json:"difficulty"`
	Category               Category   `json:"category"`
	CurrentQuestionIndex   int        `json:"currentQuestionIndex"`
	LoadedQuestions        int        `json:"loadedQuestions"`
	ExpectedTotalQuestions int        `json:"expectedTotalQuestions"`
	Score                  int        `json:"score"`
	CorrectAnswers         int        `json:"correctAnswers"`
	TimePerQuestion        int        `json:"timePerQuestion"`
	LoadingMoreQuestions   bool       `json:"isLoadingMoreQuestions"`
	Completed              bool       `json:"completed"`
	StartedAt              time.Time  `json:"startedAt"`
}

// AnswerResult summarizes the outcome of one answered (or timed-out) question.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Answer        string `json:"answer,omitempty"`
	Correct       bool   `json:"correct"`
	TimedOut      bool   `json:"timedOut"`
	CorrectAnswer string `json:"correctAnswer"`
	Awarded       int    `json:"awarded"`
	TotalScore    int    `json:"totalScore"`
}

// Result is the immutable outcome of a completed session.
type Result struct {
	SessionID              string     `json:"sessionId"`
	Difficulty             Difficulty `json:"difficulty"`
	Category               Category   `json:"category"`
	TotalQuestions         int        `json:"totalQuestions"`
	CorrectAnswers         int        `json:"correctAnswers"`
	TotalScore             int        `json:"totalScore"`
	AverageTimePerQuestion float64    `json:"averageTimePerQuestion"`
	CompletedAt            time.Time  `json:"completedAt"`
}

// LeaderboardID is the backend leaderboard a result is submitted to.
func (r Result) LeaderboardID() string {
	return r.Category.Name + "-" + string(r.Difficulty)
}

// LeaderboardSubmission carries a result to an external score sink.
type LeaderboardSubmission struct {
	LeaderboardID string
	Username      string
	AuthToken     string
	Result        Result
}

// ArchivedResult is a stored result as listed on a leaderboard.
type ArchivedResult struct {
	LeaderboardID  string    `json:"leaderboardId"`
	Username       string    `json:"username"`
	TotalScore     int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	CompletedAt    time.Time `json:"completedAt"`
}
