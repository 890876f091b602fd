package app

import (
	"fmt"

	"trivia-quiz-service/internal/domain"
)

// Tier describes how a difficulty sources its questions and how long players get per question.
// Medium and hard start on the easier half so play can begin before the harder half arrives.
type Tier struct {
	Difficulty          domain.Difficulty
	InitialDifficulty   domain.Difficulty
	InitialCount        int
	RemainingDifficulty domain.Difficulty
	RemainingCount      int
	TimePerQuestion     int // seconds
}

// FetchesAllUpfront reports whether the initial fetch covers the whole quiz.
func (t Tier) FetchesAllUpfront() bool {
	return t.RemainingCount == 0
}

// TierFor returns the fetch plan for a difficulty.
func TierFor(d domain.Difficulty) (Tier, error) {
	half := domain.QuestionsPerQuiz / 2
	switch d {
	case domain.DifficultyEasy:
		return Tier{
			Difficulty:        d,
			InitialDifficulty: domain.DifficultyEasy,
			InitialCount:      domain.QuestionsPerQuiz,
			TimePerQuestion:   20,
		}, nil
	case domain.DifficultyMedium:
		return Tier{
			Difficulty:          d,
			InitialDifficulty:   domain.DifficultyEasy,
			InitialCount:        half,
			RemainingDifficulty: domain.DifficultyMedium,
			RemainingCount:      domain.QuestionsPerQuiz - half,
			TimePerQuestion:     10,
		}, nil
	case domain.DifficultyHard:
		return Tier{
			Difficulty:          d,
			InitialDifficulty:   domain.DifficultyMedium,
			InitialCount:        half,
			RemainingDifficulty: domain.DifficultyHard,
			RemainingCount:      domain.QuestionsPerQuiz - half,
			TimePerQuestion:     10,
		}, nil
	}
	return Tier{}, fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, d)
}

// ComputeScore awards whole seconds remaining, doubled above easy.
func ComputeScore(timeRemainingSeconds float64, difficulty domain.Difficulty) int {
	if timeRemainingSeconds <= 0 {
		return 0
	}
	whole := int(timeRemainingSeconds)
	if difficulty == domain.DifficultyEasy {
		return whole
	}
	return whole * 2
}
