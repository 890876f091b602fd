package domain

import (
	"errors"
	"fmt"
)

// UserMessage turns an initial-fetch failure into text a player can act on.
func UserMessage(err error, difficulty Difficulty, category Category) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientQuestions), errors.Is(err, ErrNoQuestions), errors.Is(err, ErrIncompleteQuestionSet):
		return fmt.Sprintf("Not enough %s questions available for %s. Please try a different category or difficulty.", difficulty, category.DisplayName)
	case errors.Is(err, ErrRateLimited):
		return "The quiz server is currently busy. Please wait a moment and try again."
	case errors.Is(err, ErrInvalidDifficulty), errors.Is(err, ErrCategoryNotFound):
		return err.Error()
	default:
		return "Unable to load quiz questions right now. Please check your internet connection and try again."
	}
}
