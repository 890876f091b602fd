package domain

import "errors"

var (
	// ErrRateLimited is returned when the trivia API answers HTTP 429 or response code 5.
	ErrRateLimited = errors.New("trivia api rate limited")
	// ErrTokenNotFound means the session token is unknown to the trivia API and must be discarded.
	ErrTokenNotFound = errors.New("trivia session token not found")
	// ErrTokenExhausted means the session token has returned every question for the query and must be reset.
	ErrTokenExhausted = errors.New("trivia session token exhausted")
	// ErrInsufficientQuestions means the API cannot satisfy the amount/difficulty/category combination.
	ErrInsufficientQuestions = errors.New("not enough trivia questions for query")
	// ErrTransient covers any other network or decode failure.
	ErrTransient = errors.New("trivia api request failed")

	// ErrSessionNotFound is returned when a quiz session is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionComplete is returned for operations on a finished session.
	ErrSessionComplete = errors.New("quiz session already complete")
	// ErrAwaitingQuestions means the cursor caught up with the fetched questions while more are expected.
	ErrAwaitingQuestions = errors.New("waiting for more questions")
	// ErrQuestionPending is returned when advancing past a question that was neither answered nor timed out.
	ErrQuestionPending = errors.New("current question not answered yet")
	// ErrAlreadyAnswered is returned for a second answer to the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrSessionFull is returned when appending to a session that holds every expected question.
	ErrSessionFull = errors.New("quiz session already has all questions")
	// ErrIncompleteQuestionSet is returned when a tier that needs every question upfront got fewer.
	ErrIncompleteQuestionSet = errors.New("incomplete question set for difficulty")
	// ErrNoQuestions is returned when an initial fetch produced nothing.
	ErrNoQuestions = errors.New("no questions fetched")
	// ErrInvalidDifficulty is returned for an unknown difficulty name.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrCategoryNotFound is returned for an unknown category name.
	ErrCategoryNotFound = errors.New("category not found")
)

// TokenError ties a token failure to the token value the request carried,
// so recovery only touches that token and never a newer one.
type TokenError struct {
	Token string
	Err   error
}

func (e *TokenError) Error() string { return e.Err.Error() }

func (e *TokenError) Unwrap() error { return e.Err }

// FailedToken returns the token a failed request was sent with, or "".
func FailedToken(err error) string {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Token
	}
	return ""
}
