package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-quiz-service/internal/domain"
)

// ResultStore archives finished quiz results in Postgres.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Submit stores the result behind a submission. A result is archived once per session.
func (s *ResultStore) Submit(ctx context.Context, submission domain.LeaderboardSubmission) error {
	r := submission.Result
	_, err := s.pool.Exec(ctx, `
INSERT INTO quiz_results (
	session_id, leaderboard_id, username, difficulty, category,
	total_questions, correct_answers, total_score, average_time_per_question, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (session_id) DO NOTHING`,
		r.SessionID, submission.LeaderboardID, submission.Username, string(r.Difficulty), r.Category.Name,
		r.TotalQuestions, r.CorrectAnswers, r.TotalScore, r.AverageTimePerQuestion, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

// TopScores returns the best results recorded for a leaderboard.
func (s *ResultStore) TopScores(ctx context.Context, leaderboardID string, limit int) ([]domain.ArchivedResult, error) {
	rows, err := s.pool.Query(ctx, `
SELECT username, total_score, correct_answers, total_questions, completed_at
FROM quiz_results
WHERE leaderboard_id = $1
ORDER BY total_score DESC, completed_at ASC
LIMIT $2`, leaderboardID, limit)
	if err != nil {
		return nil, fmt.Errorf("query top scores: %w", err)
	}
	defer rows.Close()

	var out []domain.ArchivedResult
	for rows.Next() {
		var a domain.ArchivedResult
		if err := rows.Scan(&a.Username, &a.TotalScore, &a.CorrectAnswers, &a.TotalQuestions, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan top score: %w", err)
		}
		a.LeaderboardID = leaderboardID
		out = append(out, a)
	}
	return out, rows.Err()
}
