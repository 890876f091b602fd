package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"trivia-quiz-service/internal/domain"
)

// ScoreReader lists archived results for a leaderboard.
type ScoreReader interface {
	TopScores(ctx context.Context, leaderboardID string, limit int) ([]domain.ArchivedResult, error)
}

const (
	defaultScoreLimit = 10
	maxScoreLimit     = 100
)

// Categories serves the selectable category catalog.
func Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Categories)
}

// ScoresHandler serves GET /scores/{leaderboardId}?limit=N from the result archive.
type ScoresHandler struct {
	reader ScoreReader
}

func NewScoresHandler(reader ScoreReader) *ScoresHandler {
	return &ScoresHandler{reader: reader}
}

func (h *ScoresHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/scores/"), "/")
	if id == "" {
		http.Error(w, "missing leaderboard id", http.StatusBadRequest)
		return
	}
	limit := defaultScoreLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxScoreLimit)
	}

	scores, err := h.reader.TopScores(r.Context(), id, limit)
	if err != nil {
		log.Printf("top scores for %s failed: %v", id, err)
		http.Error(w, "scores unavailable", http.StatusServiceUnavailable)
		return
	}
	if scores == nil {
		scores = []domain.ArchivedResult{}
	}
	writeJSON(w, http.StatusOK, scores)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response failed: %v", err)
	}
}
