package domain

import (
	"fmt"
	"strings"
	"testing"
)

func TestUserMessageDistinguishesFailures(t *testing.T) {
	history, err := LookupCategory("history")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	insufficient := UserMessage(fmt.Errorf("fetch: %w", ErrInsufficientQuestions), DifficultyHard, history)
	if !strings.Contains(insufficient, "hard") || !strings.Contains(insufficient, "History") {
		t.Fatalf("expected category/difficulty specific message, got %q", insufficient)
	}

	busy := UserMessage(fmt.Errorf("fetch: %w", ErrRateLimited), DifficultyHard, history)
	if !strings.Contains(busy, "busy") {
		t.Fatalf("expected busy message, got %q", busy)
	}

	generic := UserMessage(fmt.Errorf("fetch: %w", ErrTransient), DifficultyHard, history)
	if generic == busy || generic == insufficient {
		t.Fatalf("expected generic message to differ, got %q", generic)
	}
}

func TestLookupCategory(t *testing.T) {
	pub, err := LookupCategory("pubquiz")
	if err != nil {
		t.Fatalf("lookup pubquiz: %v", err)
	}
	if pub.ID != nil {
		t.Fatalf("expected pubquiz to span all categories, got id %d", *pub.ID)
	}

	if _, err := LookupCategory("sports"); err == nil {
		t.Fatalf("expected unknown category error")
	}
}

func TestLeaderboardID(t *testing.T) {
	history, _ := LookupCategory("history")
	r := Result{Category: history, Difficulty: DifficultyMedium}
	if got := r.LeaderboardID(); got != "history-medium" {
		t.Fatalf("expected history-medium, got %q", got)
	}
}
