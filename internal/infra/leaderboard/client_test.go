package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

func TestSubmitPostsScore(t *testing.T) {
	var got submitRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/leaderboards/submit" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	history, _ := domain.LookupCategory("history")
	result := domain.Result{Category: history, Difficulty: domain.DifficultyHard, TotalScore: 87}
	client := NewClient(srv.Client(), srv.URL+"/api/v1/")

	err := client.Submit(context.Background(), domain.LeaderboardSubmission{
		LeaderboardID: result.LeaderboardID(),
		Username:      "alice",
		AuthToken:     "jwt-token",
		Result:        result,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.LeaderboardID != "history-hard" || got.Username != "alice" || got.Score != 87 {
		t.Fatalf("unexpected body %+v", got)
	}
	if auth != "Bearer jwt-token" {
		t.Fatalf("unexpected auth header %q", auth)
	}
}

func TestClientRequiresIdentity(t *testing.T) {
	var sink app.IdentityRequirer = NewClient(http.DefaultClient, "http://leaderboard")
	if !sink.RequiresIdentity() {
		t.Fatalf("leaderboard client must only take identified results")
	}
}

func TestSubmitFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()
	client := NewClient(srv.Client(), srv.URL)

	if err := client.Submit(context.Background(), domain.LeaderboardSubmission{LeaderboardID: "general-easy"}); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected missing identity, got %v", err)
	}
	err := client.Submit(context.Background(), domain.LeaderboardSubmission{LeaderboardID: "general-easy", Username: "bob", AuthToken: "x"})
	if err == nil {
		t.Fatalf("expected status error")
	}
}

func TestIdentityFromToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sign := func(claims jwt.Claims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	named := sign(identityClaims{Username: "carol", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}})
	if name, err := Identity(named, now); err != nil || name != "carol" {
		t.Fatalf("expected carol, got %q %v", name, err)
	}

	subject := sign(jwt.RegisteredClaims{Subject: "dave"})
	if name, err := Identity(subject, now); err != nil || name != "dave" {
		t.Fatalf("expected subject fallback, got %q %v", name, err)
	}

	expired := sign(identityClaims{Username: "erin", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}})
	if _, err := Identity(expired, now); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired token, got %v", err)
	}

	if _, err := Identity("not-a-jwt", now); err == nil {
		t.Fatalf("expected parse error")
	}
}
