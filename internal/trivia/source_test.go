package trivia_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/trivia"
)

const encodedBatch = `{"response_code":0,"results":[
 {"type":"multiple","difficulty":"hard","category":"History","question":"Who%20signed%20the%20%26quot%3BMagna%20Carta%26quot%3B%3F","correct_answer":"King%20John","incorrect_answers":["Henry%20II","Richard%20I","Edward%20I"]},
 {"type":"multiple","difficulty":"hard","category":"History","question":"Year%3F","correct_answer":"1215","incorrect_answers":["1066","1415","1605"]}
]}`

func TestSourceFetchBatchNormalizes(t *testing.T) {
	var seenToken string
	mux := http.NewServeMux()
	mux.HandleFunc("/api_token.php", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":0,"token":"tok-1"}`))
	})
	mux.HandleFunc("/api.php", func(w http.ResponseWriter, r *http.Request) {
		seenToken = r.URL.Query().Get("token")
		_, _ = w.Write([]byte(encodedBatch))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := trivia.NewClient(server.Client(), server.URL)
	source := trivia.NewSource(client, trivia.NewTokenManager(client, memory.NewTokenStore(), time.Hour))

	history, _ := domain.LookupCategory("history")
	questions, err := source.FetchBatch(context.Background(), domain.DifficultyHard, history, 2)
	if err != nil {
		t.Fatalf("fetch batch: %v", err)
	}
	if seenToken != "tok-1" {
		t.Fatalf("expected token to be sent, got %q", seenToken)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	q := questions[0]
	if q.Text != `Who signed the "Magna Carta"?` {
		t.Fatalf("unexpected decoded question %q", q.Text)
	}
	if q.CorrectAnswer != "King John" || q.Difficulty != domain.DifficultyHard {
		t.Fatalf("unexpected question %+v", q)
	}
	got := append([]string(nil), q.Answers...)
	sort.Strings(got)
	want := []string{"Edward I", "Henry II", "King John", "Richard I"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected answers %v, got %v", want, got)
		}
	}
	if questions[0].ID == "" || questions[0].ID == questions[1].ID {
		t.Fatalf("expected unique question ids")
	}
}

func TestSourceTagsTokenFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api_token.php", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":0,"token":"tok-1"}`))
	})
	mux.HandleFunc("/api.php", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_code":3,"results":[]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := trivia.NewClient(server.Client(), server.URL)
	store := memory.NewTokenStore()
	source := trivia.NewSource(client, trivia.NewTokenManager(client, store, time.Hour))

	history, _ := domain.LookupCategory("history")
	_, err := source.FetchBatch(context.Background(), domain.DifficultyEasy, history, 2)
	if !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected token not found, got %v", err)
	}
	if got := domain.FailedToken(err); got != "tok-1" {
		t.Fatalf("expected the failing token on the error, got %q", got)
	}

	source.InvalidateToken(context.Background(), "some-other-token")
	if _, ok, _ := store.Load(context.Background()); !ok {
		t.Fatalf("invalidating another token must keep the current one")
	}
	source.InvalidateToken(context.Background(), domain.FailedToken(err))
	if _, ok, _ := store.Load(context.Background()); ok {
		t.Fatalf("expected the failing token discarded")
	}
}
