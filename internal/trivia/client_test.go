package trivia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"trivia-quiz-service/internal/domain"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(rt http.RoundTripper) *Client {
	return NewClient(&http.Client{Transport: rt}, "https://trivia.test")
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func TestFetchQuestionsBuildsQuery(t *testing.T) {
	var query map[string]string

	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api.php" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		return jsonResponse(http.StatusOK, `{"response_code":0,"results":[]}`), nil
	}))

	history := 23
	_, err := client.FetchQuestions(context.Background(), BatchRequest{
		Difficulty: domain.DifficultyHard,
		CategoryID: &history,
		Amount:     5,
		Token:      "tok",
	})
	if err != nil {
		t.Fatalf("FetchQuestions returned error: %v", err)
	}

	want := map[string]string{
		"amount":     "5",
		"difficulty": "hard",
		"type":       "multiple",
		"encode":     "url3986",
		"category":   "23",
		"token":      "tok",
	}
	for k, v := range want {
		if query[k] != v {
			t.Fatalf("expected %s=%q, got %q", k, v, query[k])
		}
	}
}

func TestFetchQuestionsOmitsCategoryAndToken(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		q := r.URL.Query()
		if q.Has("category") || q.Has("token") {
			t.Fatalf("expected no category or token, got %s", r.URL.RawQuery)
		}
		if q.Get("amount") != "10" {
			t.Fatalf("expected default amount 10, got %q", q.Get("amount"))
		}
		return jsonResponse(http.StatusOK, `{"response_code":0,"results":[]}`), nil
	}))

	if _, err := client.FetchQuestions(context.Background(), BatchRequest{Difficulty: domain.DifficultyEasy}); err != nil {
		t.Fatalf("FetchQuestions returned error: %v", err)
	}
}

func TestFetchQuestionsMapsFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"http 429", http.StatusTooManyRequests, ``, domain.ErrRateLimited},
		{"http 502", http.StatusBadGateway, ``, domain.ErrTransient},
		{"bad json", http.StatusOK, `not-json`, domain.ErrTransient},
		{"no results", http.StatusOK, `{"response_code":1,"results":[]}`, domain.ErrInsufficientQuestions},
		{"invalid parameter", http.StatusOK, `{"response_code":2,"results":[]}`, domain.ErrTransient},
		{"token not found", http.StatusOK, `{"response_code":3,"results":[]}`, domain.ErrTokenNotFound},
		{"token empty", http.StatusOK, `{"response_code":4,"results":[]}`, domain.ErrTokenExhausted},
		{"rate limit code", http.StatusOK, `{"response_code":5,"results":[]}`, domain.ErrRateLimited},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, tc.body), nil
			}))
			_, err := client.FetchQuestions(context.Background(), BatchRequest{Amount: 5})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFetchQuestionsTransportError(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}))

	_, err := client.FetchQuestions(context.Background(), BatchRequest{Amount: 5})
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestRequestAndResetToken(t *testing.T) {
	var commands []string
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api_token.php" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		cmd := r.URL.Query().Get("command")
		commands = append(commands, cmd)
		if cmd == "reset" && r.URL.Query().Get("token") != "abc" {
			t.Fatalf("expected token on reset, got %q", r.URL.RawQuery)
		}
		payload, _ := json.Marshal(tokenResponse{ResponseCode: 0, Token: "abc"})
		return jsonResponse(http.StatusOK, string(payload)), nil
	}))

	token, err := client.RequestToken(context.Background())
	if err != nil {
		t.Fatalf("request token: %v", err)
	}
	if token != "abc" {
		t.Fatalf("expected token abc, got %q", token)
	}
	if err := client.ResetToken(context.Background(), token); err != nil {
		t.Fatalf("reset token: %v", err)
	}
	if len(commands) != 2 || commands[0] != "request" || commands[1] != "reset" {
		t.Fatalf("unexpected commands %v", commands)
	}
}

func TestResetTokenNonZeroCode(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"response_code":3}`), nil
	}))

	if err := client.ResetToken(context.Background(), "gone"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("expected token not found, got %v", err)
	}
}

func TestCategoryQuestionCount(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api_count.php" || r.URL.Query().Get("category") != "23" {
			t.Fatalf("unexpected request %s", r.URL.String())
		}
		return jsonResponse(http.StatusOK, `{"category_id":23,"category_question_count":{"total_question_count":30,"total_easy_question_count":10,"total_medium_question_count":12,"total_hard_question_count":8}}`), nil
	}))

	count, err := client.CategoryQuestionCount(context.Background(), 23)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != (QuestionCount{Total: 30, Easy: 10, Medium: 12, Hard: 8}) {
		t.Fatalf("unexpected count %+v", count)
	}
}

func TestDecodeText(t *testing.T) {
	cases := map[string]string{
		"Who%20wrote%20%22Hamlet%22%3F": `Who wrote "Hamlet"?`,
		"Tom%20%26amp%3B%20Jerry":       "Tom & Jerry",
		"It%26%23039%3Bs%20%26pi%3B":    "It's π",
		"100%":                          "100%",
	}
	for in, want := range cases {
		if got := decodeText(in); got != want {
			t.Fatalf("decodeText(%q) = %q, want %q", in, got, want)
		}
	}
}
