package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"trivia-quiz-service/internal/domain"
)

// DefaultBaseURL is the public Open Trivia Database.
const DefaultBaseURL = "https://opentdb.com"

const defaultAmount = 10

// Response codes returned in every OpenTDB payload.
const (
	codeSuccess          = 0
	codeNoResults        = 1
	codeInvalidParameter = 2
	codeTokenNotFound    = 3
	codeTokenEmpty       = 4
	codeRateLimit        = 5
)

// RawQuestion mirrors the OpenTDB question payload. Text fields are RFC 3986 encoded.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

type tokenResponse struct {
	ResponseCode    int    `json:"response_code"`
	ResponseMessage string `json:"response_message"`
	Token           string `json:"token"`
}

// APICategory is an entry of the remote category list.
type APICategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type categoriesResponse struct {
	TriviaCategories []APICategory `json:"trivia_categories"`
}

// QuestionCount is the number of questions a category holds per difficulty.
type QuestionCount struct {
	Total  int `json:"total"`
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

type countResponse struct {
	CategoryID    int `json:"category_id"`
	QuestionCount struct {
		Total  int `json:"total_question_count"`
		Easy   int `json:"total_easy_question_count"`
		Medium int `json:"total_medium_question_count"`
		Hard   int `json:"total_hard_question_count"`
	} `json:"category_question_count"`
}

// BatchRequest parameterizes one question fetch.
type BatchRequest struct {
	Difficulty domain.Difficulty
	CategoryID *int
	Amount     int
	Token      string
}

// Client talks to an OpenTDB compatible HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// FetchQuestions requests a batch of multiple-choice questions.
// Failures wrap one of the domain trivia errors so callers can react with errors.Is.
func (c *Client) FetchQuestions(ctx context.Context, req BatchRequest) ([]RawQuestion, error) {
	amount := req.Amount
	if amount <= 0 {
		amount = defaultAmount
	}

	q := url.Values{}
	q.Set("amount", strconv.Itoa(amount))
	if req.Difficulty != "" {
		q.Set("difficulty", string(req.Difficulty))
	}
	q.Set("type", "multiple")
	q.Set("encode", "url3986")
	if req.CategoryID != nil {
		q.Set("category", strconv.Itoa(*req.CategoryID))
	}
	if req.Token != "" {
		q.Set("token", req.Token)
	}

	var payload apiResponse
	if err := c.getJSON(ctx, "/api.php", q, &payload); err != nil {
		return nil, err
	}
	if err := codeError(payload.ResponseCode); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// RequestToken asks for a fresh session token.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("command", "request")

	var payload tokenResponse
	if err := c.getJSON(ctx, "/api_token.php", q, &payload); err != nil {
		return "", err
	}
	if payload.ResponseCode != codeSuccess || payload.Token == "" {
		return "", fmt.Errorf("invalid token response code=%d: %w", payload.ResponseCode, domain.ErrTransient)
	}
	return payload.Token, nil
}

// ResetToken clears the question history of a token so it can be reused.
func (c *Client) ResetToken(ctx context.Context, token string) error {
	q := url.Values{}
	q.Set("command", "reset")
	q.Set("token", token)

	var payload tokenResponse
	if err := c.getJSON(ctx, "/api_token.php", q, &payload); err != nil {
		return err
	}
	if err := codeError(payload.ResponseCode); err != nil {
		return fmt.Errorf("reset token: %w", err)
	}
	return nil
}

// Categories lists the categories known to the API.
func (c *Client) Categories(ctx context.Context) ([]APICategory, error) {
	var payload categoriesResponse
	if err := c.getJSON(ctx, "/api_category.php", nil, &payload); err != nil {
		return nil, err
	}
	return payload.TriviaCategories, nil
}

// CategoryQuestionCount reports how many questions a category holds.
func (c *Client) CategoryQuestionCount(ctx context.Context, categoryID int) (QuestionCount, error) {
	q := url.Values{}
	q.Set("category", strconv.Itoa(categoryID))

	var payload countResponse
	if err := c.getJSON(ctx, "/api_count.php", q, &payload); err != nil {
		return QuestionCount{}, err
	}
	return QuestionCount{
		Total:  payload.QuestionCount.Total,
		Easy:   payload.QuestionCount.Easy,
		Medium: payload.QuestionCount.Medium,
		Hard:   payload.QuestionCount.Hard,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, domain.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s returned status %d: %w", path, resp.StatusCode, domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %w", path, resp.StatusCode, domain.ErrTransient)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %v: %w", path, err, domain.ErrTransient)
	}
	return nil
}

func codeError(code int) error {
	switch code {
	case codeSuccess:
		return nil
	case codeNoResults:
		return fmt.Errorf("opentdb response_code=%d: %w", code, domain.ErrInsufficientQuestions)
	case codeTokenNotFound:
		return fmt.Errorf("opentdb response_code=%d: %w", code, domain.ErrTokenNotFound)
	case codeTokenEmpty:
		return fmt.Errorf("opentdb response_code=%d: %w", code, domain.ErrTokenExhausted)
	case codeRateLimit:
		return fmt.Errorf("opentdb response_code=%d: %w", code, domain.ErrRateLimited)
	case codeInvalidParameter:
		return fmt.Errorf("opentdb response_code=%d (invalid parameter): %w", code, domain.ErrTransient)
	default:
		return fmt.Errorf("opentdb response_code=%d: %w", code, domain.ErrTransient)
	}
}
