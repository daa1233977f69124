package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/model"
	"github.com/dhruv2494/mocktail-engine/internal/validator"
)

// Client consumes the quiz API. All methods are safe for use from a single
// goroutine; the engine serializes its calls.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a Client for the given API base URL. token is the opaque
// bearer credential handed to the engine by the host application; it is
// attached verbatim and never inspected.
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// StartSessionResponse is the payload returned by session start/resume.
type StartSessionResponse struct {
	SessionToken     string              `json:"session_token" validate:"required"`
	Status           model.SessionStatus `json:"status" validate:"required"`
	RemainingSeconds int                 `json:"remaining_seconds" validate:"gte=0"`
	IsDemo           bool                `json:"is_demo"`
	Language         string              `json:"language"`
}

// ClockResponse is the payload returned by pause and resume calls.
// RemainingSeconds is a pointer because a pause acknowledgment may omit it;
// resume always includes it.
type ClockResponse struct {
	Status           model.SessionStatus `json:"status" validate:"required"`
	RemainingSeconds *int                `json:"remaining_seconds" validate:"omitempty,gte=0"`
}

// SyncAnswerRequest mirrors one local answer for best-effort persistence.
type SyncAnswerRequest struct {
	Option           int  `json:"option"`
	Flagged          bool `json:"flagged"`
	TimeSpentSeconds int  `json:"time_spent_seconds"`
}

// SubmitSessionRequest finalizes an attempt with the complete answer set.
// IdempotencyKey is stable across retries of the same finalization so the
// server records the result at most once.
type SubmitSessionRequest struct {
	IdempotencyKey string             `json:"idempotency_key"`
	Reason         model.SubmitReason `json:"reason"`
	ElapsedSeconds int                `json:"elapsed_seconds"`
	Answers        []model.Answer     `json:"answers"`
}

// StartSession begins (or resumes server-side) an attempt for the test.
func (c *Client) StartSession(ctx context.Context, testID string) (*StartSessionResponse, error) {
	var out StartSessionResponse
	path := fmt.Sprintf("/quiz/tests/%s/session", url.PathEscape(testID))
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	if fields := validator.Check(&out); fields != nil {
		return nil, &Error{Code: ErrInvalidPayload, Message: "invalid start session payload", Fields: fields}
	}
	return &out, nil
}

// FetchQuestions loads the ordered question set once at session start.
func (c *Client) FetchQuestions(ctx context.Context, testID string) ([]model.Question, error) {
	var out struct {
		Questions []model.Question `json:"questions" validate:"required,min=1,dive"`
	}
	path := fmt.Sprintf("/quiz/tests/%s/questions", url.PathEscape(testID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if fields := validator.Check(&out); fields != nil {
		return nil, &Error{Code: ErrInvalidPayload, Message: "invalid question payload", Fields: fields}
	}
	return out.Questions, nil
}

// PauseSession checkpoints remaining time server-side.
func (c *Client) PauseSession(ctx context.Context, token string, remainingSeconds int) (*ClockResponse, error) {
	body := map[string]int{"remaining_seconds": remainingSeconds}
	var out ClockResponse
	path := fmt.Sprintf("/quiz/sessions/%s/pause", url.PathEscape(token))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	if fields := validator.Check(&out); fields != nil {
		return nil, &Error{Code: ErrInvalidPayload, Message: "invalid pause payload", Fields: fields}
	}
	return &out, nil
}

// ResumeSession restarts the countdown. The returned remaining time is
// authoritative and must overwrite any locally-cached value.
func (c *Client) ResumeSession(ctx context.Context, token string) (*ClockResponse, error) {
	var out ClockResponse
	path := fmt.Sprintf("/quiz/sessions/%s/resume", url.PathEscape(token))
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	if fields := validator.Check(&out); fields != nil || out.RemainingSeconds == nil {
		return nil, &Error{Code: ErrInvalidPayload, Message: "resume payload missing remaining time", Fields: fields}
	}
	return &out, nil
}

// SyncAnswer mirrors one answer server-side. Best-effort: callers treat any
// error as non-fatal.
func (c *Client) SyncAnswer(ctx context.Context, token, questionID string, req SyncAnswerRequest) error {
	path := fmt.Sprintf("/quiz/sessions/%s/answers/%s", url.PathEscape(token), url.PathEscape(questionID))
	return c.do(ctx, http.MethodPut, path, req, nil)
}

// SubmitSession finalizes the attempt and returns the score summary.
func (c *Client) SubmitSession(ctx context.Context, token string, req SubmitSessionRequest) (*model.SubmitResult, error) {
	var out model.SubmitResult
	path := fmt.Sprintf("/quiz/sessions/%s/submit", url.PathEscape(token))
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	if fields := validator.Check(&out); fields != nil {
		return nil, &Error{Code: ErrInvalidPayload, Message: "invalid submit payload", Fields: fields}
	}
	return &out, nil
}

// do executes one request/response round-trip through the envelope. out may
// be nil for acknowledgment-only endpoints.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Code: ErrCodeTransport, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Code: ErrCodeTransport, Message: err.Error()}
	}

	reqID := uuid.New().String()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return &Error{Code: ErrCodeTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Code: ErrCodeTransport, Message: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Status: resp.StatusCode, Code: ErrCodeTransport, Message: fmt.Sprintf("decode envelope: %v", err)}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Error != nil {
		apiErr := &Error{Status: resp.StatusCode, Code: ErrInternal, Message: "unexpected response"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Fields
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Status: resp.StatusCode, Code: ErrInvalidPayload, Message: fmt.Sprintf("decode data: %v", err)}
	}
	return nil
}
