// Package api is the HTTP client for the medication information backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is where the backend listens in local development.
const DefaultBaseURL = "http://localhost:5000/api"

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 4 << 20

// Client talks JSON to the backend's REST routes.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient returns a client for the API rooted at baseURL, e.g.
// http://localhost:5000/api.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MedicationInfo fetches the record for one medication and returns the raw
// data object.
func (c *Client) MedicationInfo(ctx context.Context, req MedicationInfoRequest) (json.RawMessage, error) {
	body, err := c.post(ctx, "/medication-info", req)
	if err != nil {
		return nil, err
	}
	return dataOf(body)
}

// CheckInteractions evaluates every pair of meds and returns the raw report.
func (c *Client) CheckInteractions(ctx context.Context, meds []string) (json.RawMessage, error) {
	body, err := c.post(ctx, "/check-interactions", CheckInteractionsRequest{Medications: meds})
	if err != nil {
		return nil, err
	}
	return dataOf(body)
}

// Chat sends a free-form prompt and returns the whole response body, which
// may carry either text or a function-call result.
func (c *Client) Chat(ctx context.Context, prompt string) (json.RawMessage, error) {
	body, err := c.post(ctx, "/chat", ChatRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// LogQuery records an analytics entry for a completed interaction check.
func (c *Client) LogQuery(ctx context.Context, req LogQueryRequest) error {
	_, err := c.post(ctx, "/log-query", req)
	return err
}

// Feedback submits a helpful/unclear rating and returns the backend's
// acknowledgement text.
func (c *Client) Feedback(ctx context.Context, req FeedbackRequest) (string, error) {
	body, err := c.post(ctx, "/feedback", req)
	if err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return resp.Message, nil
}

func (c *Client) post(ctx context.Context, path string, in any) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

func dataOf(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, ErrEmptyPayload
	}
	return env.Data, nil
}
