// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Configuration constants for the webhook client.
const (
	// DefaultTimeout is the default timeout for webhook requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// PERFORMANCE: Shared HTTP client with connection pooling for all webhook
// requests. Per-request deadlines come from the caller's context.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// ErrNotConfigured indicates the webhook URL is not set.
var ErrNotConfigured = errors.New("webhook URL not configured")

// StatusError represents a non-2xx response from the endpoint.
type StatusError struct {
	Status int
}

// Error implements the error interface with the fixed user-facing shape.
func (e *StatusError) Error() string {
	return fmt.Sprintf("Request failed with status %d", e.Status)
}

// Is implements errors.Is support: any two StatusErrors match, so callers
// can test for the class without knowing the code.
func (e *StatusError) Is(target error) bool {
	_, ok := target.(*StatusError)
	return ok
}

// =============================================================================
// REQUEST & REPLY TYPES
// =============================================================================

// Request is the outbound JSON body. SessionID and ChatID currently carry
// the same value (the chat id); they are separate fields so the endpoint
// contract survives a future split.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	ChatID    string `json:"chatId"`
	Timestamp string `json:"timestamp"`
}

// replyFields are the candidate response fields, tried in order.
var replyFields = []string{"output", "response", "message", "text"}

// Reply is the extracted endpoint response. Field records which branch of
// the ordered fallback fired: the matched field name, or "" with Fallback
// set when the whole payload was stringified.
type Reply struct {
	Text     string
	Field    string
	Fallback bool
}

// ExtractReply pulls the reply text out of a response body. Candidate
// fields are tried in order; a field matches only when it is a JSON
// string. When nothing matches, the whole payload is re-serialized
// compactly and returned as the fallback text. Invalid JSON is an error.
func ExtractReply(body []byte) (Reply, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return Reply{}, fmt.Errorf("failed to parse response: %w", err)
	}

	for _, field := range replyFields {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			// Present but not a string: fall through to the next candidate.
			continue
		}
		return Reply{Text: text, Field: field}, nil
	}

	whole, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to stringify response: %w", err)
	}
	return Reply{Text: string(whole), Fallback: true}, nil
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the external conversational endpoint. Configure it with
// the With* chain; the zero retry/limit values mean "single attempt" and
// "no pacing".
type Client struct {
	url        string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client for the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: sharedHTTPClient,
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
	}
}

// WithMaxRetries sets the maximum number of attempts for transient errors.
func (c *Client) WithMaxRetries(n int) *Client {
	if n < 1 {
		n = 1
	}
	c.maxRetries = n
	return c
}

// WithRateLimit paces outbound requests to n per second. Zero disables
// pacing.
func (c *Client) WithRateLimit(n float64) *Client {
	if n > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(n), 1)
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client (used by tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// URL returns the configured endpoint URL.
func (c *Client) URL() string {
	return c.url
}

// IsConfigured reports whether an endpoint URL is set.
func (c *Client) IsConfigured() bool {
	return c.url != ""
}

// Send posts one user message and returns the extracted reply. Transient
// failures (transport errors and 5xx) are retried with exponential
// backoff; cancellation aborts both the in-flight request and any backoff
// wait. Non-2xx responses surface as *StatusError.
func (c *Client) Send(ctx context.Context, message, sessionID, chatID string) (Reply, error) {
	if !c.IsConfigured() {
		return Reply{}, ErrNotConfigured
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Reply{}, err
		}
	}

	body, err := json.Marshal(Request{
		Message:   message,
		SessionID: sessionID,
		ChatID:    chatID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Reply{}, ctx.Err()
			case <-time.After(backoffDelay(attempt)):
			}
		}

		reply, err := c.doRequest(ctx, body)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			// Cancellation is expected, not a failure to retry.
			return Reply{}, ctx.Err()
		}
		if !isRetryable(err) {
			return Reply{}, err
		}
		lastErr = err
		c.logger.Warn("webhook request failed, retrying",
			"attempt", attempt+1, "max", c.maxRetries, "error", err)
	}

	return Reply{}, lastErr
}

// doRequest performs a single POST to the endpoint.
func (c *Client) doRequest(ctx context.Context, body []byte) (Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readResponse(resp)
	if err != nil {
		return Reply{}, err
	}

	c.logger.Debug("webhook response",
		"status", resp.StatusCode, "duration", time.Since(start), "bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reply{}, &StatusError{Status: resp.StatusCode}
	}

	return ExtractReply(respBody)
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// isRetryable reports whether the error is worth another attempt: server
// errors and transport failures are; 4xx and malformed payloads are not.
func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 500
	}
	// http.Client failures are always *url.Error.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// backoffDelay computes the exponential backoff for the given attempt,
// capped at retryMaxDelay.
func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		return retryMaxDelay
	}
	return delay
}
