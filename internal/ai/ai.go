// Package ai talks to an OpenAI-compatible chat-completions endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/gitmind/internal/config"
)

// ErrNotConfigured is returned by NewFromConfig when no endpoint is set.
var ErrNotConfigured = errors.New("ai: no endpoint configured")

// Request is one completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
}

// Completer returns the model's text reply for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ai: HTTP %d", e.Code)
	}
	return fmt.Sprintf("ai: HTTP %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Options configures an HTTPClient.
type Options struct {
	Endpoint string
	Model    string
	APIKey   string
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first.
	Retries int
	Backoff time.Duration
}

// HTTPClient implements Completer over HTTP.
type HTTPClient struct {
	opts Options
	http *http.Client
}

// NewHTTPClient returns a client with default timeout and backoff filled in.
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	return &HTTPClient{opts: opts, http: &http.Client{}}
}

// NewFromConfig builds a client from config, reading the API key from the
// environment variable the config names.
func NewFromConfig(cfg config.Config) (*HTTPClient, error) {
	if cfg.AIEndpoint == "" {
		return nil, ErrNotConfigured
	}
	return NewHTTPClient(Options{
		Endpoint: cfg.AIEndpoint,
		Model:    cfg.AIModel,
		APIKey:   os.Getenv(cfg.AIKeyEnv),
		Timeout:  cfg.AITimeout(),
		Retries:  cfg.AIRetries,
	}), nil
}

// Complete sends req, retrying transport errors and retryable statuses.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := c.buildRequestBody(req)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.opts.Backoff * time.Duration(attempt)):
			}
			logrus.WithError(lastErr).WithField("attempt", attempt+1).Debug("retrying completion")
		}
		out, err := c.attempt(ctx, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (c *HTTPClient) attempt(ctx context.Context, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &transportError{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &transportError{err: fmt.Errorf("read response body: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return parseChatCompletion(data)
}

func (c *HTTPClient) buildRequestBody(req Request) ([]byte, error) {
	messages := make([]map[string]string, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.UserPrompt})

	request := map[string]any{
		"messages":    messages,
		"temperature": 0,
	}
	if c.opts.Model != "" {
		request["model"] = c.opts.Model
	}
	return json.Marshal(request)
}

func parseChatCompletion(body []byte) (string, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("parse response: no choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

type transportError struct{ err error }

func (e *transportError) Error() string { return "ai: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Temporary()
}
