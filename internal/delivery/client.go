package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fakewire/fakewire/internal/domain"
)

// ErrInvalidWebhookURL indicates the configured webhook URL cannot be used.
var ErrInvalidWebhookURL = errors.New("webhook URL must be an absolute http(s) URL")

// StatusError reports a webhook response with a non-success status code.
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Snippet)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configures a webhook delivery client.
type Options struct {
	WebhookURL     string
	RequestTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Client posts JSON payloads to a single webhook endpoint with bounded
// retries. Network failures and retryable statuses back off exponentially;
// a 4xx response is treated as terminal.
type Client struct {
	url        string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

const maxSnippetBytes = 512

// NewClient validates the webhook URL and returns a ready client.
func NewClient(opts Options) (*Client, error) {
	parsed, err := url.Parse(opts.WebhookURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWebhookURL, opts.WebhookURL)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}

	return &Client{
		url:        opts.WebhookURL,
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		attempts:   opts.MaxAttempts,
		backoff:    opts.InitialBackoff,
	}, nil
}

// SendPeople posts the given people as a JSON array to the webhook.
func (c *Client) SendPeople(ctx context.Context, people []domain.Person) error {
	payload, err := json.Marshal(people)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return c.Send(ctx, payload)
}

// Send posts a pre-encoded JSON payload to the webhook.
func (c *Client) Send(ctx context.Context, payload []byte) error {
	backoff := c.backoff
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = c.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			return lastErr
		}
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", c.attempts, lastErr)
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxSnippetBytes))
	return &StatusError{StatusCode: resp.StatusCode, Snippet: string(bytes.TrimSpace(snippet))}
}
