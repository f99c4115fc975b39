// Package embed provides the embedding-service client used to vectorize
// events for nearest-neighbor classification.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Config holds embedding client settings.
type Config struct {
	// URL is the embedding endpoint.
	URL string

	// Timeout bounds one request attempt.
	Timeout time.Duration

	// Retries is the number of additional attempts on transient failure.
	Retries int

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// Client implements interfaces.Embedder over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ interfaces.Embedder = (*Client)(nil)

// New creates an embedding client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type embedRequest struct {
	Input string `json:"input"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

// Embed vectorizes the event's title and notes. Transient failures are
// retried with linear backoff.
func (c *Client) Embed(ctx context.Context, event model.Event) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Input: embeddingText(event)})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		vector, retryable, err := c.embedOnce(ctx, body)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) embedOnce(ctx context.Context, body []byte) (vector []float32, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			fmt.Errorf("embed request: status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Vector) == 0 {
		return nil, false, fmt.Errorf("embed response carried no vector")
	}
	return out.Vector, false, nil
}

// embeddingText joins the fields that carry classification signal.
func embeddingText(event model.Event) string {
	parts := make([]string, 0, 2)
	if event.Title != "" {
		parts = append(parts, event.Title)
	}
	if event.Notes != "" {
		parts = append(parts, event.Notes)
	}
	return strings.Join(parts, ":")
}
