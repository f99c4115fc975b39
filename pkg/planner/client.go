// Package planner submits assembled scheduling requests to the external
// constraint-based optimizer.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Config holds optimizer client settings.
type Config struct {
	// URL is the solver's submission endpoint.
	URL string

	// Username and Password enable basic auth when set.
	Username string
	Password string

	// Timeout bounds one submission.
	Timeout time.Duration
}

// Client implements interfaces.Planner over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ interfaces.Planner = (*Client)(nil)

// New creates a planner client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Submit posts the request. The solver responds through its own channel
// later, so the response body is discarded; only the status matters.
func (c *Client) Submit(ctx context.Context, req *model.PlannerRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(errors.CodePlannerSubmit, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.CodePlannerSubmit, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Username != "" {
		httpReq.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrap(errors.CodePlannerSubmit, "post request", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New(errors.CodePlannerSubmit, fmt.Sprintf("solver returned status %d", resp.StatusCode)).
			WithContext("hostId", req.HostID)
	}
	return nil
}
