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

	"github.com/goodtune/webtime/internal/storage"
	"github.com/goodtune/webtime/internal/tracking"
)

// Client talks to a running webtime server. The CLI uses it so that it
// never opens the store underneath the daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://127.0.0.1:8765".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Data fetches the aggregate snapshot.
func (c *Client) Data(ctx context.Context) (*storage.Snapshot, error) {
	var snap storage.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/data", nil, &snap); err != nil {
		return nil, err
	}
	if snap.Domains == nil {
		snap.Domains = make(map[string]*storage.DomainRecord)
	}
	return &snap, nil
}

// Status fetches the tracker's current session.
func (c *Client) Status(ctx context.Context) (tracking.Status, error) {
	var status tracking.Status
	err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &status)
	return status, err
}

// Reset discards all tracked data on the server.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/reset", nil, nil)
}

// SendEvent reports one browser event.
func (c *Client) SendEvent(ctx context.Context, req EventRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/api/v1/events", bytes.NewReader(body), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
