package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the daemon listening on bind
// (host:port or a full URL).
func NewClient(bind string) *Client {
	base := strings.TrimSpace(bind)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the daemon status snapshot.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// List fetches queue jobs, optionally filtered by status.
func (c *Client) List(ctx context.Context, statuses ...string) ([]JobView, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var resp QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Describe fetches one job by id; nil when the daemon reports 404.
func (c *Client) Describe(ctx context.Context, id string) (*JobView, error) {
	var resp JobResponse
	err := c.do(ctx, http.MethodGet, "/api/queue/"+url.PathEscape(id), nil, &resp)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Job, nil
}

// Add enqueues a job through the daemon.
func (c *Client) Add(ctx context.Context, req IntakeRequest) (*JobView, error) {
	var resp JobResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Remove deletes a job through the daemon.
func (c *Client) Remove(ctx context.Context, id string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, "/api/queue/"+url.PathEscape(id), nil, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Retry resets a failed job to pending through the daemon.
func (c *Client) Retry(ctx context.Context, id string) (int64, error) {
	var resp CountResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue/"+url.PathEscape(id)+"/retry", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Affected, nil
}

// StartProcessing asks the daemon to start draining the queue.
func (c *Client) StartProcessing(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/processing/start", nil, nil)
}

// StopProcessing asks the daemon to pause queue processing.
func (c *Client) StopProcessing(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/processing/stop", nil, nil)
}

// StatusError reports a non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("daemon api: %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("daemon api: unexpected status %d", e.Code)
}

func isNotFound(err error) bool {
	statusErr, ok := err.(*StatusError)
	return ok && statusErr.Code == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &payload)
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
