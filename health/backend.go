package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BackendChecker checks that the API base URL answers. Any response counts
// as reachable; a 5xx status is degraded.
type BackendChecker struct {
	client  *http.Client
	baseURL string
}

// NewBackendChecker creates a BackendChecker. A nil client uses a client with
// a 5 second timeout.
func NewBackendChecker(client *http.Client, baseURL string) *BackendChecker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &BackendChecker{client: client, baseURL: baseURL}
}

func (c *BackendChecker) Name() string { return "backend" }

func (c *BackendChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return Unhealthy("invalid backend URL", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Unhealthy("backend unreachable", fmt.Errorf("%w: %w", ErrCheckFailed, err))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	details := map[string]any{
		"url":        c.baseURL,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if resp.StatusCode >= 500 {
		return Degraded(fmt.Sprintf("backend answered %d", resp.StatusCode)).WithDetails(details)
	}
	return Healthy("backend reachable").WithDetails(details)
}
