// Package client talks to a running job card manager over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"go-jobcard-manager/internal/engine"
	"go-jobcard-manager/internal/settings"
)

const DefaultRetryDelay = 500 * time.Millisecond

type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: DefaultRetryDelay,
	}
}

// Send posts cmd. A transport failure is retried once after a short delay,
// which covers a manager that is still starting up.
func (c *Client) Send(ctx context.Context, cmd engine.Command) (engine.Response, error) {
	var resp engine.Response
	jsonData, err := json.Marshal(cmd)
	if err != nil {
		return resp, fmt.Errorf("failed to marshal command: %w", err)
	}
	err = c.do(ctx, http.MethodPost, "/api/commands", jsonData, &resp)
	return resp, err
}

func (c *Client) Stats(ctx context.Context) (engine.Stats, error) {
	var st engine.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &st)
	return st, err
}

func (c *Client) Settings(ctx context.Context) (settings.Settings, error) {
	var s settings.Settings
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &s)
	return s, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	bodyBytes, status, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		log.Printf("⚠️ %v, retrying once", err)
		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		bodyBytes, status, err = c.roundTrip(ctx, method, path, body)
		if err != nil {
			return err
		}
	}

	if status != http.StatusOK {
		var r engine.Response
		if json.Unmarshal(bodyBytes, &r) == nil && r.Message != "" {
			return fmt.Errorf("manager returned status %d: %s", status, r.Message)
		}
		return fmt.Errorf("manager returned status %d: %s", status, string(bodyBytes))
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create http request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, resp.StatusCode, nil
}
