// Package rapidapi is a minimal JSON client for RapidAPI-hosted services.
package rapidapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMissingKey is returned when no API key is configured.
var ErrMissingKey = errors.New("rapidapi key not configured")

// Client sends authenticated GET requests to a single RapidAPI host.
type Client struct {
	apiKey     string
	host       string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for host. Requests go to https://<host>.
func NewClient(apiKey, host string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		host:       host,
		baseURL:    "https://" + host,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at a different origin while keeping the
// RapidAPI host header.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetJSON fetches path with query and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	if !c.Configured() {
		return ErrMissingKey
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// FirstString returns the first non-empty value.
func FirstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FirstCount returns the first known counter.
func FirstCount(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
