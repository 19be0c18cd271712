package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iconidentify/buzzteacher/internal/config"
)

// HTTPDownloader implements Fetcher using HTTP requests.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	backoff   Backoff
	logger    *slog.Logger
}

// NewHTTPDownloader creates a new HTTP media downloader.
func NewHTTPDownloader(cfg config.DownloadConfig, logger *slog.Logger) *HTTPDownloader {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	d := &HTTPDownloader{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    logger,
	}
	d.backoff = Backoff{
		Attempts:   attempts,
		Delay:      cfg.RetryDelay,
		MaxDelay:   cfg.MaxRetryDelay,
		Multiplier: 2,
		Retryable:  isRetryableError,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			d.logger.Debug("media download failed, retrying",
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		},
	}
	return d
}

// Fetch downloads url with retry. Forbidden, missing and oversized media
// are not retried.
func (d *HTTPDownloader) Fetch(ctx context.Context, url string, opts ...Option) ([]byte, error) {
	req := request{userAgent: d.userAgent}
	for _, opt := range opts {
		opt(&req)
	}

	started := time.Now()
	data, err := Do(ctx, d.backoff, func(ctx context.Context) ([]byte, error) {
		return d.fetchOnce(ctx, url, req)
	})
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	d.logger.Debug("media downloaded",
		"bytes", len(data),
		"duration", time.Since(started),
	)
	return data, nil
}

func (d *HTTPDownloader) fetchOnce(ctx context.Context, url string, r request) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.8")
	if r.referer != "" {
		req.Header.Set("Referer", r.referer)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	return data, nil
}

func isRetryableError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFound), errors.Is(err, ErrTooLarge):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
