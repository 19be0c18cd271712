package downloader

import (
	"context"
	"errors"
)

// Fetcher downloads a media file fully into memory.
type Fetcher interface {
	// Fetch returns the body of url. Options adjust request headers.
	Fetch(ctx context.Context, url string, opts ...Option) ([]byte, error)
}

// Download errors.
var (
	ErrForbidden   = errors.New("media url forbidden or expired")
	ErrNotFound    = errors.New("media not found")
	ErrRateLimited = errors.New("rate limited")
	ErrTooLarge    = errors.New("media exceeds size limit")
)

// Option customizes a single fetch.
type Option func(*request)

type request struct {
	userAgent string
	referer   string
}

// WithUserAgent overrides the configured user agent.
func WithUserAgent(ua string) Option {
	return func(r *request) { r.userAgent = ua }
}

// WithReferer sets the Referer header some CDNs require.
func WithReferer(referer string) Option {
	return func(r *request) { r.referer = referer }
}
