package downloader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iconidentify/buzzteacher/internal/config"
)

func testConfig() config.DownloadConfig {
	return config.DownloadConfig{
		Timeout:       5 * time.Second,
		RetryDelay:    10 * time.Millisecond,
		MaxRetryDelay: 100 * time.Millisecond,
		MaxAttempts:   3,
		MaxBytes:      1024,
		UserAgent:     "test-agent",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewHTTPDownloader(t *testing.T) {
	dl := NewHTTPDownloader(testConfig(), testLogger())

	if dl.userAgent != "test-agent" {
		t.Errorf("userAgent = %q, want %q", dl.userAgent, "test-agent")
	}
	if dl.backoff.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", dl.backoff.Attempts)
	}
	if dl.backoff.Delay != 10*time.Millisecond || dl.backoff.MaxDelay != 100*time.Millisecond {
		t.Errorf("delays = %v/%v, want 10ms/100ms", dl.backoff.Delay, dl.backoff.MaxDelay)
	}
	if dl.backoff.Retryable == nil || dl.backoff.OnRetry == nil {
		t.Fatal("Retryable and OnRetry should be set")
	}
	if dl.backoff.Retryable(ErrNotFound) {
		t.Error("ErrNotFound should not be retried")
	}
	if !dl.backoff.Retryable(ErrRateLimited) {
		t.Error("ErrRateLimited should be retried")
	}
	dl.backoff.OnRetry(1, ErrRateLimited, time.Millisecond)
}

func TestHTTPDownloader_Fetch_Success(t *testing.T) {
	content := []byte("video content data here")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q, want %q", ua, "test-agent")
		}
		w.Write(content)
	}))
	defer server.Close()

	dl := NewHTTPDownloader(testConfig(), testLogger())
	data, err := dl.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestHTTPDownloader_Fetch_Options(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "mobile" {
			t.Errorf("User-Agent = %q, want mobile", ua)
		}
		if ref := r.Header.Get("Referer"); ref != "https://www.instagram.com/" {
			t.Errorf("Referer = %q", ref)
		}
		w.Write([]byte("x"))
	}))
	defer server.Close()

	dl := NewHTTPDownloader(testConfig(), testLogger())
	if _, err := dl.Fetch(context.Background(), server.URL,
		WithUserAgent("mobile"), WithReferer("https://www.instagram.com/")); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
}

func TestHTTPDownloader_Fetch_NonRetryable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"unauthorized", http.StatusUnauthorized, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			dl := NewHTTPDownloader(testConfig(), testLogger())
			_, err := dl.Fetch(context.Background(), server.URL)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
		})
	}
}

func TestHTTPDownloader_Fetch_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dl := NewHTTPDownloader(testConfig(), testLogger())
	data, err := dl.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "ok" || calls != 3 {
		t.Errorf("data = %q after %d calls", data, calls)
	}
}

func TestHTTPDownloader_Fetch_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	dl := NewHTTPDownloader(testConfig(), testLogger())
	_, err := dl.Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("error = %v, want ErrTooLarge", err)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := Backoff{Attempts: 3, Delay: time.Hour, Multiplier: 2}
	_, err := Do(ctx, b, func(context.Context) (int, error) {
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDo_StopsOnSuccess(t *testing.T) {
	calls := 0
	var retried []int
	b := Backoff{
		Attempts:   5,
		Delay:      time.Millisecond,
		Multiplier: 2,
		OnRetry:    func(attempt int, err error, wait time.Duration) { retried = append(retried, attempt) },
	}
	got, err := Do(context.Background(), b, func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "done", nil
	})
	if err != nil || got != "done" || calls != 2 {
		t.Errorf("got %q, %v after %d calls", got, err, calls)
	}
	if len(retried) != 1 || retried[0] != 1 {
		t.Errorf("OnRetry attempts = %v, want [1]", retried)
	}
}

func TestDo_NotRetryable(t *testing.T) {
	calls := 0
	b := Backoff{
		Attempts:  4,
		Delay:     time.Millisecond,
		Retryable: func(err error) bool { return !errors.Is(err, ErrNotFound) },
	}
	_, err := Do(context.Background(), b, func(context.Context) ([]byte, error) {
		calls++
		return nil, ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) || calls != 1 {
		t.Errorf("err = %v after %d calls, want ErrNotFound after 1", err, calls)
	}
}

func TestBackoff_Next(t *testing.T) {
	tests := []struct {
		name string
		b    Backoff
		in   time.Duration
		want time.Duration
	}{
		{"doubles", Backoff{Multiplier: 2}, time.Second, 2 * time.Second},
		{"capped", Backoff{Multiplier: 2, MaxDelay: 3 * time.Second}, 2 * time.Second, 3 * time.Second},
		{"constant", Backoff{}, time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.next(tt.in); got != tt.want {
				t.Errorf("next(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
