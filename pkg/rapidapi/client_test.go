package rapidapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "key" {
			t.Errorf("key header = %q", r.Header.Get("X-RapidAPI-Key"))
		}
		if r.Header.Get("X-RapidAPI-Host") != "example.p.rapidapi.com" {
			t.Errorf("host header = %q", r.Header.Get("X-RapidAPI-Host"))
		}
		if r.URL.Path != "/api/post/detail" || r.URL.Query().Get("videoId") != "42" {
			t.Errorf("url = %s", r.URL)
		}
		w.Write([]byte(`{"name":"ok"}`))
	}))
	defer server.Close()

	c := NewClient("key", "example.p.rapidapi.com", 5*time.Second).WithBaseURL(server.URL + "/")

	var out struct {
		Name string `json:"name"`
	}
	if err := c.GetJSON(context.Background(), "/api/post/detail", url.Values{"videoId": {"42"}}, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Name != "ok" {
		t.Errorf("name = %q", out.Name)
	}
}

func TestClient_GetJSON_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var out map[string]any

	c := NewClient("key", "h", time.Second).WithBaseURL(server.URL)
	if err := c.GetJSON(context.Background(), "/x", nil, &out); err == nil {
		t.Error("expected error for non-200 status")
	}

	missing := NewClient("", "h", time.Second).WithBaseURL(server.URL)
	if missing.Configured() {
		t.Error("client without key should not be configured")
	}
	if err := missing.GetJSON(context.Background(), "/x", nil, &out); !errors.Is(err, ErrMissingKey) {
		t.Errorf("err = %v, want %v", err, ErrMissingKey)
	}
}

func TestFirst(t *testing.T) {
	if got := FirstString("", "b", "c"); got != "b" {
		t.Errorf("FirstString = %q", got)
	}
	if got := FirstString(); got != "" {
		t.Errorf("FirstString() = %q", got)
	}

	zero := int64(0)
	five := int64(5)
	if got := FirstCount(nil, &zero, &five); got == nil || *got != 0 {
		t.Errorf("FirstCount should keep a reported zero, got %v", got)
	}
	if got := FirstCount(nil, nil); got != nil {
		t.Errorf("FirstCount = %v, want nil", got)
	}
}
