package grok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
)

func newTestClient(url string) *HTTPClient {
	return &HTTPClient{
		apiKey:     "test-key",
		model:      "grok-3-mini",
		baseURL:    url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestNewClient(t *testing.T) {
	cfg := config.GrokConfig{
		APIKey:  "test-api-key",
		Model:   "grok-3-mini",
		BaseURL: "https://test.api.com/v1/",
		Timeout: 30 * time.Second,
	}

	client := NewClient(cfg)

	if client == nil {
		t.Fatal("NewClient returned nil")
	}
	if client.apiKey != "test-api-key" {
		t.Errorf("apiKey = %q, want %q", client.apiKey, "test-api-key")
	}
	if client.model != "grok-3-mini" {
		t.Errorf("model = %q, want %q", client.model, "grok-3-mini")
	}
	if client.baseURL != "https://test.api.com/v1" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", client.baseURL)
	}
}

func TestBuildMessages(t *testing.T) {
	req := domain.CompletionRequest{
		SystemPrompt: "be helpful",
		History: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "first"},
			{Role: domain.RoleAssistant, Content: "reply"},
		},
		UserMessage: "second",
	}

	got := buildMessages(req)

	want := []chatMessage{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}
	if len(got) != len(want) {
		t.Fatalf("messages = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if msgs := buildMessages(domain.CompletionRequest{UserMessage: "only"}); len(msgs) != 1 || msgs[0].Role != "user" {
		t.Errorf("without system prompt: %+v", msgs)
	}
}

// ============================================================================
// Stream
// ============================================================================

func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing or wrong Authorization header")
		}

		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !body.Stream {
			t.Error("stream flag not set")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func deltaLine(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"delta": map[string]string{"content": content}},
		},
	})
	return "data: " + string(b)
}

func TestHTTPClient_Stream_Success(t *testing.T) {
	server := sseServer(t,
		": keep-alive",
		deltaLine("Hel"),
		deltaLine(""),
		deltaLine("lo"),
		"data: [DONE]",
		deltaLine("ignored"),
	)
	defer server.Close()

	var fragments []string
	err := newTestClient(server.URL).Stream(context.Background(), domain.CompletionRequest{UserMessage: "hi"}, func(s string) error {
		fragments = append(fragments, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if strings.Join(fragments, "|") != "Hel|lo" {
		t.Errorf("fragments = %v, want [Hel lo]", fragments)
	}
}

func TestHTTPClient_Stream_CallbackErrorStops(t *testing.T) {
	server := sseServer(t, deltaLine("a"), deltaLine("b"), "data: [DONE]")
	defer server.Close()

	stop := errors.New("stop")
	calls := 0
	err := newTestClient(server.URL).Stream(context.Background(), domain.CompletionRequest{UserMessage: "hi"}, func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want %v", err, stop)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestHTTPClient_Stream_ErrorChunk(t *testing.T) {
	server := sseServer(t, deltaLine("a"), `data: {"error":{"message":"rate limited"}}`)
	defer server.Close()

	err := newTestClient(server.URL).Stream(context.Background(), domain.CompletionRequest{UserMessage: "hi"}, func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("err = %v, want rate limited", err)
	}
}

func TestHTTPClient_Stream_MalformedChunk(t *testing.T) {
	server := sseServer(t, "data: {not json")
	defer server.Close()

	err := newTestClient(server.URL).Stream(context.Background(), domain.CompletionRequest{UserMessage: "hi"}, func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error for malformed chunk")
	}
}

func TestHTTPClient_Stream_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer server.Close()

	called := false
	err := newTestClient(server.URL).Stream(context.Background(), domain.CompletionRequest{UserMessage: "hi"}, func(string) error {
		called = true
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want status 401", err)
	}
	if called {
		t.Error("callback should not run on an API error")
	}
}

// ============================================================================
// Complete
// ============================================================================

func TestHTTPClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Stream {
			t.Error("Complete should not stream")
		}
		if len(body.Messages) != 1 || body.Messages[0].Content != "title please" {
			t.Errorf("messages = %+v", body.Messages)
		}

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "  Hook tips  \n"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Complete(context.Background(), "title please")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "Hook tips" {
		t.Errorf("got %q, want %q", got, "Hook tips")
	}
}

func TestHTTPClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("internal server error"))
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
			},
		},
		{
			name: "error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":{"message":"model not found"}}`))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			if _, err := newTestClient(server.URL).Complete(context.Background(), "x"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHTTPClient_Complete_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestClient(server.URL).Complete(ctx, "x"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
