package tiktok

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/downloader"
	"github.com/iconidentify/buzzteacher/pkg/rapidapi"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFetcher struct {
	urls []string
	data []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, opts ...downloader.Option) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

func newTestClient(serverURL string, fetcher downloader.Fetcher) *Client {
	return &Client{
		api:      rapidapi.NewClient("key", "tiktok-api23.p.rapidapi.com", 5*time.Second).WithBaseURL(serverURL),
		download: rapidapi.NewClient("key", "tiktok-video-downloader-api.p.rapidapi.com", 5*time.Second).WithBaseURL(serverURL),
		fetcher:  fetcher,
		logger:   testLogger(),
	}
}

func jsonServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

// ============================================================================
// FetchInsight
// ============================================================================

func TestClient_FetchInsight(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantViews int64
		wantSaves *int64
		wantThumb string
		wantDur   int
	}{
		{
			name:      "itemStruct camelCase",
			body:      `{"itemInfo":{"itemStruct":{"stats":{"playCount":1200,"diggCount":80,"commentCount":5,"shareCount":3,"collectCount":9},"video":{"duration":21,"cover":"https://c/1.jpg"}}}}`,
			wantViews: 1200,
			wantSaves: domain.Count(9),
			wantThumb: "https://c/1.jpg",
			wantDur:   21,
		},
		{
			name:      "item snake_case",
			body:      `{"item":{"video_stats":{"play_count":50,"digg_count":2},"duration":9,"cover":"https://c/2.jpg"}}`,
			wantViews: 50,
			wantThumb: "https://c/2.jpg",
			wantDur:   9,
		},
		{
			name:      "flat",
			body:      `{"stats":{"playCount":7},"video":{"originCover":"https://c/3.jpg","duration":4}}`,
			wantViews: 7,
			wantThumb: "https://c/3.jpg",
			wantDur:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/post/detail" || r.URL.Query().Get("videoId") != "7300000000000000001" {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			url := "https://www.tiktok.com/@alice/video/7300000000000000001"
			rec, err := newTestClient(server.URL, &fakeFetcher{}).FetchInsight(context.Background(), url)
			if err != nil {
				t.Fatalf("FetchInsight failed: %v", err)
			}
			if rec.URL != url || rec.Platform != domain.PlatformTikTok {
				t.Errorf("record = %+v", rec)
			}
			if rec.Views == nil || *rec.Views != tt.wantViews {
				t.Errorf("views = %v, want %d", rec.Views, tt.wantViews)
			}
			if (rec.Saves == nil) != (tt.wantSaves == nil) || (rec.Saves != nil && *rec.Saves != *tt.wantSaves) {
				t.Errorf("saves = %v, want %v", rec.Saves, tt.wantSaves)
			}
			if rec.Thumbnail != tt.wantThumb {
				t.Errorf("thumbnail = %q, want %q", rec.Thumbnail, tt.wantThumb)
			}
			if rec.DurationSec == nil || *rec.DurationSec != tt.wantDur {
				t.Errorf("duration = %v, want %d", rec.DurationSec, tt.wantDur)
			}
		})
	}
}

func TestClient_FetchInsight_NoVideoID(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1", &fakeFetcher{})

	_, err := c.FetchInsight(context.Background(), "https://www.tiktok.com/@alice")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("err = %v, want %v", err, domain.ErrUnavailable)
	}
}

func TestClient_FetchInsight_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL, &fakeFetcher{}).FetchInsight(context.Background(), "https://www.tiktok.com/@a/video/123456789"); err == nil {
		t.Fatal("expected error for API failure")
	}
}

// ============================================================================
// DownloadVideo
// ============================================================================

func TestClient_DownloadVideo(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"videoUrl", `{"videoUrl":"https://cdn/a.mp4"}`, "https://cdn/a.mp4"},
		{"download_url", `{"download_url":"https://cdn/b.mp4"}`, "https://cdn/b.mp4"},
		{"nested data", `{"data":{"video_url":"https://cdn/c.mp4"}}`, "https://cdn/c.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(t, map[string]string{"/media": tt.body})
			defer server.Close()

			fetcher := &fakeFetcher{data: []byte("mp4")}
			data, err := newTestClient(server.URL, fetcher).DownloadVideo(context.Background(), "https://www.tiktok.com/@a/video/1")
			if err != nil {
				t.Fatalf("DownloadVideo failed: %v", err)
			}
			if string(data) != "mp4" {
				t.Errorf("data = %q", data)
			}
			if len(fetcher.urls) != 1 || fetcher.urls[0] != tt.want {
				t.Errorf("fetched %v, want %s", fetcher.urls, tt.want)
			}
		})
	}
}

func TestClient_DownloadVideo_NoMediaURL(t *testing.T) {
	server := jsonServer(t, map[string]string{"/media": `{"status":"ok"}`})
	defer server.Close()

	fetcher := &fakeFetcher{}
	_, err := newTestClient(server.URL, fetcher).DownloadVideo(context.Background(), "https://www.tiktok.com/@a/video/1")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("err = %v, want %v", err, domain.ErrUnavailable)
	}
	if len(fetcher.urls) != 0 {
		t.Error("nothing should be fetched without a media url")
	}
}

// ============================================================================
// ListVideos
// ============================================================================

func TestClient_ListVideos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/info":
			if r.URL.Query().Get("uniqueId") != "alice" {
				t.Errorf("uniqueId = %q", r.URL.Query().Get("uniqueId"))
			}
			w.Write([]byte(`{"userInfo":{"user":{"secUid":"SEC","uniqueId":"alice"}}}`))
		case "/api/user/posts":
			q := r.URL.Query()
			if q.Get("secUid") != "SEC" || q.Get("count") != "2" {
				t.Errorf("posts query = %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"data":{"itemList":[
				{"id":"11","desc":"first","createTime":1735689600,"stats":{"playCount":100,"diggCount":10}},
				{"id":"12","desc":"second","createTime":0,"stats":{"playCount":200}},
				{"id":"13","desc":"third","stats":{"playCount":300}}
			]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	profile, err := newTestClient(server.URL, &fakeFetcher{}).ListVideos(context.Background(), "https://www.tiktok.com/@alice", 2)
	if err != nil {
		t.Fatalf("ListVideos failed: %v", err)
	}
	if profile.Username != "alice" {
		t.Errorf("username = %q", profile.Username)
	}
	if len(profile.Videos) != 2 {
		t.Fatalf("videos = %d, want 2", len(profile.Videos))
	}

	first := profile.Videos[0]
	if first.URL != "https://www.tiktok.com/@alice/video/11" || first.Caption != "first" {
		t.Errorf("first = %+v", first)
	}
	if !first.CreatedAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("createdAt = %v", first.CreatedAt)
	}
	if first.Views() != 100 || domain.ValueOr(first.Insight.Likes, -1) != 10 {
		t.Errorf("insight = %+v", first.Insight)
	}
	if !profile.Videos[1].CreatedAt.IsZero() {
		t.Error("missing createTime should stay zero")
	}
}

func TestClient_ListVideos_UnknownUser(t *testing.T) {
	server := jsonServer(t, map[string]string{"/api/user/info": `{"userInfo":{"user":{}}}`})
	defer server.Close()

	_, err := newTestClient(server.URL, &fakeFetcher{}).ListVideos(context.Background(), "https://www.tiktok.com/@ghost", 10)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("err = %v, want %v", err, domain.ErrUnavailable)
	}
}

func TestClient_MissingKey(t *testing.T) {
	c := &Client{
		api:      rapidapi.NewClient("", "h", time.Second),
		download: rapidapi.NewClient("", "h", time.Second),
		fetcher:  &fakeFetcher{},
		logger:   testLogger(),
	}

	_, err := c.FetchInsight(context.Background(), "https://www.tiktok.com/@a/video/123456789")
	if !errors.Is(err, rapidapi.ErrMissingKey) {
		t.Errorf("err = %v, want %v", err, rapidapi.ErrMissingKey)
	}
}
