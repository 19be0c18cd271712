package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/persona"
	"github.com/iconidentify/buzzteacher/internal/stream"
	"github.com/iconidentify/buzzteacher/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		BatchSize:         5,
		ProfileVideoCount: 10,
		DefaultPersona:    "doshirouto",
	}
}

var errBoom = errors.New("boom")

// ============================================================================
// Collaborator fakes
// ============================================================================

type fakeInsight struct {
	mu    sync.Mutex
	rec   *domain.InsightRecord
	err   error
	calls []string
}

func (f *fakeInsight) FetchInsight(ctx context.Context, videoURL string) (*domain.InsightRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, videoURL)
	return f.rec, f.err
}

// fakeMedia returns the URL itself as the video bytes so the analyzer can
// tell videos apart. URLs containing a fail substring return an error.
type fakeMedia struct {
	mu    sync.Mutex
	empty bool
	fail  []string
	calls int
}

func (f *fakeMedia) DownloadVideo(ctx context.Context, videoURL string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.empty {
		return nil, nil
	}
	for _, s := range f.fail {
		if strings.Contains(videoURL, s) {
			return nil, fmt.Errorf("download %s: %w", videoURL, errBoom)
		}
	}
	return []byte(videoURL), nil
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	text    string
	err     error
	fail    []string
	sources []domain.MediaSource
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, src domain.MediaSource) (string, error) {
	f.mu.Lock()
	f.sources = append(f.sources, src)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	for _, s := range f.fail {
		if strings.Contains(string(src.Data), s) {
			return "", errBoom
		}
	}
	if f.text != "" {
		return f.text, nil
	}
	return "analysis of " + string(src.Data) + src.URL, nil
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sources)
}

type fakeProfiles struct {
	profile *domain.Profile
	err     error
	count   int
}

func (f *fakeProfiles) ListVideos(ctx context.Context, profileURL string, count int) (*domain.Profile, error) {
	f.count = count
	return f.profile, f.err
}

// fakeCompletion streams the fragments returned by streamFn and answers
// Complete with complete/completeErr.
type fakeCompletion struct {
	mu          sync.Mutex
	streamFn    func(req domain.CompletionRequest) ([]string, error)
	complete    string
	completeErr error
	requests    []domain.CompletionRequest
	prompts     []string
}

func (f *fakeCompletion) Stream(ctx context.Context, req domain.CompletionRequest, onFragment func(string) error) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	fragments := []string{"Hello", " there"}
	var err error
	if f.streamFn != nil {
		fragments, err = f.streamFn(req)
	}
	for _, fr := range fragments {
		if e := onFragment(fr); e != nil {
			return e
		}
	}
	return err
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.complete, f.completeErr
}

// ============================================================================
// Helpers
// ============================================================================

func newTestAnalysisService(clients Clients) *AnalysisService {
	logger := testLogger()
	svc := NewAnalysisService(clients, worker.NewScheduler(worker.Config{BatchSize: 5}, logger), testAnalysisConfig(), logger)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func newTestAdviceService(completion CompletionService) *AdviceService {
	return NewAdviceService(completion, persona.Default(), testAnalysisConfig(), testLogger())
}

func newTestDebateService(completion CompletionService) *DebateService {
	return NewDebateService(completion, stream.Pacer{ChunkSize: 10}, testLogger())
}

func profileVideos(n int) []domain.VideoRecord {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	videos := make([]domain.VideoRecord, n)
	for i := range videos {
		id := fmt.Sprintf("%d", i+1)
		videos[i] = domain.VideoRecord{
			ID:        id,
			URL:       "https://www.tiktok.com/@alice/video/" + id,
			Caption:   "video number " + id,
			CreatedAt: base.AddDate(0, 0, i*2),
			Insight: domain.InsightRecord{
				Views:    domain.Count(int64(1000 * (i + 1))),
				Likes:    domain.Count(int64(50 * (i + 1))),
				Comments: domain.Count(int64(2 * (i + 1))),
				Shares:   domain.Count(int64(i + 1)),
				Saves:    domain.Count(int64(3 * (i + 1))),
			},
		}
	}
	return videos
}

func progressUpdates(events []stream.Event) []stream.Event {
	var out []stream.Event
	for _, ev := range events {
		if ev.Type == stream.TypeProgress {
			out = append(out, ev)
		}
	}
	return out
}

func textOf(events []stream.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == stream.TypeText {
			b.WriteString(ev.Content)
		}
	}
	return b.String()
}

func stepStatus(steps []domain.ProgressStep, id domain.StepID) (domain.ProgressStep, bool) {
	for _, s := range steps {
		if s.ID == id {
			return s, true
		}
	}
	return domain.ProgressStep{}, false
}
