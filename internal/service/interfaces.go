package service

import (
	"context"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// Collaborator contracts. A nil result with a nil error means the data is
// unavailable and is treated exactly like an error: the step degrades and
// the run continues.

// InsightClient fetches engagement counters for a single video.
type InsightClient interface {
	FetchInsight(ctx context.Context, videoURL string) (*domain.InsightRecord, error)
}

// MediaClient downloads the raw bytes of a single video.
type MediaClient interface {
	DownloadVideo(ctx context.Context, videoURL string) ([]byte, error)
}

// ProfileClient lists the recent videos of an account.
type ProfileClient interface {
	ListVideos(ctx context.Context, profileURL string, count int) (*domain.Profile, error)
}

// ContentAnalyzer turns a video into a descriptive text analysis.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, src domain.MediaSource) (string, error)
}

// CompletionService generates text. Stream calls onFragment for every
// fragment in arrival order and stops at the first error it returns.
type CompletionService interface {
	Stream(ctx context.Context, req domain.CompletionRequest, onFragment func(string) error) error
	Complete(ctx context.Context, prompt string) (string, error)
}

// Clients groups the per-platform collaborators of the orchestrator. A
// missing entry behaves like a client that always reports unavailable.
type Clients struct {
	Insight  map[domain.Platform]InsightClient
	Media    map[domain.Platform]MediaClient
	Profiles ProfileClient
	Analyzer ContentAnalyzer
}
