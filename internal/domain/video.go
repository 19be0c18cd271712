package domain

import (
	"time"
)

// InsightRecord is a per-video engagement snapshot. A nil counter means the
// platform did not report it, which is distinct from zero.
type InsightRecord struct {
	URL         string   `json:"url"`
	Platform    Platform `json:"platform"`
	Views       *int64   `json:"view"`
	Likes       *int64   `json:"like"`
	Comments    *int64   `json:"comment"`
	Shares      *int64   `json:"share"`
	Saves       *int64   `json:"save"`
	DurationSec *int     `json:"durationSec"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

// Count returns a pointer to v, for building InsightRecords.
func Count(v int64) *int64 {
	return &v
}

// ValueOr returns *p, or def when the counter is unknown.
func ValueOr(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}

// AnalysisOutcome is the result of analyzing one video. Exactly one of
// Analysis or Error is set.
type AnalysisOutcome struct {
	Analysis string `json:"analysis,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Succeeded reports whether the analysis produced text.
func (o *AnalysisOutcome) Succeeded() bool {
	return o != nil && o.Analysis != "" && o.Error == ""
}

// VideoRecord is one video of a creator profile.
type VideoRecord struct {
	ID        string
	URL       string
	Caption   string
	CreatedAt time.Time
	Insight   InsightRecord

	// Outcome is written once by the batch scheduler.
	Outcome *AnalysisOutcome
}

// Views returns the view count with unknown treated as zero.
func (v *VideoRecord) Views() int64 {
	return ValueOr(v.Insight.Views, 0)
}

// Profile is a creator account with its most recent videos.
type Profile struct {
	Username string
	Videos   []VideoRecord
}

// VideoStats are the raw counters sent to clients in the video list.
type VideoStats struct {
	PlayCount    int64 `json:"playCount"`
	LikeCount    int64 `json:"likeCount"`
	CommentCount int64 `json:"commentCount"`
	ShareCount   int64 `json:"shareCount"`
	CollectCount int64 `json:"collectCount"`
}

// VideoMetrics are per-video engagement rates in percent.
type VideoMetrics struct {
	LikeRate    float64 `json:"lvr"`
	CommentRate float64 `json:"cvr"`
	ShareRate   float64 `json:"svr"`
	SaveRate    float64 `json:"saveRate"`
	Engagement  float64 `json:"er"`
}

// VideoItem is the client-facing row of the profile video list.
type VideoItem struct {
	ID        string       `json:"id"`
	URL       string       `json:"url"`
	Desc      string       `json:"desc"`
	Thumbnail *string      `json:"thumbnail"`
	CreatedAt int64        `json:"createdAt"`
	Stats     VideoStats   `json:"stats"`
	Metrics   VideoMetrics `json:"metrics"`
	Analysis  *string      `json:"analysis"`
	Error     string       `json:"error,omitempty"`
}
