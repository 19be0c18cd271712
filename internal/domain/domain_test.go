package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Platform Tests
// =============================================================================

func TestPlatformTarget_HasURL(t *testing.T) {
	tests := []struct {
		name   string
		target PlatformTarget
		want   bool
	}{
		{"none", PlatformTarget{Kind: TargetNone}, false},
		{"video with url", PlatformTarget{Kind: TargetVideo, RawURL: "https://x.com/a/status/1"}, true},
		{"profile with url", PlatformTarget{Kind: TargetProfile, RawURL: "https://www.tiktok.com/@a"}, true},
		{"video without url", PlatformTarget{Kind: TargetVideo}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.HasURL(); got != tt.want {
				t.Errorf("HasURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlatformTarget_IsProfile(t *testing.T) {
	if (PlatformTarget{Kind: TargetVideo}).IsProfile() {
		t.Error("video target reported as profile")
	}
	if !(PlatformTarget{Kind: TargetProfile}).IsProfile() {
		t.Error("profile target not reported as profile")
	}
}

// =============================================================================
// Insight Tests
// =============================================================================

func TestValueOr(t *testing.T) {
	if got := ValueOr(nil, 7); got != 7 {
		t.Errorf("ValueOr(nil, 7) = %d, want 7", got)
	}
	if got := ValueOr(Count(0), 7); got != 0 {
		t.Errorf("ValueOr(0, 7) = %d, want 0", got)
	}
	if got := ValueOr(Count(42), 7); got != 42 {
		t.Errorf("ValueOr(42, 7) = %d, want 42", got)
	}
}

func TestVideoRecord_Views(t *testing.T) {
	v := VideoRecord{}
	if got := v.Views(); got != 0 {
		t.Errorf("Views() with unknown counter = %d, want 0", got)
	}
	v.Insight.Views = Count(1500)
	if got := v.Views(); got != 1500 {
		t.Errorf("Views() = %d, want 1500", got)
	}
}

func TestInsightRecord_UnknownVersusZero(t *testing.T) {
	rec := InsightRecord{Views: Count(0)}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"view":0`) {
		t.Errorf("zero views not serialized as 0: %s", s)
	}
	if !strings.Contains(s, `"like":null`) {
		t.Errorf("unknown likes not serialized as null: %s", s)
	}
}

func TestAnalysisOutcome_Succeeded(t *testing.T) {
	tests := []struct {
		name    string
		outcome *AnalysisOutcome
		want    bool
	}{
		{"nil", nil, false},
		{"analysis", &AnalysisOutcome{Analysis: "good hook"}, true},
		{"error", &AnalysisOutcome{Error: "download failed"}, false},
		{"empty", &AnalysisOutcome{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoItem_JSONShape(t *testing.T) {
	item := VideoItem{
		ID:      "1",
		URL:     "https://www.tiktok.com/@a/video/1",
		Metrics: VideoMetrics{LikeRate: 4.5, SaveRate: 0.5},
	}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	for _, want := range []string{`"lvr":4.5`, `"saveRate":0.5`, `"thumbnail":null`, `"analysis":null`, `"playCount":0`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in %s", want, s)
		}
	}
	if strings.Contains(s, `"error"`) {
		t.Errorf("empty error should be omitted: %s", s)
	}
}

// =============================================================================
// Progress Tests
// =============================================================================

func TestStepStatus_Terminal(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   bool
	}{
		{StepPending, false},
		{StepInProgress, false},
		{StepCompleted, true},
		{StepError, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressStep_JSON(t *testing.T) {
	step := ProgressStep{ID: StepAnalyze, Label: "Analyzing video", Status: StepInProgress}
	data, err := json.Marshal(step)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":"analyze","label":"Analyzing video","status":"in_progress"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestStepFailure(t *testing.T) {
	err := NewStepFailure(StepDownload, ErrUnavailable)

	if got := err.Error(); got != "download: data unavailable" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("errors.Is should match the wrapped error")
	}

	var sf *StepFailure
	if !errors.As(error(err), &sf) || sf.Step != StepDownload {
		t.Error("errors.As should recover the step")
	}

	// The failed step status keeps its wire value.
	if StepError != "error" {
		t.Errorf("StepError = %q, want %q", StepError, "error")
	}
}

func TestConversationID_String(t *testing.T) {
	if got := ConversationID("abc").String(); got != "abc" {
		t.Errorf("String() = %q, want abc", got)
	}
}
