// Package progress holds the per-request step checklist reported to clients
// while an analysis runs.
package progress

import (
	"github.com/iconidentify/buzzteacher/internal/domain"
)

// Step is one entry of a plan before any work has started.
type Step struct {
	ID    domain.StepID
	Label string
}

// Plan is a fixed ordered list of steps chosen once per request.
type Plan struct {
	Name  string
	Steps []Step
}

// Step plans per platform and mode.
var (
	TikTokVideoPlan = Plan{
		Name: "tiktok_video",
		Steps: []Step{
			{domain.StepInsight, "Fetch insights"},
			{domain.StepDownload, "Download video"},
			{domain.StepAnalyze, "AI analysis"},
			{domain.StepAdvice, "Generate advice"},
		},
	}

	InstagramVideoPlan = Plan{
		Name:  "instagram_video",
		Steps: TikTokVideoPlan.Steps,
	}

	YouTubePlan = Plan{
		Name: "youtube",
		Steps: []Step{
			{domain.StepAnalyze, "Analyze video"},
			{domain.StepAdvice, "Generate advice"},
		},
	}

	XPlan = Plan{
		Name: "x",
		Steps: []Step{
			{domain.StepRecognize, "Recognize URL"},
			{domain.StepAdvice, "Generate advice"},
		},
	}

	ProfilePlan = Plan{
		Name: "tiktok_profile",
		Steps: []Step{
			{domain.StepProfile, "Fetch profile"},
			{domain.StepVideos, "Fetch video list"},
			{domain.StepAnalyze, "Analyze videos"},
			{domain.StepReport, "Build report"},
		},
	}
)

// PlanFor selects the plan for a classified target. Targets without a URL
// have no plan. Unrecognized hosts follow the URL-only plan.
func PlanFor(target domain.PlatformTarget) (Plan, bool) {
	if !target.HasURL() {
		return Plan{}, false
	}
	if target.IsProfile() {
		return ProfilePlan, true
	}

	switch target.Platform {
	case domain.PlatformTikTok:
		return TikTokVideoPlan, true
	case domain.PlatformInstagram:
		return InstagramVideoPlan, true
	case domain.PlatformYouTube:
		return YouTubePlan, true
	default:
		return XPlan, true
	}
}

// Has reports whether the plan contains id.
func (p Plan) Has(id domain.StepID) bool {
	for _, s := range p.Steps {
		if s.ID == id {
			return true
		}
	}
	return false
}
