package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/stats"
)

// Benchmarks are reference engagement rates in percent.
type Benchmarks struct {
	LikeRate    float64
	CommentRate float64
	ShareRate   float64
	SaveRate    float64
}

// IndustryBenchmarks are the short-form video averages the report compares against.
var IndustryBenchmarks = Benchmarks{
	LikeRate:    4.5,
	CommentRate: 0.2,
	ShareRate:   0.15,
	SaveRate:    0.5,
}

// Comparison labels.
const (
	LabelExcellent    = "🔥 excellent"
	LabelAboveAverage = "✅ above average"
	LabelAverage      = "➖ average"
	LabelNeedsWork    = "⚠️ needs improvement"
)

const (
	excerptRunes     = 200
	rankingDescRunes = 40
	detailDescRunes  = 50
	itemDescRunes    = 100
	noDescription    = "(no description)"
)

// ComparisonLabel grades value against benchmark by ratio.
func ComparisonLabel(value, benchmark float64) string {
	if benchmark <= 0 {
		return LabelAverage
	}
	ratio := value / benchmark
	switch {
	case ratio >= 1.5:
		return LabelExcellent
	case ratio >= 1.0:
		return LabelAboveAverage
	case ratio >= 0.7:
		return LabelAverage
	default:
		return LabelNeedsWork
	}
}

// QuantitativeReport renders the numeric part of an account report.
func QuantitativeReport(st domain.AccountStatistics, username string, day time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 📊 Account analysis report\n**Account**: @%s | **Platform**: TikTok | **Date**: %s\n\n---\n\n",
		username, day.Format("2006-01-02"))
	b.WriteString("## 1. Executive summary\n*(written by the AI from the video analyses)*\n\n---\n\n")
	b.WriteString("## 2. Quantitative analysis\n\n")

	b.WriteString("### 2.1 Basic metrics\n| Metric | Value |\n|------|-----|\n")
	fmt.Fprintf(&b, "| Videos analyzed | %d |\n", st.VideoCount)
	fmt.Fprintf(&b, "| Total views | %s |\n", humanize.Comma(st.TotalViews))
	fmt.Fprintf(&b, "| Average views | %s |\n", humanize.Comma(st.AvgViews))
	fmt.Fprintf(&b, "| Total likes | %s |\n", humanize.Comma(st.TotalLikes))
	fmt.Fprintf(&b, "| Average likes | %s |\n\n", humanize.Comma(st.AvgLikes))

	bench := IndustryBenchmarks
	b.WriteString("### 2.2 Engagement\n| Metric | Value | vs. industry average |\n|------|-----|-------------|\n")
	fmt.Fprintf(&b, "| LVR (like rate) | %.2f%% | %s |\n", st.LikeRate, ComparisonLabel(st.LikeRate, bench.LikeRate))
	fmt.Fprintf(&b, "| CVR (comment rate) | %.3f%% | %s |\n", st.CommentRate, ComparisonLabel(st.CommentRate, bench.CommentRate))
	fmt.Fprintf(&b, "| SVR (share rate) | %.3f%% | %s |\n", st.ShareRate, ComparisonLabel(st.ShareRate, bench.ShareRate))
	fmt.Fprintf(&b, "| Save rate | %.3f%% | %s |\n", st.SaveRate, ComparisonLabel(st.SaveRate, bench.SaveRate))
	fmt.Fprintf(&b, "| **Total ER** | **%.2f%%** | - |\n\n", st.TotalEngagementRate)

	b.WriteString("### 2.3 Performance distribution\n| Metric | Value |\n|------|-----|\n")
	fmt.Fprintf(&b, "| Max views | %s |\n", humanize.Comma(st.MaxViews))
	fmt.Fprintf(&b, "| Min views | %s |\n", humanize.Comma(st.MinViews))
	fmt.Fprintf(&b, "| Median | %s |\n", humanize.Comma(st.MedianViews))
	fmt.Fprintf(&b, "| Standard deviation | %s |\n", humanize.Comma(st.StdDevViews))
	fmt.Fprintf(&b, "| Buzz rate (over %dx average) | %.0f%% |\n\n", stats.BuzzMultiplier, st.BuzzRate)

	b.WriteString("### 2.4 Posting cadence\n")
	fmt.Fprintf(&b, "- Cadence: **%s**\n", st.PostingCadence)
	fmt.Fprintf(&b, "- Average days between posts: %.1f\n\n---\n\n", st.AvgDaysBetweenPosts)

	return b.String()
}

// QualitativeSection renders the qualitative scaffold the completion fills
// in, followed by the per-video analysis details in input order.
func QualitativeSection(videos []domain.VideoRecord) string {
	succeeded := 0
	for i := range videos {
		if videos[i].Outcome.Succeeded() {
			succeeded++
		}
	}

	var b strings.Builder
	b.WriteString("## 3. Qualitative analysis\n\n")
	fmt.Fprintf(&b, "*The AI fills in the points below (based on %d video analyses)*\n\n", succeeded)
	b.WriteString(`### 3.1 Content structure
| Element | Current | Rating |
|------|------|------|
| Hook (first 2s) | *AI analysis* | *AI rating* |
| Structure pattern | *AI analysis* | *AI rating* |
| CTA | *AI analysis* | *AI rating* |
| Captions | *AI analysis* | *AI rating* |

### 3.2 Branding
- **Consistency of tone**: *AI analysis*
- **Differentiation**: *AI analysis*
- **Target audience**: *AI analysis*
- **Voice and manner**: *AI analysis*

### 3.3 Competitive view
- **Position in genre**: *AI analysis*
- **Difference from competitors**: *AI analysis*
- **Untapped opportunities**: *AI analysis*

---

## 5. Improvements (by priority)

### 🔴 Now
*The AI proposes concrete actions*

### 🟡 Within a month
*The AI proposes concrete actions*

### 🟢 Within three months
*The AI proposes concrete actions*

---

## 6. Next actions
*The AI proposes a checklist*

---

## Video analysis details

`)

	for i := range videos {
		v := &videos[i]
		fmt.Fprintf(&b, "### Video %d: %s\n", i+1, describe(v.Caption, detailDescRunes, false))
		fmt.Fprintf(&b, "- URL: %s\n", v.URL)
		fmt.Fprintf(&b, "- Views: %s / Likes: %s\n\n",
			humanize.Comma(v.Views()), humanize.Comma(domain.ValueOr(v.Insight.Likes, 0)))
		switch {
		case v.Outcome.Succeeded():
			fmt.Fprintf(&b, "**Gemini analysis:**\n%s\n\n", v.Outcome.Analysis)
		case v.Outcome != nil && v.Outcome.Error != "":
			fmt.Fprintf(&b, "**Analysis error:** %s\n\n", v.Outcome.Error)
		default:
			b.WriteString("**Analysis error:** unknown\n\n")
		}
	}

	return b.String()
}

// Ranking renders the top three videos by views plus the weakest one.
func Ranking(videos []domain.VideoRecord) string {
	if len(videos) == 0 {
		return ""
	}

	sorted := make([]*domain.VideoRecord, len(videos))
	for i := range videos {
		sorted[i] = &videos[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Views() > sorted[j].Views()
	})

	top := sorted[:min(3, len(sorted))]
	worst := sorted[len(sorted)-1]

	var b strings.Builder
	b.WriteString("## 4. Per-video analysis (top 3 + 1 to improve)\n\n")

	medals := []string{"🏆", "🥈", "🥉"}
	for i, v := range top {
		fmt.Fprintf(&b, "### %s #%d: %s\n", medals[i], i+1, describe(v.Caption, rankingDescRunes, true))
		writeRankingEntry(&b, v)
	}
	if worst.ID != top[len(top)-1].ID {
		fmt.Fprintf(&b, "### ⚠️ Needs improvement: %s\n", describe(worst.Caption, rankingDescRunes, true))
		writeRankingEntry(&b, worst)
	}
	b.WriteString("---\n\n")

	return b.String()
}

func writeRankingEntry(b *strings.Builder, v *domain.VideoRecord) {
	likes := domain.ValueOr(v.Insight.Likes, 0)
	interactions := likes + domain.ValueOr(v.Insight.Comments, 0) + domain.ValueOr(v.Insight.Shares, 0)
	fmt.Fprintf(b, "- **Views**: %s / **Likes**: %s / **ER**: %.2f%%\n",
		humanize.Comma(v.Views()), humanize.Comma(likes), stats.Rate(interactions, v.Views()))
	fmt.Fprintf(b, "- URL: %s\n", v.URL)
	if v.Outcome.Succeeded() {
		fmt.Fprintf(b, "- **AI analysis**: %s...\n", truncateRunes(v.Outcome.Analysis, excerptRunes))
	}
	b.WriteString("\n")
}

// Instructions closes the account context with directions for the completion.
func Instructions() string {
	return `## Instructions for the AI

Using the data above, produce the complete report:
1. Write the executive summary (section 1) in three to five sentences.
2. Fill in every *AI analysis* and *AI rating* cell of section 3 from the video analyses.
3. Explain why the top videos worked and what held the weakest one back (section 4).
4. Give concrete, prioritized improvements (section 5) and a checklist of next actions (section 6).
Keep the numbers exactly as given; do not invent metrics that are not listed.
`
}

// VideoItems converts records to their client representation, in input
// order. Rates use views floored at one.
func VideoItems(videos []domain.VideoRecord) []domain.VideoItem {
	items := make([]domain.VideoItem, 0, len(videos))
	for i := range videos {
		v := &videos[i]
		s := domain.VideoStats{
			PlayCount:    v.Views(),
			LikeCount:    domain.ValueOr(v.Insight.Likes, 0),
			CommentCount: domain.ValueOr(v.Insight.Comments, 0),
			ShareCount:   domain.ValueOr(v.Insight.Shares, 0),
			CollectCount: domain.ValueOr(v.Insight.Saves, 0),
		}
		views := max(s.PlayCount, 1)

		item := domain.VideoItem{
			ID:    v.ID,
			URL:   v.URL,
			Desc:  truncateRunes(v.Caption, itemDescRunes),
			Stats: s,
			Metrics: domain.VideoMetrics{
				LikeRate:    stats.Rate(s.LikeCount, views),
				CommentRate: stats.Rate(s.CommentCount, views),
				ShareRate:   stats.Rate(s.ShareCount, views),
				SaveRate:    stats.Rate(s.CollectCount, views),
				Engagement:  stats.Rate(s.LikeCount+s.CommentCount+s.ShareCount+s.CollectCount, views),
			},
		}
		if v.Insight.Thumbnail != "" {
			thumb := v.Insight.Thumbnail
			item.Thumbnail = &thumb
		}
		if !v.CreatedAt.IsZero() {
			item.CreatedAt = v.CreatedAt.Unix()
		}
		if v.Outcome != nil {
			if v.Outcome.Analysis != "" {
				analysis := v.Outcome.Analysis
				item.Analysis = &analysis
			}
			item.Error = v.Outcome.Error
		}
		items = append(items, item)
	}
	return items
}

func describe(caption string, limit int, ellipsis bool) string {
	if caption == "" {
		return noDescription
	}
	short := truncateRunes(caption, limit)
	if ellipsis && short != caption {
		return short + "..."
	}
	return short
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
