package domain

// Posting cadence labels derived from the average gap between posts.
const (
	CadenceUnknown     = "unknown"
	CadenceDaily       = "daily"
	CadenceEvery2Days  = "every 2 days"
	CadenceTwiceWeekly = "2–3×/week"
	CadenceWeekly      = "weekly"
	CadenceBiweekly    = "biweekly"
	CadenceMonthly     = "1–2×/month"
)

// AccountStatistics aggregates engagement over a set of videos. Rates are
// percentages of total views.
type AccountStatistics struct {
	VideoCount int
	TotalViews int64
	AvgViews   int64
	TotalLikes int64
	AvgLikes   int64

	LikeRate            float64
	CommentRate         float64
	ShareRate           float64
	SaveRate            float64
	TotalEngagementRate float64

	MaxViews    int64
	MinViews    int64
	MedianViews int64
	StdDevViews int64
	BuzzRate    float64

	PostingCadence      string
	AvgDaysBetweenPosts float64
}
