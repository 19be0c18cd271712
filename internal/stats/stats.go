// Package stats computes account-level engagement statistics over a set of
// videos. Everything here is pure and deterministic.
package stats

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// BuzzMultiplier is how many times the average a video's views must exceed
// to count as a buzz video.
const BuzzMultiplier = 2

// Compute aggregates engagement over videos. An empty list yields all-zero
// numeric fields and an unknown cadence. Unknown counters count as zero.
func Compute(videos []domain.VideoRecord) domain.AccountStatistics {
	out := domain.AccountStatistics{PostingCadence: domain.CadenceUnknown}
	n := len(videos)
	if n == 0 {
		return out
	}

	var totalComments, totalShares, totalSaves int64
	views := make(stats.Float64Data, 0, n)
	for i := range videos {
		ins := videos[i].Insight
		v := domain.ValueOr(ins.Views, 0)
		out.TotalViews += v
		out.TotalLikes += domain.ValueOr(ins.Likes, 0)
		totalComments += domain.ValueOr(ins.Comments, 0)
		totalShares += domain.ValueOr(ins.Shares, 0)
		totalSaves += domain.ValueOr(ins.Saves, 0)
		views = append(views, float64(v))
	}

	out.VideoCount = n
	out.AvgViews = roundDiv(out.TotalViews, int64(n))
	out.AvgLikes = roundDiv(out.TotalLikes, int64(n))

	out.LikeRate = Rate(out.TotalLikes, out.TotalViews)
	out.CommentRate = Rate(totalComments, out.TotalViews)
	out.ShareRate = Rate(totalShares, out.TotalViews)
	out.SaveRate = Rate(totalSaves, out.TotalViews)
	out.TotalEngagementRate = Rate(out.TotalLikes+totalComments+totalShares+totalSaves, out.TotalViews)

	// The library only errors on empty input, which is handled above.
	maxV, _ := stats.Max(views)
	minV, _ := stats.Min(views)
	median, _ := stats.Median(views)
	// Deviation is taken around the exact mean, not the rounded AvgViews.
	sd, _ := stats.StandardDeviationPopulation(views)

	out.MaxViews = int64(maxV)
	out.MinViews = int64(minV)
	out.MedianViews = int64(math.Round(median))
	out.StdDevViews = int64(math.Round(sd))

	threshold := float64(out.AvgViews * BuzzMultiplier)
	buzz := 0
	for _, v := range views {
		if v > threshold {
			buzz++
		}
	}
	out.BuzzRate = float64(buzz) / float64(n) * 100

	out.AvgDaysBetweenPosts, out.PostingCadence = cadence(videos)
	return out
}

// Rate returns part as a percentage of whole, or 0 when whole is not positive.
func Rate(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// CadenceLabel buckets an average posting interval in days.
func CadenceLabel(days float64) string {
	switch {
	case days <= 1:
		return domain.CadenceDaily
	case days <= 2:
		return domain.CadenceEvery2Days
	case days <= 3.5:
		return domain.CadenceTwiceWeekly
	case days <= 7:
		return domain.CadenceWeekly
	case days <= 14:
		return domain.CadenceBiweekly
	default:
		return domain.CadenceMonthly
	}
}

// cadence uses only videos with a known creation time. Fewer than two such
// videos leave the cadence unknown.
func cadence(videos []domain.VideoRecord) (float64, string) {
	var oldest, newest time.Time
	dated := 0
	for i := range videos {
		ts := videos[i].CreatedAt
		if ts.IsZero() {
			continue
		}
		if dated == 0 || ts.Before(oldest) {
			oldest = ts
		}
		if dated == 0 || ts.After(newest) {
			newest = ts
		}
		dated++
	}
	if dated < 2 {
		return 0, domain.CadenceUnknown
	}

	// Gaps are counted between dated videos only, hence dated-1 rather than len(videos)-1.
	days := newest.Sub(oldest).Hours() / 24 / float64(dated-1)
	return days, CadenceLabel(days)
}

func roundDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return int64(math.Round(float64(a) / float64(b)))
}
