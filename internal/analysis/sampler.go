package analysis

import (
	"github.com/chanlytics/channel-analysis-go/internal/db/models"
)

// Sampling strategy names stored with the analysis for reproducibility.
const (
	StrategyAllVideos         = "all_videos"
	StrategyRecentDistributed = "recent_distributed"
	StrategyLargeChannel      = "large_channel_sample"
)

// DefaultMaxSample is the hard ceiling on sample size.
const DefaultMaxSample = 50

// SampleVideos selects a bounded, representative subset of a channel's videos.
// The input must be ordered most-recently-published first. Selection is fully
// deterministic: the same input and maxSample always yield the same output in
// the same order.
//
// Tiers by total count n:
//   - n < 50: every video.
//   - 50 <= n < 500: the 30 most recent plus 20 evenly index-spaced across the
//     full range.
//   - n >= 500: the 25 most recent plus 25 evenly index-spaced.
//
// Overlaps between the recent and distributed sets are deduplicated by video
// ID and backfilled from the next-most-recent unselected video, so the result
// size is min(n, maxSample) whenever the tier targets allow it.
func SampleVideos(videos []*models.Video, maxSample int) ([]*models.Video, string) {
	if maxSample <= 0 {
		maxSample = DefaultMaxSample
	}

	n := len(videos)
	if n == 0 {
		return nil, StrategyAllVideos
	}

	if n < 50 {
		if n > maxSample {
			return append([]*models.Video(nil), videos[:maxSample]...), StrategyAllVideos
		}
		return append([]*models.Video(nil), videos...), StrategyAllVideos
	}

	var recentN, spreadN int
	var strategy string
	if n < 500 {
		recentN, spreadN = 30, 20
		strategy = StrategyRecentDistributed
	} else {
		recentN, spreadN = 25, 25
		strategy = StrategyLargeChannel
	}

	target := recentN + spreadN
	if target > maxSample {
		target = maxSample
	}
	if target > n {
		target = n
	}

	selected := make([]*models.Video, 0, target)
	seen := make(map[string]bool, target)

	take := func(v *models.Video) bool {
		if len(selected) >= target || seen[v.VideoID] {
			return false
		}
		seen[v.VideoID] = true
		selected = append(selected, v)
		return true
	}

	for i := 0; i < recentN && i < n; i++ {
		take(videos[i])
	}

	// Evenly spaced by index across the whole list, tolerant of irregular
	// upload cadence.
	for i := 0; i < spreadN; i++ {
		var idx int
		if spreadN == 1 {
			idx = n - 1
		} else {
			idx = i * (n - 1) / (spreadN - 1)
		}
		take(videos[idx])
	}

	// Backfill dedup shortfall from the next-most-recent unselected videos.
	for i := 0; i < n && len(selected) < target; i++ {
		take(videos[i])
	}

	return selected, strategy
}

// SampleIDs returns the video IDs of a sample, in selection order.
func SampleIDs(videos []*models.Video) []string {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.VideoID
	}
	return ids
}
