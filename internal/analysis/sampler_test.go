package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeVideos builds n videos ordered most-recently-published first.
func makeVideos(n int) []*models.Video {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	videos := make([]*models.Video, n)
	for i := 0; i < n; i++ {
		videos[i] = &models.Video{
			VideoID:     fmt.Sprintf("video-%04d", i),
			ChannelID:   "UCabcdefghijklmnopqrstuv",
			Title:       fmt.Sprintf("Video %d", i),
			PublishedAt: base.Add(-time.Duration(i) * 24 * time.Hour),
		}
	}
	return videos
}

func TestSampleVideos_SmallChannel(t *testing.T) {
	videos := makeVideos(12)

	sample, strategy := SampleVideos(videos, DefaultMaxSample)

	assert.Equal(t, StrategyAllVideos, strategy)
	require.Len(t, sample, 12)
	for i, v := range sample {
		assert.Equal(t, videos[i].VideoID, v.VideoID)
	}
}

func TestSampleVideos_MediumChannel(t *testing.T) {
	videos := makeVideos(200)

	sample, strategy := SampleVideos(videos, DefaultMaxSample)

	assert.Equal(t, StrategyRecentDistributed, strategy)
	require.Len(t, sample, 50)

	// The 30 most recent are always included.
	ids := make(map[string]bool, len(sample))
	for _, v := range sample {
		ids[v.VideoID] = true
	}
	for i := 0; i < 30; i++ {
		assert.True(t, ids[videos[i].VideoID], "recent video %d missing from sample", i)
	}

	// The oldest video is reachable through the distributed picks.
	assert.True(t, ids[videos[199].VideoID], "oldest video missing from sample")
}

func TestSampleVideos_LargeChannel(t *testing.T) {
	videos := makeVideos(1200)

	sample, strategy := SampleVideos(videos, DefaultMaxSample)

	assert.Equal(t, StrategyLargeChannel, strategy)
	require.Len(t, sample, 50)

	ids := make(map[string]bool, len(sample))
	for _, v := range sample {
		ids[v.VideoID] = true
	}
	for i := 0; i < 25; i++ {
		assert.True(t, ids[videos[i].VideoID], "recent video %d missing from sample", i)
	}
	assert.True(t, ids[videos[1199].VideoID], "oldest video missing from sample")
}

func TestSampleVideos_NoDuplicates(t *testing.T) {
	// At exactly 50 the recent and distributed picks overlap heavily.
	videos := makeVideos(50)

	sample, strategy := SampleVideos(videos, DefaultMaxSample)

	assert.Equal(t, StrategyRecentDistributed, strategy)
	require.Len(t, sample, 50)

	seen := make(map[string]bool, len(sample))
	for _, v := range sample {
		assert.False(t, seen[v.VideoID], "duplicate video %s in sample", v.VideoID)
		seen[v.VideoID] = true
	}
}

func TestSampleVideos_Deterministic(t *testing.T) {
	videos := makeVideos(300)

	first, _ := SampleVideos(videos, DefaultMaxSample)
	second, _ := SampleVideos(videos, DefaultMaxSample)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].VideoID, second[i].VideoID)
	}
}

func TestSampleVideos_RespectsMaxSample(t *testing.T) {
	videos := makeVideos(200)

	sample, _ := SampleVideos(videos, 10)
	assert.Len(t, sample, 10)
}

func TestSampleVideos_Empty(t *testing.T) {
	sample, strategy := SampleVideos(nil, DefaultMaxSample)
	assert.Empty(t, sample)
	assert.Equal(t, StrategyAllVideos, strategy)
}

func TestSampleIDs(t *testing.T) {
	videos := makeVideos(3)
	ids := SampleIDs(videos)
	assert.Equal(t, []string{"video-0000", "video-0001", "video-0002"}, ids)
}
