package analysis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedProvider blocks ChannelByID until the gate is opened, letting tests
// stack up concurrent callers on one in-flight computation.
type gatedProvider struct {
	fakeProvider
	gate chan struct{}
	mu   sync.Mutex
}

func (p *gatedProvider) ChannelByID(ctx context.Context, channelID string) (*models.Channel, error) {
	<-p.gate
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fakeProvider.ChannelByID(ctx, channelID)
}

func computeChannel() *models.Channel {
	c := testChannel()
	c.UploadsPlaylistID = "UUabcdefghijklmnopqrstuv"
	return c
}

func taggedVideos(n int) []*models.Video {
	videos := makeVideos(n)
	for i, v := range videos {
		v.Tags = []string{"tech", fmt.Sprintf("extra-%d", i%3)}
	}
	return videos
}

func newTestCoordinator(provider MetadataProvider, llm TextGenerator, degraded bool) *Coordinator {
	fetcher := NewFetcher(provider, testLedger(10000), 10, nil)
	generator := NewGenerator(llm, 100, 1, nil)
	return NewCoordinator(fetcher, generator, CoordinatorConfig{
		MaxSample:       DefaultMaxSample,
		StalenessWindow: 30 * 24 * time.Hour,
		DegradedMode:    degraded,
		MaxConcurrent:   4,
	}, nil)
}

func TestCoordinator_Compute(t *testing.T) {
	ctx := context.Background()

	t.Run("builds a complete analysis", func(t *testing.T) {
		provider := &fakeProvider{
			channel: computeChannel(),
			pages:   [][]*models.Video{makeVideos(12)},
		}
		llm := &scriptedGenerator{responses: []string{validPayload()}}
		c := newTestCoordinator(provider, llm, false)

		result, err := c.Compute(ctx, "UCabcdefghijklmnopqrstuv")
		require.NoError(t, err)

		require.NotNil(t, result.Analysis)
		assert.Equal(t, "UCabcdefghijklmnopqrstuv", result.Analysis.ChannelID)
		assert.Equal(t, 12, result.Analysis.AnalyzedVideosCount)
		assert.Equal(t, int64(340), result.Analysis.TotalVideosCount)
		assert.Equal(t, StrategyAllVideos, result.Analysis.SamplingStrategy)
		assert.Len(t, result.Analysis.VideoSampleIDs, 12)
		assert.False(t, result.Analysis.Degraded)
		assert.Equal(t, "gemini-2.5-flash-test", result.Analysis.ModelVersion)
		assert.Equal(t,
			result.Analysis.AnalyzedAt.Add(30*24*time.Hour),
			result.Analysis.ExpiresAt,
		)
		assert.Len(t, result.Videos, 12)
	})

	t.Run("samples large channels before detail fetch", func(t *testing.T) {
		all := makeVideos(150)
		provider := &fakeProvider{
			channel: computeChannel(),
			pages:   [][]*models.Video{all[:50], all[50:100], all[100:]},
		}
		llm := &scriptedGenerator{responses: []string{validPayload()}}
		c := newTestCoordinator(provider, llm, false)

		result, err := c.Compute(ctx, "UCabcdefghijklmnopqrstuv")
		require.NoError(t, err)

		assert.Equal(t, StrategyRecentDistributed, result.Analysis.SamplingStrategy)
		assert.Equal(t, DefaultMaxSample, result.Analysis.AnalyzedVideosCount)
		// Only the sample goes through the detail endpoint.
		require.Equal(t, 1, provider.detailCalls)
		assert.Len(t, provider.detailBatches[0], DefaultMaxSample)
	})

	t.Run("no videos", func(t *testing.T) {
		provider := &fakeProvider{channel: computeChannel()}
		llm := &scriptedGenerator{responses: []string{validPayload()}}
		c := newTestCoordinator(provider, llm, false)

		_, err := c.Compute(ctx, "UCabcdefghijklmnopqrstuv")
		assert.ErrorIs(t, err, ErrNoVideos)
		assert.Equal(t, 0, llm.calls)
	})

	t.Run("channel not found skips generation", func(t *testing.T) {
		llm := &scriptedGenerator{responses: []string{validPayload()}}
		c := newTestCoordinator(&fakeProvider{}, llm, false)

		_, err := c.Compute(ctx, "UCmissing000000000000000")
		assert.True(t, IsNotFound(err))
		assert.Equal(t, 0, llm.calls)
	})

	t.Run("generation failure propagates when degraded mode is off", func(t *testing.T) {
		provider := &fakeProvider{
			channel: computeChannel(),
			pages:   [][]*models.Video{taggedVideos(12)},
		}
		llm := &scriptedGenerator{errs: []error{fmt.Errorf("bad key"), fmt.Errorf("bad key")}}
		c := newTestCoordinator(provider, llm, false)

		_, err := c.Compute(ctx, "UCabcdefghijklmnopqrstuv")
		require.Error(t, err)
	})

	t.Run("generation failure degrades to metadata-only", func(t *testing.T) {
		provider := &fakeProvider{
			channel: computeChannel(),
			pages:   [][]*models.Video{taggedVideos(12)},
		}
		llm := &scriptedGenerator{errs: []error{fmt.Errorf("bad key"), fmt.Errorf("bad key")}}
		c := newTestCoordinator(provider, llm, true)

		result, err := c.Compute(ctx, "UCabcdefghijklmnopqrstuv")
		require.NoError(t, err)

		a := result.Analysis
		assert.True(t, a.Degraded)
		assert.Equal(t, degradedModelVersion, a.ModelVersion)
		assert.InDelta(t, degradedConfidence, a.ConfidenceScore, 1e-9)
		assert.Contains(t, a.Summary, "Tech Explained")
		// Detail fetch put a "tag" on every sampled video; the fake provider
		// tags win the frequency count.
		assert.NotEmpty(t, a.Themes)
		assert.Equal(t, "daily", a.UploadFrequency)
	})
}

func TestCoordinator_SingleFlight(t *testing.T) {
	provider := &gatedProvider{
		fakeProvider: fakeProvider{
			channel: computeChannel(),
			pages:   [][]*models.Video{makeVideos(12)},
		},
		gate: make(chan struct{}),
	}
	llm := &scriptedGenerator{responses: []string{validPayload()}}
	c := newTestCoordinator(provider, llm, false)

	const callers = 8
	results := make([]*ComputeResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Compute(context.Background(), "UCabcdefghijklmnopqrstuv")
		}(i)
	}

	// Give every caller time to attach to the in-flight computation, then
	// let it run.
	time.Sleep(50 * time.Millisecond)
	close(provider.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
	}

	assert.Equal(t, 1, provider.channelCalls)
	assert.Equal(t, 1, llm.calls)
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}
