package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/cache"
	"github.com/chanlytics/channel-analysis-go/internal/db"
	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engineChannelID = "UCabcdefghijklmnopqrstuv"

type fakeChannelRepo struct {
	channels map[string]*models.Channel
	upserts  int
}

func (r *fakeChannelRepo) Upsert(_ context.Context, c *models.Channel) error {
	r.upserts++
	r.channels[c.ChannelID] = c
	return nil
}

func (r *fakeChannelRepo) GetByID(_ context.Context, channelID string) (*models.Channel, error) {
	c, ok := r.channels[channelID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return c, nil
}

type fakeVideoRepo struct {
	videos  map[string]*models.Video
	upserts int
}

func (r *fakeVideoRepo) UpsertBatch(_ context.Context, videos []*models.Video) error {
	r.upserts++
	for _, v := range videos {
		r.videos[v.VideoID] = v
	}
	return nil
}

func (r *fakeVideoRepo) GetByID(_ context.Context, videoID string) (*models.Video, error) {
	v, ok := r.videos[videoID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return v, nil
}

func (r *fakeVideoRepo) GetByChannelID(_ context.Context, channelID string, limit int) ([]*models.Video, error) {
	var out []*models.Video
	for _, v := range r.videos {
		if v.ChannelID == channelID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeAnalysisRepo struct {
	analyses  map[string]*models.ChannelAnalysis
	upsertErr error
	upserts   int
}

func (r *fakeAnalysisRepo) Upsert(_ context.Context, a *models.ChannelAnalysis) error {
	r.upserts++
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.analyses[a.ChannelID] = a
	return nil
}

func (r *fakeAnalysisRepo) GetByChannelID(_ context.Context, channelID string) (*models.ChannelAnalysis, error) {
	a, ok := r.analyses[channelID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return a, nil
}

type fakeEnqueuer struct {
	enqueued []string
}

func (e *fakeEnqueuer) EnqueueRefresh(_ context.Context, channelID string) error {
	e.enqueued = append(e.enqueued, channelID)
	return nil
}

type fakePublisher struct {
	published []*models.ChannelAnalysis
}

func (p *fakePublisher) PublishAnalysisCompleted(_ context.Context, _ *models.Channel, a *models.ChannelAnalysis) error {
	p.published = append(p.published, a)
	return nil
}

type engineFixture struct {
	engine    *Engine
	provider  *fakeProvider
	llm       *scriptedGenerator
	cache     *cache.Cache
	channels  *fakeChannelRepo
	videos    *fakeVideoRepo
	analyses  *fakeAnalysisRepo
	enqueuer  *fakeEnqueuer
	publisher *fakePublisher
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	provider := &fakeProvider{
		channel: computeChannel(),
		pages:   [][]*models.Video{makeVideos(12)},
	}
	llm := &scriptedGenerator{responses: []string{validPayload()}}

	fetcher := NewFetcher(provider, testLedger(10000), 10, nil)
	generator := NewGenerator(llm, 100, 1, nil)
	coordinator := NewCoordinator(fetcher, generator, CoordinatorConfig{
		StalenessWindow: 30 * 24 * time.Hour,
	}, nil)

	c := cache.New(cache.NewMemoryStore(), cache.TTLs{
		ChannelMeta:     time.Hour,
		ChannelAnalysis: time.Hour,
		VideoList:       time.Hour,
		URLMapping:      time.Hour,
	})

	f := &engineFixture{
		provider:  provider,
		llm:       llm,
		cache:     c,
		channels:  &fakeChannelRepo{channels: make(map[string]*models.Channel)},
		videos:    &fakeVideoRepo{videos: make(map[string]*models.Video)},
		analyses:  &fakeAnalysisRepo{analyses: make(map[string]*models.ChannelAnalysis)},
		enqueuer:  &fakeEnqueuer{},
		publisher: &fakePublisher{},
	}

	f.engine = NewEngine(EngineConfig{
		Cache:       c,
		Channels:    f.channels,
		Videos:      f.videos,
		Analyses:    f.analyses,
		Coordinator: coordinator,
		Fetcher:     fetcher,
		Enqueuer:    f.enqueuer,
		Publisher:   f.publisher,
	}, nil)

	return f
}

func analysisExpiring(at time.Time) *models.ChannelAnalysis {
	return &models.ChannelAnalysis{
		ChannelID:           engineChannelID,
		Summary:             "An existing analysis of the channel.",
		Themes:              []string{"technology"},
		AnalyzedVideosCount: 12,
		TotalVideosCount:    340,
		ConfidenceScore:     0.8,
		ModelVersion:        "gemini-2.5-flash",
		AnalyzedAt:          at.Add(-30 * 24 * time.Hour),
		ExpiresAt:           at,
	}
}

func TestEngine_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("cached fresh analysis", func(t *testing.T) {
		f := newEngineFixture(t)
		fresh := analysisExpiring(time.Now().Add(time.Hour))
		require.NoError(t, f.cache.SetAnalysis(ctx, fresh))

		result, err := f.engine.Resolve(ctx, engineChannelID)
		require.NoError(t, err)

		assert.Equal(t, TagCached, result.Meta.Freshness)
		assert.Equal(t, 0, f.provider.channelCalls)
		assert.Equal(t, 0, f.llm.calls)
	})

	t.Run("stored fresh analysis repairs the cache", func(t *testing.T) {
		f := newEngineFixture(t)
		fresh := analysisExpiring(time.Now().Add(time.Hour))
		f.analyses.analyses[engineChannelID] = fresh

		result, err := f.engine.Resolve(ctx, engineChannelID)
		require.NoError(t, err)

		assert.Equal(t, TagStored, result.Meta.Freshness)
		assert.Equal(t, 0, f.llm.calls)

		repaired, err := f.cache.GetAnalysis(ctx, engineChannelID)
		require.NoError(t, err)
		assert.Equal(t, fresh.Summary, repaired.Summary)
	})

	t.Run("stale analysis returns immediately and enqueues a refresh", func(t *testing.T) {
		f := newEngineFixture(t)
		stale := analysisExpiring(time.Now().Add(-time.Hour))
		f.analyses.analyses[engineChannelID] = stale

		result, err := f.engine.Resolve(ctx, engineChannelID)
		require.NoError(t, err)

		assert.Equal(t, TagStale, result.Meta.Freshness)
		assert.Equal(t, stale.Summary, result.Analysis.Summary)
		assert.Equal(t, []string{engineChannelID}, f.enqueuer.enqueued)
		// The stale record is served; the caller never waits on recomputation.
		assert.Equal(t, 0, f.llm.calls)
	})

	t.Run("missing analysis computes, persists and publishes", func(t *testing.T) {
		f := newEngineFixture(t)

		result, err := f.engine.Resolve(ctx, engineChannelID)
		require.NoError(t, err)

		assert.Equal(t, TagNew, result.Meta.Freshness)
		assert.Equal(t, 1, f.llm.calls)
		assert.Equal(t, 1, f.channels.upserts)
		assert.Equal(t, 1, f.videos.upserts)
		assert.Equal(t, 1, f.analyses.upserts)
		require.Len(t, f.publisher.published, 1)
		assert.Equal(t, engineChannelID, f.publisher.published[0].ChannelID)

		cached, err := f.cache.GetAnalysis(ctx, engineChannelID)
		require.NoError(t, err)
		assert.Equal(t, result.Analysis.Summary, cached.Summary)
	})

	t.Run("analysis persist failure still returns the result", func(t *testing.T) {
		f := newEngineFixture(t)
		f.analyses.upsertErr = fmt.Errorf("connection refused")

		result, err := f.engine.Resolve(ctx, engineChannelID)
		require.NoError(t, err)
		assert.Equal(t, TagNew, result.Meta.Freshness)
		assert.NotEmpty(t, result.Analysis.Summary)
	})

	t.Run("handle resolution is cached across calls", func(t *testing.T) {
		f := newEngineFixture(t)
		f.provider.searchID = engineChannelID

		first, err := f.engine.Resolve(ctx, "https://youtube.com/@techexplained")
		require.NoError(t, err)
		assert.Equal(t, TagNew, first.Meta.Freshness)
		assert.Equal(t, 1, f.provider.searchCalls)

		second, err := f.engine.Resolve(ctx, "https://youtube.com/@techexplained")
		require.NoError(t, err)
		assert.Equal(t, TagCached, second.Meta.Freshness)
		// The URL mapping is cached; no second search is spent.
		assert.Equal(t, 1, f.provider.searchCalls)
	})

	t.Run("invalid reference", func(t *testing.T) {
		f := newEngineFixture(t)

		_, err := f.engine.Resolve(ctx, "not a channel ref")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})
}

func TestEngine_GetExisting(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored analysis without provider calls", func(t *testing.T) {
		f := newEngineFixture(t)
		f.analyses.analyses[engineChannelID] = analysisExpiring(time.Now().Add(time.Hour))

		result, err := f.engine.GetExisting(ctx, engineChannelID)
		require.NoError(t, err)
		assert.Equal(t, TagStored, result.Meta.Freshness)
		assert.Equal(t, 0, f.provider.channelCalls)
	})

	t.Run("stale record is tagged stale, not refreshed", func(t *testing.T) {
		f := newEngineFixture(t)
		f.analyses.analyses[engineChannelID] = analysisExpiring(time.Now().Add(-time.Hour))

		result, err := f.engine.GetExisting(ctx, engineChannelID)
		require.NoError(t, err)
		assert.Equal(t, TagStale, result.Meta.Freshness)
		assert.Empty(t, f.enqueuer.enqueued)
		assert.Equal(t, 0, f.llm.calls)
	})

	t.Run("missing record", func(t *testing.T) {
		f := newEngineFixture(t)

		_, err := f.engine.GetExisting(ctx, engineChannelID)
		assert.True(t, IsNotFound(err))
		assert.Equal(t, 0, f.provider.channelCalls)
	})

	t.Run("unresolved handle never spends quota", func(t *testing.T) {
		f := newEngineFixture(t)
		f.provider.searchID = engineChannelID

		_, err := f.engine.GetExisting(ctx, "@techexplained")
		assert.True(t, IsNotFound(err))
		assert.Equal(t, 0, f.provider.searchCalls)
	})
}

func TestEngine_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("recomputes regardless of freshness", func(t *testing.T) {
		f := newEngineFixture(t)
		f.analyses.analyses[engineChannelID] = analysisExpiring(time.Now().Add(time.Hour))

		require.NoError(t, f.engine.Refresh(ctx, engineChannelID))
		assert.Equal(t, 1, f.llm.calls)
		assert.NotEqual(t, "An existing analysis of the channel.", f.analyses.analyses[engineChannelID].Summary)
	})

	t.Run("rejects non canonical ids", func(t *testing.T) {
		f := newEngineFixture(t)

		err := f.engine.Refresh(ctx, "@techexplained")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
		assert.Equal(t, 0, f.provider.channelCalls)
	})
}

func TestEngine_QuotaStatus(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Resolve(context.Background(), engineChannelID)
	require.NoError(t, err)

	consumed, remaining, limit, resetsAt := f.engine.QuotaStatus()
	// channels.list + one playlist page + one detail batch.
	assert.Equal(t, 3, consumed)
	assert.Equal(t, limit-consumed, remaining)
	assert.Equal(t, 10000, limit)
	assert.False(t, resetsAt.IsZero())
}
