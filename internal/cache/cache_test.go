package cache

import (
	"context"
	"testing"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTTLs() TTLs {
	return TTLs{
		ChannelMeta:     time.Hour,
		ChannelAnalysis: time.Hour,
		VideoList:       time.Hour,
		URLMapping:      time.Hour,
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Minute))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	current = current.Add(11 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	// The expired entry is reaped on read.
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	current = current.Add(1000 * time.Hour)
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestCache_AnalysisRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), testTTLs())

	analysis := &models.ChannelAnalysis{
		ChannelID:       "UCabcdefghijklmnopqrstuv",
		Summary:         "A channel about technology.",
		Themes:          []string{"technology", "education"},
		ConfidenceScore: 0.9,
		AnalyzedAt:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:       time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.SetAnalysis(ctx, analysis))

	got, err := c.GetAnalysis(ctx, "UCabcdefghijklmnopqrstuv")
	require.NoError(t, err)
	assert.Equal(t, analysis.Summary, got.Summary)
	assert.Equal(t, analysis.Themes, got.Themes)
	assert.True(t, analysis.ExpiresAt.Equal(got.ExpiresAt))

	_, err = c.GetAnalysis(ctx, "UCother00000000000000000")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_NamespacesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), testTTLs())

	channelID := "UCabcdefghijklmnopqrstuv"
	require.NoError(t, c.SetChannel(ctx, &models.Channel{ChannelID: channelID, Title: "Tech Explained"}))

	// Channel metadata under the same ID must not satisfy an analysis lookup.
	_, err := c.GetAnalysis(ctx, channelID)
	assert.ErrorIs(t, err, ErrCacheMiss)

	got, err := c.GetChannel(ctx, channelID)
	require.NoError(t, err)
	assert.Equal(t, "Tech Explained", got.Title)
}

func TestCache_VideoList(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), testTTLs())

	channelID := "UCabcdefghijklmnopqrstuv"
	videos := []*models.Video{
		{VideoID: "v1", ChannelID: channelID, Title: "First"},
		{VideoID: "v2", ChannelID: channelID, Title: "Second"},
	}
	require.NoError(t, c.SetVideoList(ctx, channelID, videos))

	got, err := c.GetVideoList(ctx, channelID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "v1", got[0].VideoID)
	assert.Equal(t, "Second", got[1].Title)
}

func TestCache_URLMapping(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), testTTLs())

	rawURL := "https://youtube.com/@techexplained"
	require.NoError(t, c.SetURLMapping(ctx, rawURL, "UCabcdefghijklmnopqrstuv"))

	id, err := c.GetURLMapping(ctx, rawURL)
	require.NoError(t, err)
	assert.Equal(t, "UCabcdefghijklmnopqrstuv", id)

	_, err = c.GetURLMapping(ctx, "https://youtube.com/@someoneelse")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_CorruptEntryBecomesMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store, testTTLs())

	channelID := "UCabcdefghijklmnopqrstuv"
	require.NoError(t, store.Set(ctx, nsChannelAnalysis+channelID, []byte("{not json"), time.Hour))

	_, err := c.GetAnalysis(ctx, channelID)
	assert.ErrorIs(t, err, ErrCacheMiss)
	// The corrupt entry is dropped so the next write starts clean.
	assert.Equal(t, 0, store.Len())
}

func TestCache_InvalidateChannel(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), testTTLs())

	channelID := "UCabcdefghijklmnopqrstuv"
	require.NoError(t, c.SetChannel(ctx, &models.Channel{ChannelID: channelID}))
	require.NoError(t, c.SetAnalysis(ctx, &models.ChannelAnalysis{ChannelID: channelID}))
	require.NoError(t, c.SetVideoList(ctx, channelID, []*models.Video{{VideoID: "v1"}}))

	require.NoError(t, c.InvalidateChannel(ctx, channelID))

	_, err := c.GetChannel(ctx, channelID)
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.GetAnalysis(ctx, channelID)
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.GetVideoList(ctx, channelID)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
