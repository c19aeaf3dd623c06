package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/db/models"
	"github.com/chanlytics/channel-analysis-go/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// degradedConfidence is the fixed confidence of a metadata-only analysis.
const degradedConfidence = 0.3

// degradedModelVersion tags analyses produced without the AI provider.
const degradedModelVersion = "metadata-only"

// ComputeResult is a fully formed, not-yet-persisted computation outcome.
// Persistence is the resolution engine's responsibility so that write
// failures cannot corrupt the in-flight state.
type ComputeResult struct {
	Channel  *models.Channel
	Videos   []*models.Video
	Analysis *models.ChannelAnalysis
}

// Coordinator runs the fresh-analysis pipeline (metadata fetch, sampling,
// prompt assembly, generation) with at most one in-flight computation per
// channel ID. Concurrent callers for the same channel attach as waiters and
// share the eventual result.
type Coordinator struct {
	fetcher   *Fetcher
	generator *Generator

	maxSample       int
	stalenessWindow time.Duration
	degradedMode    bool

	group singleflight.Group
	sem   *semaphore.Weighted
	now   func() time.Time
	log   *zap.Logger
}

// CoordinatorConfig tunes the computation pipeline.
type CoordinatorConfig struct {
	MaxSample       int
	StalenessWindow time.Duration
	DegradedMode    bool
	MaxConcurrent   int
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(fetcher *Fetcher, generator *Generator, cfg CoordinatorConfig, log *zap.Logger) *Coordinator {
	if cfg.MaxSample <= 0 {
		cfg.MaxSample = DefaultMaxSample
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = 30 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Coordinator{
		fetcher:         fetcher,
		generator:       generator,
		maxSample:       cfg.MaxSample,
		stalenessWindow: cfg.StalenessWindow,
		degradedMode:    cfg.DegradedMode,
		now:             time.Now,
		log:             log,
	}
	if cfg.MaxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return c
}

// Compute runs (or joins) the fresh-analysis computation for a channel.
// All concurrent callers for the same channel receive the same result.
func (c *Coordinator) Compute(ctx context.Context, channelID string) (*ComputeResult, error) {
	v, err, shared := c.group.Do(channelID, func() (interface{}, error) {
		return c.compute(ctx, channelID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("joined in-flight computation", zap.String("channel_id", channelID))
	}
	return v.(*ComputeResult), nil
}

func (c *Coordinator) compute(ctx context.Context, channelID string) (*ComputeResult, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire computation slot: %w", err)
		}
		defer c.sem.Release(1)
	}

	// Metadata first. If the channel cannot even be described, fail before
	// any AI spend.
	channel, err := c.fetcher.FetchChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	allVideos, err := c.fetcher.FetchAllVideos(ctx, channel)
	if err != nil {
		return nil, err
	}
	if len(allVideos) == 0 {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNoVideos)
	}

	sample, strategy := SampleVideos(allVideos, c.maxSample)
	sample, err = c.fetcher.FetchVideoDetails(ctx, sample)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	analysis := &models.ChannelAnalysis{
		ChannelID:           channelID,
		AnalyzedVideosCount: len(sample),
		TotalVideosCount:    channel.VideoCount,
		SamplingStrategy:    strategy,
		VideoSampleIDs:      SampleIDs(sample),
		AnalyzedAt:          now,
		ExpiresAt:           now.Add(c.stalenessWindow),
	}

	generated, genErr := c.generator.Generate(ctx, BuildPrompt(channel, sample))
	if genErr != nil {
		if !c.degradedMode {
			return nil, genErr
		}
		c.log.Warn("generation failed, producing degraded analysis",
			zap.String("channel_id", channelID),
			zap.Error(genErr),
		)
		metrics.GenerationsTotal.WithLabelValues("degraded").Inc()
		c.fillDegraded(analysis, channel, sample)
	} else {
		analysis.Summary = generated.Summary
		analysis.Themes = generated.Themes
		analysis.TargetAudience = generated.TargetAudience
		analysis.ContentStyle = generated.ContentStyle
		analysis.UploadFrequency = generated.UploadFrequency
		analysis.ConfidenceScore = generated.Confidence
		analysis.ModelVersion = generated.ModelVersion
	}

	return &ComputeResult{
		Channel:  channel,
		Videos:   sample,
		Analysis: analysis,
	}, nil
}

// fillDegraded builds a metadata-only analysis when the AI provider is
// unavailable or its output failed validation.
func (c *Coordinator) fillDegraded(analysis *models.ChannelAnalysis, channel *models.Channel, sample []*models.Video) {
	analysis.Summary = fmt.Sprintf(
		"%s is a YouTube channel with %d subscribers, %d videos and %d total views. %s",
		channel.Title, channel.SubscriberCount, channel.VideoCount, channel.ViewCount,
		truncate(channel.Description, maxChannelDescriptionChars),
	)
	analysis.Themes = topVideoTags(sample, 5)
	analysis.TargetAudience = "Unavailable (metadata-only analysis)"
	analysis.ContentStyle = "Unavailable (metadata-only analysis)"
	analysis.UploadFrequency = estimateUploadFrequency(sample)
	analysis.ConfidenceScore = degradedConfidence
	analysis.ModelVersion = degradedModelVersion
	analysis.Degraded = true
}

// topVideoTags returns the most frequent tags across the sampled videos,
// ties broken alphabetically for determinism.
func topVideoTags(videos []*models.Video, limit int) []string {
	counts := make(map[string]int)
	for _, v := range videos {
		for _, tag := range v.Tags {
			counts[tag]++
		}
	}
	if len(counts) == 0 {
		return []string{"uncategorized"}
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})

	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

// estimateUploadFrequency derives a coarse cadence label from the publish
// spacing of the most recent sampled videos.
func estimateUploadFrequency(videos []*models.Video) string {
	if len(videos) < 2 {
		return "irregular"
	}

	span := videos[0].PublishedAt.Sub(videos[len(videos)-1].PublishedAt)
	if span <= 0 {
		return "irregular"
	}
	perWeek := float64(len(videos)-1) / (span.Hours() / (24 * 7))

	switch {
	case perWeek >= 5:
		return "daily"
	case perWeek >= 2:
		return "2-3 times per week"
	case perWeek >= 0.8:
		return "weekly"
	case perWeek >= 0.2:
		return "monthly"
	default:
		return "irregular"
	}
}
