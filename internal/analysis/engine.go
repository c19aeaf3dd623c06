package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/cache"
	"github.com/chanlytics/channel-analysis-go/internal/db"
	"github.com/chanlytics/channel-analysis-go/internal/db/models"
	"github.com/chanlytics/channel-analysis-go/internal/db/repository"
	"github.com/chanlytics/channel-analysis-go/internal/metrics"

	"go.uber.org/zap"
)

// RefreshEnqueuer schedules a background recomputation for a stale channel.
type RefreshEnqueuer interface {
	EnqueueRefresh(ctx context.Context, channelID string) error
}

// EventPublisher announces completed analyses to downstream consumers.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, channel *models.Channel, analysis *models.ChannelAnalysis) error
}

// ResultMeta carries resolution metadata alongside the analysis payload.
type ResultMeta struct {
	Freshness      string    `json:"freshness"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
	VideosAnalyzed int       `json:"videos_analyzed"`
	TotalVideos    int64     `json:"total_videos"`
	Confidence     float64   `json:"confidence"`
	ModelVersion   string    `json:"model_version"`
	Degraded       bool      `json:"degraded,omitempty"`
}

// Result is the engine's answer to a resolution request.
type Result struct {
	Channel  *models.Channel         `json:"channel"`
	Analysis *models.ChannelAnalysis `json:"analysis"`
	Meta     ResultMeta              `json:"meta"`
}

// Engine resolves channel references to analyses through the cache, the
// store, and finally a fresh computation, in that order. Cheaper tiers are
// always consulted first and repaired on the way back down.
type Engine struct {
	cache       *cache.Cache
	channels    repository.ChannelRepository
	videos      repository.VideoRepository
	analyses    repository.AnalysisRepository
	coordinator *Coordinator
	fetcher     *Fetcher

	enqueuer  RefreshEnqueuer
	publisher EventPublisher

	backgroundTimeout time.Duration
	now               func() time.Time
	log               *zap.Logger
}

// EngineConfig wires the engine's collaborators. Enqueuer and Publisher are
// optional; without an enqueuer stale refreshes run on a detached goroutine.
type EngineConfig struct {
	Cache       *cache.Cache
	Channels    repository.ChannelRepository
	Videos      repository.VideoRepository
	Analyses    repository.AnalysisRepository
	Coordinator *Coordinator
	Fetcher     *Fetcher

	Enqueuer  RefreshEnqueuer
	Publisher EventPublisher

	BackgroundTimeout time.Duration
}

// NewEngine creates a resolution Engine.
func NewEngine(cfg EngineConfig, log *zap.Logger) *Engine {
	if cfg.BackgroundTimeout <= 0 {
		cfg.BackgroundTimeout = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cache:             cfg.Cache,
		channels:          cfg.Channels,
		videos:            cfg.Videos,
		analyses:          cfg.Analyses,
		coordinator:       cfg.Coordinator,
		fetcher:           cfg.Fetcher,
		enqueuer:          cfg.Enqueuer,
		publisher:         cfg.Publisher,
		backgroundTimeout: cfg.BackgroundTimeout,
		now:               time.Now,
		log:               log,
	}
}

// Resolve returns an analysis for the given channel reference, computing one
// if no usable record exists. A stale record is returned immediately while a
// refresh proceeds in the background.
func (e *Engine) Resolve(ctx context.Context, rawRef string) (*Result, error) {
	channelID, err := e.resolveChannelID(ctx, rawRef, true)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()

	// Cache tier.
	if cached, err := e.cache.GetAnalysis(ctx, channelID); err == nil {
		if Classify(cached, now) == Fresh {
			metrics.ResolutionsTotal.WithLabelValues(TagCached).Inc()
			return e.buildResult(ctx, channelID, cached, TagCached), nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		e.log.Warn("analysis cache read failed", zap.String("channel_id", channelID), zap.Error(err))
	}

	// Store tier.
	stored, err := e.analyses.GetByChannelID(ctx, channelID)
	switch {
	case err == nil:
		switch Classify(stored, now) {
		case Fresh:
			if cerr := e.cache.SetAnalysis(ctx, stored); cerr != nil {
				e.log.Warn("cache repair failed", zap.String("channel_id", channelID), zap.Error(cerr))
			}
			metrics.ResolutionsTotal.WithLabelValues(TagStored).Inc()
			return e.buildResult(ctx, channelID, stored, TagStored), nil
		case Stale:
			e.scheduleRefresh(channelID)
			metrics.ResolutionsTotal.WithLabelValues(TagStale).Inc()
			return e.buildResult(ctx, channelID, stored, TagStale), nil
		}
	case errors.Is(err, db.ErrNotFound):
		// fall through to computation
	default:
		return nil, fmt.Errorf("load stored analysis: %w", errors.Join(ErrPersistence, err))
	}

	// Missing everywhere: compute synchronously.
	result, err := e.computeAndPersist(ctx, channelID)
	if err != nil {
		return nil, err
	}
	metrics.ResolutionsTotal.WithLabelValues(TagNew).Inc()
	return e.resultFrom(result.Channel, result.Analysis, TagNew), nil
}

// GetExisting returns a stored or cached analysis without triggering any
// computation or provider call. References that would need a provider lookup
// to resolve yield ErrNotFound rather than spending quota.
func (e *Engine) GetExisting(ctx context.Context, rawRef string) (*Result, error) {
	channelID, err := e.resolveChannelID(ctx, rawRef, false)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()

	if cached, err := e.cache.GetAnalysis(ctx, channelID); err == nil {
		tag := TagCached
		if Classify(cached, now) == Stale {
			tag = TagStale
		}
		return e.buildResult(ctx, channelID, cached, tag), nil
	}

	stored, err := e.analyses.GetByChannelID(ctx, channelID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
		}
		return nil, fmt.Errorf("load stored analysis: %w", errors.Join(ErrPersistence, err))
	}

	tag := TagStored
	if Classify(stored, now) == Stale {
		tag = TagStale
	}
	return e.buildResult(ctx, channelID, stored, tag), nil
}

// Refresh force-recomputes and persists the analysis for a channel ID,
// bypassing freshness checks. Used by the background worker.
func (e *Engine) Refresh(ctx context.Context, channelID string) error {
	if !IsChannelID(channelID) {
		return fmt.Errorf("refresh %q: %w", channelID, ErrInvalidIdentifier)
	}
	if err := e.cache.InvalidateChannel(ctx, channelID); err != nil {
		e.log.Warn("cache invalidation failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	_, err := e.computeAndPersist(ctx, channelID)
	return err
}

// QuotaStatus reports the ledger's current window state.
func (e *Engine) QuotaStatus() (consumed, remaining, limit int, resetsAt time.Time) {
	l := e.fetcher.Ledger()
	return l.Consumed(), l.Remaining(), l.Limit(), l.ResetsAt()
}

// resolveChannelID turns a raw reference into a canonical channel ID. When
// allowProvider is false only locally parseable IDs and cached URL mappings
// are accepted.
func (e *Engine) resolveChannelID(ctx context.Context, rawRef string, allowProvider bool) (string, error) {
	ref, err := ParseChannelRef(rawRef)
	if err != nil {
		return "", err
	}
	if ref.Kind == RefChannelID {
		return ref.Value, nil
	}

	if id, err := e.cache.GetURLMapping(ctx, rawRef); err == nil {
		return id, nil
	}

	if !allowProvider {
		return "", fmt.Errorf("reference %q not resolved: %w", rawRef, ErrNotFound)
	}

	id, err := e.fetcher.ResolveRef(ctx, ref)
	if err != nil {
		return "", err
	}
	if cerr := e.cache.SetURLMapping(ctx, rawRef, id); cerr != nil {
		e.log.Warn("url mapping cache write failed", zap.String("ref", rawRef), zap.Error(cerr))
	}
	return id, nil
}

// computeAndPersist runs the coordinator and writes the outcome to both the
// store and the cache. A persistence failure is logged and surfaced through
// metrics but does not discard the computed analysis.
func (e *Engine) computeAndPersist(ctx context.Context, channelID string) (*ComputeResult, error) {
	result, err := e.coordinator.Compute(ctx, channelID)
	if err != nil {
		return nil, err
	}

	e.persist(ctx, result)
	e.cacheResult(ctx, result)

	if e.publisher != nil {
		if perr := e.publisher.PublishAnalysisCompleted(ctx, result.Channel, result.Analysis); perr != nil {
			e.log.Warn("analysis event publish failed",
				zap.String("channel_id", channelID),
				zap.Error(perr),
			)
		}
	}
	return result, nil
}

func (e *Engine) persist(ctx context.Context, result *ComputeResult) {
	channelID := result.Channel.ChannelID

	if err := e.channels.Upsert(ctx, result.Channel); err != nil {
		e.log.Error("channel persist failed", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	if err := e.videos.UpsertBatch(ctx, result.Videos); err != nil {
		e.log.Error("video persist failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	if err := e.analyses.Upsert(ctx, result.Analysis); err != nil {
		e.log.Error("analysis persist failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (e *Engine) cacheResult(ctx context.Context, result *ComputeResult) {
	channelID := result.Channel.ChannelID

	if err := e.cache.SetChannel(ctx, result.Channel); err != nil {
		e.log.Warn("channel cache write failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	if err := e.cache.SetVideoList(ctx, channelID, result.Videos); err != nil {
		e.log.Warn("video list cache write failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	if err := e.cache.SetAnalysis(ctx, result.Analysis); err != nil {
		e.log.Warn("analysis cache write failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

// scheduleRefresh kicks off a background recomputation, via the queue when
// one is configured and on a detached goroutine otherwise. The caller's
// context is deliberately not used; the refresh outlives the request.
func (e *Engine) scheduleRefresh(channelID string) {
	if e.enqueuer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.enqueuer.EnqueueRefresh(ctx, channelID); err != nil {
			e.log.Error("refresh enqueue failed", zap.String("channel_id", channelID), zap.Error(err))
			metrics.BackgroundRefreshTotal.WithLabelValues("enqueue_error").Inc()
			return
		}
		metrics.BackgroundRefreshTotal.WithLabelValues("enqueued").Inc()
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.backgroundTimeout)
		defer cancel()
		if err := e.Refresh(ctx, channelID); err != nil {
			e.log.Error("background refresh failed", zap.String("channel_id", channelID), zap.Error(err))
			metrics.BackgroundRefreshTotal.WithLabelValues("error").Inc()
			return
		}
		metrics.BackgroundRefreshTotal.WithLabelValues("ok").Inc()
	}()
}

// buildResult attaches channel metadata from the cache or the store. A
// missing channel record degrades to a nil channel rather than failing the
// resolution.
func (e *Engine) buildResult(ctx context.Context, channelID string, analysis *models.ChannelAnalysis, tag string) *Result {
	channel, err := e.cache.GetChannel(ctx, channelID)
	if err != nil {
		channel, err = e.channels.GetByID(ctx, channelID)
		if err != nil {
			e.log.Warn("channel metadata unavailable", zap.String("channel_id", channelID), zap.Error(err))
			channel = nil
		}
	}
	return e.resultFrom(channel, analysis, tag)
}

func (e *Engine) resultFrom(channel *models.Channel, analysis *models.ChannelAnalysis, tag string) *Result {
	return &Result{
		Channel:  channel,
		Analysis: analysis,
		Meta: ResultMeta{
			Freshness:      tag,
			AnalyzedAt:     analysis.AnalyzedAt,
			VideosAnalyzed: analysis.AnalyzedVideosCount,
			TotalVideos:    analysis.TotalVideosCount,
			Confidence:     analysis.ConfidenceScore,
			ModelVersion:   analysis.ModelVersion,
			Degraded:       analysis.Degraded,
		},
	}
}
