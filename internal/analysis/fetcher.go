package analysis

import (
	"context"
	"fmt"

	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Fixed per-call costs of the YouTube Data API v3, in quota units.
const (
	CostChannelsList = 1
	CostPlaylistPage = 1
	CostVideosList   = 1
	CostSearch       = 100
)

const detailBatchSize = 50

// MetadataProvider is the raw metadata API surface. Implementations perform a
// single provider call per method and do no quota accounting of their own.
type MetadataProvider interface {
	// ChannelByID fetches channel metadata; ErrNotFound when absent upstream.
	ChannelByID(ctx context.Context, channelID string) (*models.Channel, error)

	// PlaylistPage fetches one page of a playlist and the next page token
	// (empty when exhausted).
	PlaylistPage(ctx context.Context, playlistID, pageToken string) ([]*models.Video, string, error)

	// VideoDetails fetches full details for up to 50 video IDs.
	VideoDetails(ctx context.Context, videoIDs []string) ([]*models.Video, error)

	// SearchChannelID resolves a handle or custom-URL query to a channel ID.
	SearchChannelID(ctx context.Context, query string) (string, error)

	// ChannelIDForUsername resolves a legacy username to a channel ID.
	ChannelIDForUsername(ctx context.Context, username string) (string, error)
}

// Fetcher wraps the metadata provider with quota accounting, pagination and
// detail batching. Every provider call reserves its cost on the ledger first;
// a rejected reservation fails fast without contacting the provider.
type Fetcher struct {
	provider MetadataProvider
	ledger   *Ledger
	maxPages int
	log      *zap.Logger
}

// NewFetcher creates a Fetcher. maxPages bounds the worst-case cost of
// enumerating a channel's uploads; reaching the cap silently truncates.
func NewFetcher(provider MetadataProvider, ledger *Ledger, maxPages int, log *zap.Logger) *Fetcher {
	if maxPages <= 0 {
		maxPages = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		provider: provider,
		ledger:   ledger,
		maxPages: maxPages,
		log:      log,
	}
}

// Ledger exposes the quota ledger for status reporting.
func (f *Fetcher) Ledger() *Ledger { return f.ledger }

// ResolveRef resolves a parsed channel reference to a channel ID, spending
// quota for the reference kinds that need a provider round trip.
func (f *Fetcher) ResolveRef(ctx context.Context, ref ChannelRef) (string, error) {
	switch ref.Kind {
	case RefChannelID:
		return ref.Value, nil

	case RefHandle, RefCustom:
		if err := f.ledger.Reserve(ctx, CostSearch, "search"); err != nil {
			return "", err
		}
		query := ref.Value
		if ref.Kind == RefHandle {
			query = "@" + ref.Value
		}
		id, err := f.provider.SearchChannelID(ctx, query)
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", ref.Value, err)
		}
		return id, nil

	case RefUsername:
		if err := f.ledger.Reserve(ctx, CostChannelsList, "channels_list"); err != nil {
			return "", err
		}
		id, err := f.provider.ChannelIDForUsername(ctx, ref.Value)
		if err != nil {
			return "", fmt.Errorf("resolve username %q: %w", ref.Value, err)
		}
		return id, nil

	default:
		return "", ErrInvalidIdentifier
	}
}

// FetchChannel fetches channel metadata by ID.
func (f *Fetcher) FetchChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	if err := f.ledger.Reserve(ctx, CostChannelsList, "channels_list"); err != nil {
		return nil, err
	}

	channel, err := f.provider.ChannelByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	channel.Touch()
	return channel, nil
}

// FetchAllVideos enumerates a channel's uploads playlist, most recent first.
// Pagination stops when the provider runs out of pages or the page cap is
// reached; hitting the cap is not an error, the list is silently truncated.
// Callers wanting the channel's true video total must use the channel's own
// counter, not the length of this list.
func (f *Fetcher) FetchAllVideos(ctx context.Context, channel *models.Channel) ([]*models.Video, error) {
	if channel.UploadsPlaylistID == "" {
		return nil, fmt.Errorf("channel %s has no uploads playlist: %w", channel.ChannelID, ErrNoVideos)
	}

	var videos []*models.Video
	pageToken := ""

	for page := 0; page < f.maxPages; page++ {
		if err := f.ledger.Reserve(ctx, CostPlaylistPage, "playlist_items"); err != nil {
			return nil, err
		}

		items, nextToken, err := f.provider.PlaylistPage(ctx, channel.UploadsPlaylistID, pageToken)
		if err != nil {
			return nil, fmt.Errorf("fetch playlist page %d: %w", page, err)
		}

		videos = append(videos, items...)
		if nextToken == "" {
			return videos, nil
		}
		pageToken = nextToken
	}

	f.log.Debug("video list truncated at page cap",
		zap.String("channel_id", channel.ChannelID),
		zap.Int("pages", f.maxPages),
		zap.Int("videos", len(videos)),
	)
	return videos, nil
}

// FetchVideoDetails enriches the given videos with statistics, duration and
// tags, batching IDs per the provider's 50-ID constraint. A failed batch is
// retried once with backoff; on repeated failure its videos are retained with
// metadata-only fields and DetailsFetched left false. Quota exhaustion aborts
// immediately.
func (f *Fetcher) FetchVideoDetails(ctx context.Context, videos []*models.Video) ([]*models.Video, error) {
	byID := make(map[string]*models.Video, len(videos))
	for _, v := range videos {
		byID[v.VideoID] = v
	}

	for start := 0; start < len(videos); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(videos) {
			end = len(videos)
		}

		ids := make([]string, 0, end-start)
		for _, v := range videos[start:end] {
			ids = append(ids, v.VideoID)
		}

		if err := f.ledger.Reserve(ctx, CostVideosList, "videos_list"); err != nil {
			return nil, err
		}

		details, err := f.fetchBatchWithRetry(ctx, ids)
		if err != nil {
			f.log.Warn("video detail batch failed, keeping metadata-only videos",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(ids)),
				zap.Error(err),
			)
			continue
		}

		for _, d := range details {
			v, ok := byID[d.VideoID]
			if !ok {
				continue
			}
			v.Duration = d.Duration
			v.CategoryID = d.CategoryID
			v.Tags = d.Tags
			v.ViewCount = d.ViewCount
			v.LikeCount = d.LikeCount
			v.CommentCount = d.CommentCount
			if d.Description != "" {
				v.Description = d.Description
			}
			v.DetailsFetched = true
		}
	}

	return videos, nil
}

func (f *Fetcher) fetchBatchWithRetry(ctx context.Context, ids []string) ([]*models.Video, error) {
	var details []*models.Video

	operation := func() error {
		var err error
		details, err = f.provider.VideoDetails(ctx, ids)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return details, nil
}
