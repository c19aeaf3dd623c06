package repository

import (
	"context"

	"github.com/chanlytics/channel-analysis-go/internal/db"
	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelRepository defines operations for managing channel records.
type ChannelRepository interface {
	// Upsert creates a new channel or refreshes an existing one.
	Upsert(ctx context.Context, channel *models.Channel) error

	// GetByID retrieves a single channel by its provider-assigned ID.
	GetByID(ctx context.Context, channelID string) (*models.Channel, error)
}

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

func (r *channelRepository) Upsert(ctx context.Context, channel *models.Channel) error {
	query := `
		INSERT INTO channels (channel_id, title, description, custom_url, country,
		                      thumbnail_url, uploads_playlist_id, subscriber_count,
		                      video_count, view_count, published_at, fetched_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (channel_id) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    custom_url = EXCLUDED.custom_url,
		    country = EXCLUDED.country,
		    thumbnail_url = EXCLUDED.thumbnail_url,
		    uploads_playlist_id = EXCLUDED.uploads_playlist_id,
		    subscriber_count = EXCLUDED.subscriber_count,
		    video_count = EXCLUDED.video_count,
		    view_count = EXCLUDED.view_count,
		    published_at = EXCLUDED.published_at,
		    fetched_at = EXCLUDED.fetched_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING fetched_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		channel.ChannelID,
		channel.Title,
		channel.Description,
		channel.CustomURL,
		channel.Country,
		channel.ThumbnailURL,
		channel.UploadsPlaylistID,
		channel.SubscriberCount,
		channel.VideoCount,
		channel.ViewCount,
		channel.PublishedAt,
		channel.FetchedAt,
		channel.UpdatedAt,
	).Scan(
		&channel.FetchedAt,
		&channel.UpdatedAt,
	)

	if err != nil {
		return db.WrapError(err, "upsert channel")
	}

	return nil
}

func (r *channelRepository) GetByID(ctx context.Context, channelID string) (*models.Channel, error) {
	query := `
		SELECT channel_id, title, description, custom_url, country, thumbnail_url,
		       uploads_playlist_id, subscriber_count, video_count, view_count,
		       published_at, fetched_at, updated_at
		FROM channels
		WHERE channel_id = $1
	`

	channel := &models.Channel{}
	err := r.pool.QueryRow(ctx, query, channelID).Scan(
		&channel.ChannelID,
		&channel.Title,
		&channel.Description,
		&channel.CustomURL,
		&channel.Country,
		&channel.ThumbnailURL,
		&channel.UploadsPlaylistID,
		&channel.SubscriberCount,
		&channel.VideoCount,
		&channel.ViewCount,
		&channel.PublishedAt,
		&channel.FetchedAt,
		&channel.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get channel by id")
	}

	return channel, nil
}
