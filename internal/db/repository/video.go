package repository

import (
	"context"
	"fmt"

	"github.com/chanlytics/channel-analysis-go/internal/db"
	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VideoRepository defines operations for managing video records.
type VideoRepository interface {
	// UpsertBatch inserts or updates the given videos in a single transaction.
	UpsertBatch(ctx context.Context, videos []*models.Video) error

	// GetByID retrieves a single video by ID.
	GetByID(ctx context.Context, videoID string) (*models.Video, error)

	// GetByChannelID retrieves videos for a channel, most recent first.
	GetByChannelID(ctx context.Context, channelID string, limit int) ([]*models.Video, error)
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

const upsertVideoQuery = `
	INSERT INTO videos (video_id, channel_id, title, description, duration,
	                    category_id, tags, view_count, like_count, comment_count,
	                    published_at, details_fetched, fetched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (video_id) DO UPDATE
	SET title = EXCLUDED.title,
	    description = EXCLUDED.description,
	    duration = EXCLUDED.duration,
	    category_id = EXCLUDED.category_id,
	    tags = EXCLUDED.tags,
	    view_count = EXCLUDED.view_count,
	    like_count = EXCLUDED.like_count,
	    comment_count = EXCLUDED.comment_count,
	    published_at = EXCLUDED.published_at,
	    details_fetched = EXCLUDED.details_fetched,
	    fetched_at = EXCLUDED.fetched_at
`

func (r *videoRepository) UpsertBatch(ctx context.Context, videos []*models.Video) error {
	if len(videos) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, v := range videos {
		batch.Queue(upsertVideoQuery,
			v.VideoID, v.ChannelID, v.Title, v.Description, v.Duration,
			v.CategoryID, v.Tags, v.ViewCount, v.LikeCount, v.CommentCount,
			v.PublishedAt, v.DetailsFetched, v.FetchedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range videos {
		if _, err := results.Exec(); err != nil {
			return db.WrapError(err, "upsert video batch")
		}
	}

	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, videoID string) (*models.Video, error) {
	query := `
		SELECT video_id, channel_id, title, description, duration, category_id,
		       tags, view_count, like_count, comment_count, published_at,
		       details_fetched, fetched_at
		FROM videos
		WHERE video_id = $1
	`

	video := &models.Video{}
	err := r.pool.QueryRow(ctx, query, videoID).Scan(
		&video.VideoID,
		&video.ChannelID,
		&video.Title,
		&video.Description,
		&video.Duration,
		&video.CategoryID,
		&video.Tags,
		&video.ViewCount,
		&video.LikeCount,
		&video.CommentCount,
		&video.PublishedAt,
		&video.DetailsFetched,
		&video.FetchedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) GetByChannelID(ctx context.Context, channelID string, limit int) ([]*models.Video, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT video_id, channel_id, title, description, duration, category_id,
		       tags, view_count, like_count, comment_count, published_at,
		       details_fetched, fetched_at
		FROM videos
		WHERE channel_id = $1
		ORDER BY published_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, db.WrapError(err, "get videos by channel id")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video

	for rows.Next() {
		video := &models.Video{}
		err := rows.Scan(
			&video.VideoID,
			&video.ChannelID,
			&video.Title,
			&video.Description,
			&video.Duration,
			&video.CategoryID,
			&video.Tags,
			&video.ViewCount,
			&video.LikeCount,
			&video.CommentCount,
			&video.PublishedAt,
			&video.DetailsFetched,
			&video.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}
