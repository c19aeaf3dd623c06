package repository

import (
	"context"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/db"
	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotaRepository records metadata-provider quota consumption for auditing.
// The in-process ledger remains the authority for budget enforcement.
type QuotaRepository interface {
	// RecordUsage adds quota cost to today's audit row.
	RecordUsage(ctx context.Context, quotaCost int, operationType string) error

	// GetUsageForDate retrieves the audit row for a specific date.
	GetUsageForDate(ctx context.Context, date time.Time) (*models.QuotaUsage, error)

	// GetHistory retrieves audit rows for the last N days, newest first.
	GetHistory(ctx context.Context, days int) ([]*models.QuotaUsage, error)
}

type quotaRepository struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository creates a new QuotaRepository.
func NewQuotaRepository(pool *pgxpool.Pool) QuotaRepository {
	return &quotaRepository{pool: pool}
}

func (r *quotaRepository) RecordUsage(ctx context.Context, quotaCost int, operationType string) error {
	if operationType == "" {
		operationType = "other"
	}

	query := `
		INSERT INTO api_quota_usage (date, quota_used, operations_count,
		                             channel_calls, playlist_calls, video_calls, search_calls, updated_at)
		VALUES (CURRENT_DATE, $1, 1,
		        CASE WHEN $2 = 'channels_list' THEN 1 ELSE 0 END,
		        CASE WHEN $2 = 'playlist_items' THEN 1 ELSE 0 END,
		        CASE WHEN $2 = 'videos_list' THEN 1 ELSE 0 END,
		        CASE WHEN $2 = 'search' THEN 1 ELSE 0 END,
		        NOW())
		ON CONFLICT (date) DO UPDATE
		SET quota_used = api_quota_usage.quota_used + EXCLUDED.quota_used,
		    operations_count = api_quota_usage.operations_count + 1,
		    channel_calls = api_quota_usage.channel_calls + EXCLUDED.channel_calls,
		    playlist_calls = api_quota_usage.playlist_calls + EXCLUDED.playlist_calls,
		    video_calls = api_quota_usage.video_calls + EXCLUDED.video_calls,
		    search_calls = api_quota_usage.search_calls + EXCLUDED.search_calls,
		    updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, quotaCost, operationType)
	if err != nil {
		return db.WrapError(err, "record quota usage")
	}

	return nil
}

func (r *quotaRepository) GetUsageForDate(ctx context.Context, date time.Time) (*models.QuotaUsage, error) {
	query := `
		SELECT date, quota_used, operations_count, channel_calls, playlist_calls,
		       video_calls, search_calls, updated_at
		FROM api_quota_usage
		WHERE date = $1
	`

	usage := &models.QuotaUsage{}
	err := r.pool.QueryRow(ctx, query, date.Format("2006-01-02")).Scan(
		&usage.Date,
		&usage.QuotaUsed,
		&usage.OperationsCount,
		&usage.ChannelCalls,
		&usage.PlaylistCalls,
		&usage.VideoCalls,
		&usage.SearchCalls,
		&usage.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get quota usage for date")
	}

	return usage, nil
}

func (r *quotaRepository) GetHistory(ctx context.Context, days int) ([]*models.QuotaUsage, error) {
	if days <= 0 {
		days = 7
	}

	query := `
		SELECT date, quota_used, operations_count, channel_calls, playlist_calls,
		       video_calls, search_calls, updated_at
		FROM api_quota_usage
		WHERE date >= CURRENT_DATE - INTERVAL '1 day' * $1
		ORDER BY date DESC
	`

	rows, err := r.pool.Query(ctx, query, days)
	if err != nil {
		return nil, db.WrapError(err, "get quota history")
	}
	defer rows.Close()

	var history []*models.QuotaUsage
	for rows.Next() {
		usage := &models.QuotaUsage{}
		err := rows.Scan(
			&usage.Date,
			&usage.QuotaUsed,
			&usage.OperationsCount,
			&usage.ChannelCalls,
			&usage.PlaylistCalls,
			&usage.VideoCalls,
			&usage.SearchCalls,
			&usage.UpdatedAt,
		)
		if err != nil {
			return nil, db.WrapError(err, "scan quota history")
		}
		history = append(history, usage)
	}

	return history, nil
}
