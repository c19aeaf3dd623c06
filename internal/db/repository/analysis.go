package repository

import (
	"context"

	"github.com/chanlytics/channel-analysis-go/internal/db"
	"github.com/chanlytics/channel-analysis-go/internal/db/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisRepository defines operations for managing channel analyses.
// A channel has at most one current analysis; Upsert replaces the prior row.
type AnalysisRepository interface {
	// Upsert stores the analysis for a channel, replacing any existing one.
	Upsert(ctx context.Context, analysis *models.ChannelAnalysis) error

	// GetByChannelID retrieves the current analysis for a channel.
	GetByChannelID(ctx context.Context, channelID string) (*models.ChannelAnalysis, error)
}

type analysisRepository struct {
	pool *pgxpool.Pool
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(pool *pgxpool.Pool) AnalysisRepository {
	return &analysisRepository{pool: pool}
}

func (r *analysisRepository) Upsert(ctx context.Context, analysis *models.ChannelAnalysis) error {
	query := `
		INSERT INTO channel_analyses (channel_id, summary, themes, target_audience,
		                              content_style, upload_frequency, analyzed_videos_count,
		                              total_videos_count, confidence_score, model_version,
		                              sampling_strategy, degraded, video_sample_ids,
		                              analyzed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (channel_id) DO UPDATE
		SET summary = EXCLUDED.summary,
		    themes = EXCLUDED.themes,
		    target_audience = EXCLUDED.target_audience,
		    content_style = EXCLUDED.content_style,
		    upload_frequency = EXCLUDED.upload_frequency,
		    analyzed_videos_count = EXCLUDED.analyzed_videos_count,
		    total_videos_count = EXCLUDED.total_videos_count,
		    confidence_score = EXCLUDED.confidence_score,
		    model_version = EXCLUDED.model_version,
		    sampling_strategy = EXCLUDED.sampling_strategy,
		    degraded = EXCLUDED.degraded,
		    video_sample_ids = EXCLUDED.video_sample_ids,
		    analyzed_at = EXCLUDED.analyzed_at,
		    expires_at = EXCLUDED.expires_at
	`

	_, err := r.pool.Exec(ctx, query,
		analysis.ChannelID,
		analysis.Summary,
		analysis.Themes,
		analysis.TargetAudience,
		analysis.ContentStyle,
		analysis.UploadFrequency,
		analysis.AnalyzedVideosCount,
		analysis.TotalVideosCount,
		analysis.ConfidenceScore,
		analysis.ModelVersion,
		analysis.SamplingStrategy,
		analysis.Degraded,
		analysis.VideoSampleIDs,
		analysis.AnalyzedAt,
		analysis.ExpiresAt,
	)

	if err != nil {
		return db.WrapError(err, "upsert analysis")
	}

	return nil
}

func (r *analysisRepository) GetByChannelID(ctx context.Context, channelID string) (*models.ChannelAnalysis, error) {
	query := `
		SELECT channel_id, summary, themes, target_audience, content_style,
		       upload_frequency, analyzed_videos_count, total_videos_count,
		       confidence_score, model_version, sampling_strategy, degraded,
		       video_sample_ids, analyzed_at, expires_at
		FROM channel_analyses
		WHERE channel_id = $1
	`

	analysis := &models.ChannelAnalysis{}
	err := r.pool.QueryRow(ctx, query, channelID).Scan(
		&analysis.ChannelID,
		&analysis.Summary,
		&analysis.Themes,
		&analysis.TargetAudience,
		&analysis.ContentStyle,
		&analysis.UploadFrequency,
		&analysis.AnalyzedVideosCount,
		&analysis.TotalVideosCount,
		&analysis.ConfidenceScore,
		&analysis.ModelVersion,
		&analysis.SamplingStrategy,
		&analysis.Degraded,
		&analysis.VideoSampleIDs,
		&analysis.AnalyzedAt,
		&analysis.ExpiresAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get analysis by channel id")
	}

	return analysis, nil
}
