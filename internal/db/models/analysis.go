package models

import "time"

// ChannelAnalysis is the AI-generated analysis of a channel. Exactly one
// current row exists per channel; a new analysis replaces the prior one.
type ChannelAnalysis struct {
	ChannelID           string    `db:"channel_id" json:"channel_id"`
	Summary             string    `db:"summary" json:"summary"`
	Themes              []string  `db:"themes" json:"themes"`
	TargetAudience      string    `db:"target_audience" json:"target_audience"`
	ContentStyle        string    `db:"content_style" json:"content_style"`
	UploadFrequency     string    `db:"upload_frequency" json:"upload_frequency"`
	AnalyzedVideosCount int       `db:"analyzed_videos_count" json:"analyzed_videos_count"`
	TotalVideosCount    int64     `db:"total_videos_count" json:"total_videos_count"`
	ConfidenceScore     float64   `db:"confidence_score" json:"confidence_score"`
	ModelVersion        string    `db:"model_version" json:"model_version"`
	SamplingStrategy    string    `db:"sampling_strategy" json:"sampling_strategy,omitempty"`
	Degraded            bool      `db:"degraded" json:"degraded"`
	VideoSampleIDs      []string  `db:"video_sample_ids" json:"video_sample_ids"`
	AnalyzedAt          time.Time `db:"analyzed_at" json:"analyzed_at"`
	ExpiresAt           time.Time `db:"expires_at" json:"expires_at"`
}

// IsExpired reports whether the analysis has passed its staleness window
// relative to the given instant.
func (a *ChannelAnalysis) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
