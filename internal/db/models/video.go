package models

import "time"

// Video represents a video belonging to a tracked channel. Video rows grow
// monotonically: they are appended or updated, never deleted.
type Video struct {
	VideoID        string    `db:"video_id" json:"video_id"`
	ChannelID      string    `db:"channel_id" json:"channel_id"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	Duration       string    `db:"duration" json:"duration,omitempty"`
	CategoryID     string    `db:"category_id" json:"category_id,omitempty"`
	Tags           []string  `db:"tags" json:"tags,omitempty"`
	ViewCount      int64     `db:"view_count" json:"view_count"`
	LikeCount      int64     `db:"like_count" json:"like_count"`
	CommentCount   int64     `db:"comment_count" json:"comment_count"`
	PublishedAt    time.Time `db:"published_at" json:"published_at"`
	DetailsFetched bool      `db:"details_fetched" json:"details_fetched"`
	FetchedAt      time.Time `db:"fetched_at" json:"fetched_at"`
}

// NewVideo creates a metadata-only Video as seen in a playlist listing.
// Statistics and duration are filled in by a later detail fetch.
func NewVideo(videoID, channelID, title, description string, publishedAt time.Time) *Video {
	return &Video{
		VideoID:     videoID,
		ChannelID:   channelID,
		Title:       title,
		Description: description,
		PublishedAt: publishedAt,
		FetchedAt:   time.Now(),
	}
}
