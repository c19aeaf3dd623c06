package models

import "time"

// Channel represents a YouTube channel whose metadata we have fetched.
type Channel struct {
	ChannelID         string    `db:"channel_id" json:"channel_id"`
	Title             string    `db:"title" json:"title"`
	Description       string    `db:"description" json:"description"`
	CustomURL         string    `db:"custom_url" json:"custom_url,omitempty"`
	Country           string    `db:"country" json:"country,omitempty"`
	ThumbnailURL      string    `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	UploadsPlaylistID string    `db:"uploads_playlist_id" json:"-"`
	SubscriberCount   int64     `db:"subscriber_count" json:"subscriber_count"`
	VideoCount        int64     `db:"video_count" json:"video_count"`
	ViewCount         int64     `db:"view_count" json:"view_count"`
	PublishedAt       time.Time `db:"published_at" json:"published_at"`
	FetchedAt         time.Time `db:"fetched_at" json:"fetched_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Touch marks the channel as freshly fetched.
func (c *Channel) Touch() {
	now := time.Now()
	c.FetchedAt = now
	c.UpdatedAt = now
}
