package models

import "time"

// QuotaUsage is a per-day audit row of metadata-provider cost units consumed.
// The authoritative budget check lives in the in-process ledger; these rows
// exist for history and operator visibility.
type QuotaUsage struct {
	Date            time.Time `db:"date" json:"date"`
	QuotaUsed       int       `db:"quota_used" json:"quota_used"`
	OperationsCount int       `db:"operations_count" json:"operations_count"`
	ChannelCalls    int       `db:"channel_calls" json:"channel_calls"`
	PlaylistCalls   int       `db:"playlist_calls" json:"playlist_calls"`
	VideoCalls      int       `db:"video_calls" json:"video_calls"`
	SearchCalls     int       `db:"search_calls" json:"search_calls"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
