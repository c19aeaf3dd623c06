package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task types
const (
	TypeRefreshAnalysis = "analysis:refresh"
)

// RefreshAnalysisPayload is the payload for background analysis refresh tasks.
type RefreshAnalysisPayload struct {
	ChannelID  string    `json:"channel_id"`
	RequestID  string    `json:"request_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRefreshAnalysisTask creates a refresh task payload.
func NewRefreshAnalysisTask(channelID, requestID string) (*RefreshAnalysisPayload, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel ID is required")
	}

	return &RefreshAnalysisPayload{
		ChannelID:  channelID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Marshal serializes the payload to JSON.
func (p *RefreshAnalysisPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalRefreshAnalysisPayload deserializes JSON to payload.
func UnmarshalRefreshAnalysisPayload(data []byte) (*RefreshAnalysisPayload, error) {
	var payload RefreshAnalysisPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
