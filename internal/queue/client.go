package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chanlytics/channel-analysis-go/pkg/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Client wraps an asynq client for enqueueing refresh tasks. It implements
// the engine's RefreshEnqueuer.
type Client struct {
	asynqClient *asynq.Client
}

// NewClient creates a new queue client from a Redis URL.
func NewClient(redisURL string) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueRefresh enqueues a background analysis refresh for a channel.
// Asynq deduplicates by task ID, so at most one refresh per channel is
// pending at a time.
func (c *Client) EnqueueRefresh(ctx context.Context, channelID string) error {
	payload, err := NewRefreshAnalysisTask(channelID, uuid.New().String())
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeRefreshAnalysis, payloadBytes)

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.TaskID("refresh:"+channelID),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("default"),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logger.Log.Debug("Refresh already pending",
				zap.String("channelId", channelID),
			)
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Info("Enqueued analysis refresh",
		zap.String("channelId", channelID),
		zap.String("taskId", info.ID),
	)

	return nil
}
