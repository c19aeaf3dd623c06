package queue

import (
	"context"
	"fmt"

	"github.com/chanlytics/channel-analysis-go/internal/analysis"
	"github.com/chanlytics/channel-analysis-go/pkg/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RefreshHandler processes background analysis refresh tasks.
type RefreshHandler struct {
	engine *analysis.Engine
}

// NewRefreshHandler creates a refresh task handler.
func NewRefreshHandler(engine *analysis.Engine) *RefreshHandler {
	return &RefreshHandler{engine: engine}
}

// ProcessTask implements asynq.HandlerFunc. Quota exhaustion is not retried:
// hammering a drained ledger only burns the retry budget before the window
// rolls over.
func (h *RefreshHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalRefreshAnalysisPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	logger.Log.Info("Processing analysis refresh",
		zap.String("channelId", payload.ChannelID),
		zap.String("requestId", payload.RequestID),
	)

	if err := h.engine.Refresh(ctx, payload.ChannelID); err != nil {
		if analysis.IsQuotaExceeded(err) {
			logger.Log.Warn("Refresh skipped, quota exhausted",
				zap.String("channelId", payload.ChannelID),
				zap.Error(err),
			)
			return fmt.Errorf("quota exhausted: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("refresh channel %s: %w", payload.ChannelID, err)
	}

	logger.Log.Info("Analysis refresh completed",
		zap.String("channelId", payload.ChannelID),
		zap.String("requestId", payload.RequestID),
	)
	return nil
}

// Server wraps an asynq server for processing refresh tasks.
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer creates a new task processing server.
func NewServer(redisURL string, concurrency int, handler *RefreshHandler) (*Server, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 10,
			},
			StrictPriority: false,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Log.Error("Task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRefreshAnalysis, handler.ProcessTask)

	return &Server{
		asynqServer: srv,
		mux:         mux,
	}, nil
}

// Start starts the server.
func (s *Server) Start() error {
	logger.Log.Info("Starting task processing server")
	return s.asynqServer.Start(s.mux)
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	logger.Log.Info("Shutting down task processing server")
	s.asynqServer.Shutdown()
}
