// Package handler provides HTTP request handlers for the application.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/analysis"
	"github.com/chanlytics/channel-analysis-go/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Channel string `json:"channel" binding:"required"`
}

// AnalysisHandler handles channel analysis HTTP requests.
type AnalysisHandler struct {
	engine *analysis.Engine
}

// NewAnalysisHandler creates a new AnalysisHandler instance.
func NewAnalysisHandler(engine *analysis.Engine) *AnalysisHandler {
	return &AnalysisHandler{
		engine: engine,
	}
}

// Analyze resolves a channel reference to an analysis, computing a fresh one
// when no usable record exists.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Log.Warn("Invalid request payload",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:    http.StatusBadRequest,
			Error:     "Bad Request",
			Message:   "Invalid request payload: " + err.Error(),
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	logger.Log.Info("Received analysis request",
		zap.String("channel", req.Channel),
	)

	result, err := h.engine.Resolve(c.Request.Context(), req.Channel)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAnalysis returns a stored analysis without triggering computation.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	channelID := c.Param("id")

	result, err := h.engine.GetExisting(c.Request.Context(), channelID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetQuota reports the current quota window state.
func (h *AnalysisHandler) GetQuota(c *gin.Context) {
	consumed, remaining, limit, resetsAt := h.engine.QuotaStatus()

	c.JSON(http.StatusOK, gin.H{
		"consumed":  consumed,
		"remaining": remaining,
		"limit":     limit,
		"resets_at": resetsAt,
	})
}

func (h *AnalysisHandler) handleError(c *gin.Context, err error) {
	path := c.Request.URL.Path

	var quotaErr *analysis.QuotaError

	switch {
	case errors.Is(err, analysis.ErrInvalidIdentifier):
		logger.Log.Warn("Invalid channel identifier", zap.Error(err), zap.String("path", path))
		h.respondError(c, http.StatusBadRequest, "Bad Request", err.Error())

	case analysis.IsNotFound(err):
		logger.Log.Info("Channel not found", zap.Error(err), zap.String("path", path))
		h.respondError(c, http.StatusNotFound, "Not Found", err.Error())

	case errors.Is(err, analysis.ErrNoVideos):
		logger.Log.Info("Channel has no videos", zap.Error(err), zap.String("path", path))
		h.respondError(c, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())

	case errors.As(err, &quotaErr):
		logger.Log.Warn("Quota exceeded", zap.Error(err), zap.String("path", path))
		c.Header("Retry-After", strconv.Itoa(int(quotaErr.RetryAfter.Seconds())))
		h.respondError(c, http.StatusTooManyRequests, "Too Many Requests", err.Error())

	case analysis.IsQuotaExceeded(err):
		logger.Log.Warn("Quota exceeded", zap.Error(err), zap.String("path", path))
		h.respondError(c, http.StatusTooManyRequests, "Too Many Requests", err.Error())

	case errors.Is(err, analysis.ErrProviderTimeout), errors.Is(err, analysis.ErrProvider):
		logger.Log.Error("Provider error", zap.Error(err), zap.String("path", path))
		h.respondError(c, http.StatusBadGateway, "Bad Gateway", "Upstream provider error")

	default:
		logger.Log.Error("Unexpected error", zap.Error(err), zap.String("path", path))
		h.respondError(c, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}

func (h *AnalysisHandler) respondError(c *gin.Context, status int, errLabel, message string) {
	c.JSON(status, ErrorResponse{
		Status:    status,
		Error:     errLabel,
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}
