package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/san-kum/pose-sentinel/server/middleware"
	"github.com/san-kum/pose-sentinel/server/models"
	"github.com/san-kum/pose-sentinel/server/pose"
	"github.com/san-kum/pose-sentinel/server/processor"
	"go.uber.org/zap"
)

type ClassifyHandler struct {
	processor *processor.FrameProcessor
	limiter   *middleware.RateLimiter
	logger    *zap.Logger
}

// NewClassifyHandler serves classification and session routes. limiter
// is only read for statistics and may be nil.
func NewClassifyHandler(processor *processor.FrameProcessor, limiter *middleware.RateLimiter, logger *zap.Logger) *ClassifyHandler {
	return &ClassifyHandler{
		processor: processor,
		limiter:   limiter,
		logger:    logger,
	}
}

func (h *ClassifyHandler) Classify(c *gin.Context) {
	var request models.ClassifyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.Debug("Invalid classify request", zap.Error(err))
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeInvalidRequest, "Invalid request format", nil)
		return
	}

	response, err := h.processor.ProcessFrame(c.Request.Context(), &request)
	if err != nil {
		status, code := classifyError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Frame processing failed",
				zap.Error(err),
				zap.String("client_ip", c.ClientIP()))
		}
		middleware.RespondError(c, status, code, err.Error(), nil)
		return
	}

	middleware.RespondOK(c, http.StatusOK, response)
}

func (h *ClassifyHandler) ResetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if !h.processor.ResetSession(c.Request.Context(), sessionID) {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "Session not found", nil)
		return
	}

	middleware.RespondOK(c, http.StatusOK, models.SessionReset{SessionID: sessionID, Reset: true})
}

// EndSession forgets a session, its memory and its alert cooldowns.
func (h *ClassifyHandler) EndSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if !h.processor.EndSession(c.Request.Context(), sessionID) {
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "Session not found", nil)
		return
	}

	middleware.RespondOK(c, http.StatusOK, gin.H{"session_id": sessionID, "ended": true})
}

func (h *ClassifyHandler) ListSessions(c *gin.Context) {
	sessions := h.processor.ListSessions()

	middleware.RespondOK(c, http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *ClassifyHandler) GetStats(c *gin.Context) {
	processorStats := h.processor.GetStats()

	var successRate float64
	if processorStats.TotalProcessed > 0 {
		successRate = float64(processorStats.SuccessfullyProcessed) / float64(processorStats.TotalProcessed) * 100
	}

	response := gin.H{
		"processor": processorStats,
		"metrics": gin.H{
			"success_rate":   successRate,
			"uptime_seconds": time.Since(processorStats.StartTime).Seconds(),
		},
	}

	if cacheStats, err := h.processor.GetCacheStats(c.Request.Context()); err == nil {
		response["cache"] = cacheStats
	}

	if h.limiter != nil {
		response["rate_limiter"] = h.limiter.GetGlobalStats()
	}

	middleware.RespondOK(c, http.StatusOK, response)
}

// classifyError maps classification failures onto HTTP status and error
// codes.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, pose.ErrInvalidFrame):
		return http.StatusBadRequest, middleware.CodeInvalidFrame
	case errors.Is(err, pose.ErrInvalidElapsed):
		return http.StatusBadRequest, middleware.CodeInvalidElapsed
	default:
		return http.StatusInternalServerError, middleware.CodeInternal
	}
}
