package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/san-kum/pose-sentinel/server/middleware"
	"github.com/san-kum/pose-sentinel/server/models"
	"github.com/san-kum/pose-sentinel/server/store"
	"go.uber.org/zap"
)

type AlertHandler struct {
	store  *store.AlertStore
	logger *zap.Logger
}

func NewAlertHandler(store *store.AlertStore, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		store:  store,
		logger: logger,
	}
}

func (h *AlertHandler) List(c *gin.Context) {
	middleware.RespondOK(c, http.StatusOK, h.store.List())
}

// Latest returns the newest alert, or null data when there is none yet.
func (h *AlertHandler) Latest(c *gin.Context) {
	alert, ok := h.store.Latest()
	if !ok {
		middleware.RespondOK(c, http.StatusOK, nil)
		return
	}
	middleware.RespondOK(c, http.StatusOK, alert)
}

func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.store.Get(c.Param("id"))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	middleware.RespondOK(c, http.StatusOK, alert)
}

func (h *AlertHandler) Create(c *gin.Context) {
	var request models.CreateAlertRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeInvalidRequest,
			"Missing required keys: timestamp, pose, confidence and status", nil)
		return
	}

	alert, err := h.store.Create(&models.Alert{
		Timestamp:  request.Timestamp,
		Pose:       request.Pose,
		Confidence: *request.Confidence,
		Status:     models.AlertStatus(request.Status),
		SessionID:  request.SessionID,
	})
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	h.logger.Info("Alert reported",
		zap.String("alert_id", alert.ID),
		zap.String("pose", alert.Pose),
		zap.String("username", c.GetString("username")))

	middleware.RespondOK(c, http.StatusCreated, alert)
}

func (h *AlertHandler) UpdateStatus(c *gin.Context) {
	var request models.AlertStatusUpdate
	if err := c.ShouldBindJSON(&request); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeInvalidRequest, "No valid fields to update", nil)
		return
	}

	alert, err := h.store.UpdateStatus(c.Param("id"), request.Status)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	middleware.RespondOK(c, http.StatusOK, alert)
}

func (h *AlertHandler) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrAlertNotFound):
		middleware.RespondError(c, http.StatusNotFound, middleware.CodeNotFound, "Alert not found", nil)
	case errors.Is(err, store.ErrInvalidAlert):
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeInvalidRequest, err.Error(), nil)
	default:
		h.logger.Error("Alert store failure", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.CodeInternal, "Alert store failure", nil)
	}
}
