package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/san-kum/pose-sentinel/server/middleware"
	"github.com/san-kum/pose-sentinel/server/models"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth   *middleware.AuthMiddleware
	logger *zap.Logger
}

func NewAuthHandler(auth *middleware.AuthMiddleware, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var request models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		middleware.RespondError(c, http.StatusBadRequest, middleware.CodeInvalidRequest, "Password required", nil)
		return
	}

	token, expiresAt, err := h.auth.Login(request.Password)
	switch {
	case errors.Is(err, middleware.ErrLoginDisabled):
		middleware.RespondError(c, http.StatusServiceUnavailable, middleware.CodeUnavailable, "Login is disabled", nil)
		return
	case errors.Is(err, middleware.ErrInvalidCredentials):
		h.logger.Warn("Failed login attempt", zap.String("client_ip", c.ClientIP()))
		middleware.RespondError(c, http.StatusUnauthorized, middleware.CodeUnauthorized, "Invalid Credentials", nil)
		return
	case err != nil:
		h.logger.Error("Failed to issue token", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.CodeInternal, "Failed to issue token", nil)
		return
	}

	middleware.RespondOK(c, http.StatusOK, models.LoginResponse{Token: token, ExpiresAt: expiresAt})
}
