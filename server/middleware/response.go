package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/san-kum/pose-sentinel/server/models"
)

const (
	APIVersion = "v1"

	requestIDKey    = "request_id"
	requestStartKey = "request_start"
)

// Error codes carried in models.APIError.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidFrame    = "INVALID_FRAME"
	CodeInvalidElapsed  = "INVALID_ELAPSED"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeRateLimited     = "RATE_LIMITED"
	CodeTooLarge        = "REQUEST_TOO_LARGE"
	CodeTimeout         = "TIMEOUT"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnsupportedType = "UNSUPPORTED_CONTENT_TYPE"
)

// RequestID tags every request with an ID, reusing a client supplied
// X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(requestIDKey, id)
		c.Set(requestStartKey, time.Now())
		c.Header("X-Request-ID", id)

		c.Next()
	}
}

// Meta describes the current request for the response envelope.
func Meta(c *gin.Context) *models.ResponseMeta {
	meta := &models.ResponseMeta{
		RequestID: c.GetString(requestIDKey),
		Timestamp: time.Now().UTC(),
		Version:   APIVersion,
	}

	if start, ok := c.Get(requestStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta.ProcessingTime = float64(time.Since(t).Microseconds()) / 1000
		}
	}

	return meta
}

func RespondOK(c *gin.Context, status int, data any) {
	c.JSON(status, models.APIResponse{
		Success: true,
		Data:    data,
		Meta:    Meta(c),
	})
}

func RespondError(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, models.APIResponse{
		Success: false,
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: Meta(c),
	})
}

// AbortWithError writes an error envelope and stops the handler chain.
func AbortWithError(c *gin.Context, status int, code, message string, details map[string]any) {
	RespondError(c, status, code, message, details)
	c.Abort()
}
