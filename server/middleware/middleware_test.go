package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/san-kum/pose-sentinel/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAuth(t *testing.T, password string) *AuthMiddleware {
	t.Helper()

	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	}

	return NewAuthMiddleware("test-secret", hash, time.Hour, zap.NewNop())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}

func TestAuthMiddleware_Login(t *testing.T) {
	auth := newTestAuth(t, "s3cret")

	token, expiresAt, err := auth.Login("s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := auth.validateToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, _, err = auth.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = newTestAuth(t, "").Login("anything")
	assert.ErrorIs(t, err, ErrLoginDisabled)
}

func TestAuthMiddleware_ValidateToken(t *testing.T) {
	auth := newTestAuth(t, "")

	token, err := auth.GenerateToken("u1", "user", "viewer", time.Minute)
	require.NoError(t, err)

	claims, err := auth.validateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "viewer", claims.Role)

	_, err = auth.validateToken(token + "x")
	assert.ErrorIs(t, err, errInvalidToken)

	other := NewAuthMiddleware("other-secret", "", time.Hour, zap.NewNop())
	_, err = other.validateToken(token)
	assert.ErrorIs(t, err, errInvalidToken)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = auth.validateToken(token)
	assert.ErrorIs(t, err, errInvalidToken)

	_, err = auth.validateToken("not-a-token")
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestAuthMiddleware_RequireAuthAndRole(t *testing.T) {
	auth := newTestAuth(t, "")

	router := gin.New()
	router.Use(RequestID())
	router.GET("/admin", auth.RequireAuth(), auth.RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	adminToken, err := auth.GenerateToken("admin", "admin", RoleAdmin, time.Minute)
	require.NoError(t, err)
	viewerToken, err := auth.GenerateToken("v", "viewer", "viewer", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
		code   string
	}{
		{"missing", "", http.StatusUnauthorized, CodeUnauthorized},
		{"wrong scheme", "Basic " + adminToken, http.StatusUnauthorized, CodeUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized, CodeUnauthorized},
		{"wrong role", "Bearer " + viewerToken, http.StatusForbidden, CodeForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.code != "" {
				resp := decode(t, rec)
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.code, resp.Error.Code)
				assert.NotEmpty(t, resp.Meta.RequestID)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, zap.NewNop())
	defer rl.Shutdown()

	router := gin.New()
	router.GET("/", rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")
	assert.Equal(t, 2, rl.GetGlobalStats()["active_clients"])

	rl.Shutdown()
}

func TestCORS_Preflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"http://allowed.example"}))
	router.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://allowed.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "null", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestSizeLimitAndInputValidation(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), RequestSizeLimit(16), InputValidation())
	router.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"keypoints": [[1, 2], [3, 4]]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, CodeUnsupportedType, decode(t, rec).Error.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDAndHealth(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), SecurityHeaders())
	router.GET("/health", HealthCheck())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
}

func TestTimeoutHandler(t *testing.T) {
	router := gin.New()
	router.Use(TimeoutHandler(5 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
}
