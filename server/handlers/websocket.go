package handlers

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/san-kum/pose-sentinel/server/middleware"
	"github.com/san-kum/pose-sentinel/server/models"
	"github.com/san-kum/pose-sentinel/server/processor"
	"github.com/san-kum/pose-sentinel/server/session"
	"go.uber.org/zap"
)

const (
	wsReadLimit    = 1024 * 1024
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteWait    = 10 * time.Second
)

type WebSocketHandler struct {
	processor *processor.FrameProcessor
	limiter   *middleware.RateLimiter
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// ClientMessage is a message from a streaming client. Keypoint messages
// carry the same fields as a classify request.
type ClientMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Keypoints [][]float64 `json:"keypoints,omitempty"`
	Elapsed   *float64    `json:"dt,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Snapshot  string      `json:"snapshot,omitempty"`
}

type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.WriteMessage(websocket.PingMessage, nil)
}

func NewWebSocketHandler(processor *processor.FrameProcessor, limiter *middleware.RateLimiter, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		processor: processor,
		limiter:   limiter,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleWebSocket streams keypoint frames. Each connection gets its own
// session, dropped when the connection closes, unless the client names
// one.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}
	conn := &wsConn{Conn: raw}
	defer conn.Close()

	// The connection outlives the request timeout.
	ctx := context.WithoutCancel(c.Request.Context())
	clientIP := c.ClientIP()
	ownSession := session.NewID()
	sessionID := ownSession

	h.logger.Info("WebSocket client connected",
		zap.String("client_ip", clientIP),
		zap.String("session_id", sessionID))

	defer func() {
		h.processor.EndSession(ctx, ownSession)
		h.logger.Info("WebSocket client disconnected", zap.String("session_id", sessionID))
	}()

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingRoutine(conn, done)

	for {
		var message ClientMessage
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read failed", zap.Error(err))
			}
			return
		}

		if message.SessionID != "" {
			sessionID = message.SessionID
		}

		if h.limiter != nil && !h.limiter.Allow(clientIP) {
			h.sendError(conn, middleware.CodeRateLimited, "Rate limit exceeded")
			continue
		}

		h.handleMessage(ctx, conn, sessionID, &message)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *wsConn, sessionID string, message *ClientMessage) {
	switch message.Type {
	case "keypoints":
		h.processKeypoints(ctx, conn, sessionID, message)
	case "ping":
		h.sendMessage(conn, "pong", gin.H{"timestamp": time.Now().UnixMilli()})
	case "reset":
		reset := h.processor.ResetSession(ctx, sessionID)
		h.sendMessage(conn, "reset", models.SessionReset{SessionID: sessionID, Reset: reset})
	default:
		h.logger.Warn("Unknown message type received", zap.String("type", message.Type))
		h.sendError(conn, middleware.CodeInvalidRequest, "Unknown message type: "+message.Type)
	}
}

func (h *WebSocketHandler) processKeypoints(ctx context.Context, conn *wsConn, sessionID string, message *ClientMessage) {
	result, err := h.processor.ProcessFrame(ctx, &models.ClassifyRequest{
		SessionID: sessionID,
		Keypoints: message.Keypoints,
		Elapsed:   message.Elapsed,
		Timestamp: message.Timestamp,
		Snapshot:  message.Snapshot,
	})
	if err != nil {
		_, code := classifyError(err)
		h.sendError(conn, code, err.Error())
		return
	}

	h.sendMessage(conn, "pose", result)
}

func (h *WebSocketHandler) sendMessage(conn *wsConn, messageType string, data any) {
	if err := conn.writeJSON(ServerMessage{Type: messageType, Data: data}); err != nil {
		h.logger.Error("Failed to send WebSocket message", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *wsConn, code, message string) {
	h.sendMessage(conn, "error", models.APIError{Code: code, Message: message})
}

func (h *WebSocketHandler) pingRoutine(conn *wsConn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				h.logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
