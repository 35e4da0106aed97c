package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/san-kum/pose-sentinel/server/cache"
	"github.com/san-kum/pose-sentinel/server/config"
	"github.com/san-kum/pose-sentinel/server/handlers"
	"github.com/san-kum/pose-sentinel/server/metrics"
	"github.com/san-kum/pose-sentinel/server/middleware"
	"github.com/san-kum/pose-sentinel/server/notify"
	"github.com/san-kum/pose-sentinel/server/pose"
	"github.com/san-kum/pose-sentinel/server/processor"
	"github.com/san-kum/pose-sentinel/server/session"
	"github.com/san-kum/pose-sentinel/server/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Server struct {
	router         *gin.Engine
	logger         *zap.Logger
	frameProcessor *processor.FrameProcessor
	sessions       *session.Store
	amqp           *notify.AMQPPublisher
	rateLimiter    *middleware.RateLimiter
	stopHealth     context.CancelFunc
	config         *config.Config
}

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a password for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := middleware.HashPassword(*hashPassword)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(hash)
		return
	}

	cfg := config.LoadConfig()

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := cfg.ValidateConfig(logger); err != nil {
		logger.Fatal("Configuration validation failed", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))

		var err error
		if cfg.Security.EnableHTTPS {
			err = srv.ListenAndServeTLS(cfg.Security.CertFile, cfg.Security.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting frames before draining the alert queue.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	server.Shutdown(10 * time.Second)

	logger.Info("Server exited")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapConfig zap.Config
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	classifier, err := pose.NewClassifier(cfg.Classifier.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	alertStore, err := store.NewAlertStore(cfg.Storage.AlertsFile, cfg.Storage.SnapshotDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open alert store: %w", err)
	}

	sessions := session.NewStore(cfg.Session.MaxSessions, cfg.Session.IdleTTL, logger)
	cacheInstance := cache.NewMemoryCache(cfg.Session.MaxSessions*len(pose.Labels), logger)
	m := metrics.New()

	healthCtx, stopHealth := context.WithCancel(context.Background())

	var notifiers []notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		webhook := notify.NewWebhookClient(cfg.Notify.WebhookURL, &notify.WebhookConfig{
			Timeout:    cfg.Notify.Timeout,
			MaxRetries: cfg.Notify.MaxRetries,
			RetryDelay: cfg.Notify.RetryDelay,
		}, logger)
		webhook.StartHealthChecker(healthCtx, time.Minute)
		notifiers = append(notifiers, webhook)
	}

	var amqpPublisher *notify.AMQPPublisher
	if cfg.Notify.AMQPURL != "" {
		amqpPublisher = notify.NewAMQPPublisher(cfg.Notify.AMQPURL, cfg.Notify.AMQPQueue, logger)
		if err := amqpPublisher.Connect(); err != nil {
			logger.Warn("Failed to connect to AMQP broker, will retry on first alert", zap.Error(err))
		}
		notifiers = append(notifiers, amqpPublisher)
	}

	multi := notify.NewMulti(notifiers...)
	multi.OnFailure(func(name string, err error) {
		m.NotifyFailures.WithLabelValues(name).Inc()
	})

	var notifier notify.Notifier
	if multi.Len() > 0 {
		notifier = multi
	}

	frameProcessor := processor.NewFrameProcessor(&processor.ProcessorConfig{
		DefaultElapsed: cfg.Classifier.DefaultElapsed,
		FrameInterval:  cfg.Classifier.FrameInterval,
		AlertThreshold: cfg.Alert.ConfidenceThreshold,
		AlertCooldown:  cfg.Alert.Cooldown,
		QueueSize:      cfg.Alert.QueueSize,
		Workers:        cfg.Alert.Workers,
		NotifyTimeout:  cfg.Notify.Timeout,
	}, classifier, sessions, cacheInstance, alertStore, notifier, m, logger)

	rateLimiter := middleware.NewRateLimiter(
		cfg.Security.RateLimitRPS,
		cfg.Security.RateLimitBurst,
		logger,
	)

	authMiddleware := middleware.NewAuthMiddleware(
		cfg.Security.JWTSecretKey,
		cfg.Security.AdminPasswordHash,
		cfg.Security.TokenTTL,
		logger,
	)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.Security.MaxRequestSize))
	router.Use(middleware.InputValidation())
	router.Use(middleware.TimeoutHandler(cfg.Security.RequestTimeout))

	setupRoutes(router, routeHandlers{
		classify: handlers.NewClassifyHandler(frameProcessor, rateLimiter, logger),
		alerts:   handlers.NewAlertHandler(alertStore, logger),
		auth:     handlers.NewAuthHandler(authMiddleware, logger),
		ws:       handlers.NewWebSocketHandler(frameProcessor, rateLimiter, cfg.Security.AllowedOrigins, logger),
		metrics:  m.Handler(),
	}, authMiddleware, rateLimiter)

	logger.Info("Server initialised",
		zap.Int("stored_alerts", alertStore.Count()),
		zap.Int("notifiers", multi.Len()),
		zap.Float64("alert_threshold", cfg.Alert.ConfidenceThreshold))

	return &Server{
		router:         router,
		logger:         logger,
		frameProcessor: frameProcessor,
		sessions:       sessions,
		amqp:           amqpPublisher,
		rateLimiter:    rateLimiter,
		stopHealth:     stopHealth,
		config:         cfg,
	}, nil
}

// Shutdown releases everything NewServer started. The HTTP server must be
// stopped first.
func (s *Server) Shutdown(timeout time.Duration) {
	s.stopHealth()

	if err := s.frameProcessor.Shutdown(timeout); err != nil {
		s.logger.Error("Failed to shutdown frame processor", zap.Error(err))
	}

	s.rateLimiter.Shutdown()

	if err := s.sessions.Close(); err != nil {
		s.logger.Error("Failed to close session store", zap.Error(err))
	}

	if s.amqp != nil {
		if err := s.amqp.Close(); err != nil {
			s.logger.Error("Failed to close AMQP publisher", zap.Error(err))
		}
	}
}

type routeHandlers struct {
	classify *handlers.ClassifyHandler
	alerts   *handlers.AlertHandler
	auth     *handlers.AuthHandler
	ws       *handlers.WebSocketHandler
	metrics  http.Handler
}

func setupRoutes(router *gin.Engine, h routeHandlers, auth *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) {
	router.GET("/health", middleware.HealthCheck())
	router.GET("/metrics", gin.WrapH(h.metrics))

	// Messages are limited per frame inside the handler.
	router.GET("/ws", h.ws.HandleWebSocket)

	api := router.Group("/api/v1")
	{
		api.GET("/health", middleware.HealthCheck())

		limited := api.Group("/")
		limited.Use(rateLimiter.RateLimit())
		{
			limited.POST("/classify", h.classify.Classify)
			limited.GET("/sessions", h.classify.ListSessions)
			limited.POST("/sessions/:session_id/reset", h.classify.ResetSession)
			limited.DELETE("/sessions/:session_id", h.classify.EndSession)
			limited.GET("/stats", h.classify.GetStats)
			limited.POST("/login", h.auth.Login)
		}

		alerts := api.Group("/alerts")
		alerts.Use(rateLimiter.RateLimit())
		alerts.Use(auth.RequireAuth())
		alerts.Use(auth.RequireRole(middleware.RoleAdmin))
		{
			alerts.GET("", h.alerts.List)
			alerts.GET("/latest", h.alerts.Latest)
			alerts.GET("/:id", h.alerts.Get)
			alerts.POST("", h.alerts.Create)
			alerts.PATCH("/:id", h.alerts.UpdateStatus)
		}
	}
}
