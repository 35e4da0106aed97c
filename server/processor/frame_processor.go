package processor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/pose-sentinel/server/cache"
	"github.com/san-kum/pose-sentinel/server/metrics"
	"github.com/san-kum/pose-sentinel/server/models"
	"github.com/san-kum/pose-sentinel/server/notify"
	"github.com/san-kum/pose-sentinel/server/pose"
	"github.com/san-kum/pose-sentinel/server/session"
	"go.uber.org/zap"
)

const alertTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// AlertRecorder persists alerts and their snapshots.
type AlertRecorder interface {
	Create(alert *models.Alert) (*models.Alert, error)
	SaveSnapshot(id, snapshot string) (string, error)
}

type FrameProcessor struct {
	classifier *pose.Classifier
	sessions   *session.Store
	cache      cache.Cache
	alerts     AlertRecorder
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
	queue      *AlertQueue
	stats      *ProcessorStats
	config     *ProcessorConfig
	mutex      sync.RWMutex
	now        func() time.Time
}

type ProcessorStats struct {
	StartTime             time.Time        `json:"start_time"`
	TotalProcessed        int64            `json:"total_processed"`
	SuccessfullyProcessed int64            `json:"successfully_processed"`
	FailedProcessed       int64            `json:"failed_processed"`
	AverageLatency        float64          `json:"average_latency_ms"`
	Labels                map[string]int64 `json:"labels"`
	AlertsRaised          int64            `json:"alerts_raised"`
	AlertsDropped         int64            `json:"alerts_dropped"`
	ActiveSessions        int              `json:"active_sessions"`
	Queue                 QueueStats       `json:"queue"`
}

type ProcessorConfig struct {
	DefaultElapsed float64       `json:"default_elapsed"`
	FrameInterval  time.Duration `json:"frame_interval"`
	AlertThreshold float64       `json:"alert_threshold"`
	AlertCooldown  time.Duration `json:"alert_cooldown"`
	QueueSize      int           `json:"queue_size"`
	Workers        int           `json:"workers"`
	NotifyTimeout  time.Duration `json:"notify_timeout"`
}

// NewFrameProcessor wires the classification pipeline. notifier may be nil
// when no delivery channel is configured.
func NewFrameProcessor(
	config *ProcessorConfig,
	classifier *pose.Classifier,
	sessions *session.Store,
	cache cache.Cache,
	alerts AlertRecorder,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *FrameProcessor {
	fp := &FrameProcessor{
		classifier: classifier,
		sessions:   sessions,
		cache:      cache,
		alerts:     alerts,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
		config:     config,
		now:        time.Now,
		stats: &ProcessorStats{
			StartTime: time.Now(),
			Labels:    make(map[string]int64),
		},
	}

	fp.queue = NewAlertQueue(config.QueueSize, config.Workers, fp.dispatchAlert, logger)

	return fp
}

// ProcessFrame classifies one frame for the request's session, creating
// the session on first use, and raises an alert when the policy allows.
func (fp *FrameProcessor) ProcessFrame(ctx context.Context, request *models.ClassifyRequest) (*models.ClassifyResponse, error) {
	startTime := fp.now()

	frame, err := pose.ParseFrame(request.Keypoints)
	if err != nil {
		fp.recordFailure("invalid_frame")
		return nil, err
	}

	sess, created := fp.sessions.GetOrCreate(request.SessionID)
	if created {
		fp.metrics.ActiveSessions.Set(float64(fp.sessions.Len()))
	}

	sess.Mu.Lock()
	dt := fp.resolveElapsed(request, sess)
	result, err := fp.classifier.Classify(frame, &sess.Memory, dt)
	if err == nil {
		sess.Frames++
		// Late frames do not move the reference point backwards.
		if request.Timestamp > sess.LastTimestamp {
			sess.LastTimestamp = request.Timestamp
		}
	}
	sess.Mu.Unlock()

	if err != nil {
		if errors.Is(err, pose.ErrInvalidFrame) {
			fp.recordFailure("invalid_frame")
		} else {
			fp.recordFailure("invalid_elapsed")
		}
		return nil, err
	}

	latency := fp.now().Sub(startTime)
	fp.metrics.ClassifyLatency.Observe(latency.Seconds())
	fp.metrics.FramesClassified.WithLabelValues(string(result.Label)).Inc()
	fp.metrics.Confidence.WithLabelValues(string(result.Label)).Observe(result.Confidences.Get(result.Label))

	timestamp := request.Timestamp
	if timestamp <= 0 {
		timestamp = startTime.UnixMilli()
	}

	alerted := fp.maybeAlert(ctx, sess.ID, timestamp, result, request.Snapshot)

	fp.mutex.Lock()
	fp.stats.TotalProcessed++
	fp.stats.SuccessfullyProcessed++
	fp.stats.Labels[string(result.Label)]++
	fp.updateLatencyStats(latency)
	fp.mutex.Unlock()

	return &models.ClassifyResponse{
		SessionID:   sess.ID,
		Label:       result.Label,
		Confidences: result.Confidences,
		Extra:       result.Extra,
		Elapsed:     dt,
		Alerted:     alerted,
		Timestamp:   timestamp,
	}, nil
}

// resolveElapsed picks the elapsed time in frames. Callers hold sess.Mu.
func (fp *FrameProcessor) resolveElapsed(request *models.ClassifyRequest, sess *session.Session) float64 {
	if request.Elapsed != nil {
		return *request.Elapsed
	}

	if request.Timestamp > 0 && sess.LastTimestamp > 0 {
		if delta := request.Timestamp - sess.LastTimestamp; delta > 0 {
			return float64(time.Duration(delta)*time.Millisecond) / float64(fp.config.FrameInterval)
		}
	}

	fp.logger.Debug("Using default elapsed time",
		zap.String("session_id", sess.ID),
		zap.Float64("dt", fp.config.DefaultElapsed))

	return fp.config.DefaultElapsed
}

// maybeAlert queues an alert when the strongest category reaches the alert
// threshold and its cooldown for the session has passed.
func (fp *FrameProcessor) maybeAlert(ctx context.Context, sessionID string, timestamp int64, result pose.Result, snapshot string) bool {
	label, confidence := result.Confidences.Top()
	if confidence < fp.config.AlertThreshold {
		return false
	}

	if fp.config.AlertCooldown > 0 {
		key := cache.GenerateCacheKey("cooldown", sessionID, string(label))

		stored, err := fp.cache.SetIfAbsent(ctx, key, timestamp, fp.config.AlertCooldown)
		if err != nil {
			fp.logger.Warn("Failed to check alert cooldown", zap.Error(err))
			return false
		}
		if !stored {
			if remaining, err := fp.cache.GetTTL(ctx, key); err == nil {
				fp.logger.Debug("Alert suppressed by cooldown",
					zap.String("session_id", sessionID),
					zap.String("label", string(label)),
					zap.Duration("remaining", remaining))
			}
			return false
		}
	}

	confidences := result.Confidences
	alert := &models.Alert{
		ID:          uuid.New().String(),
		Timestamp:   time.UnixMilli(timestamp).UTC().Format(alertTimestampLayout),
		Pose:        string(label),
		Confidence:  roundConfidence(confidence),
		Status:      models.StatusNew,
		SessionID:   sessionID,
		Confidences: &confidences,
		CreatedAt:   fp.now().UTC(),
	}

	fp.metrics.AlertsRaised.WithLabelValues(string(label)).Inc()

	if !fp.queue.Enqueue(&AlertJob{Alert: alert, Snapshot: snapshot, EnqueuedAt: fp.now()}) {
		fp.metrics.AlertsDropped.Inc()
		fp.logger.Warn("Alert queue full, dropping alert",
			zap.String("session_id", sessionID),
			zap.String("label", string(label)))

		fp.mutex.Lock()
		fp.stats.AlertsDropped++
		fp.mutex.Unlock()
		return false
	}

	fp.metrics.AlertQueueDepth.Set(float64(fp.queue.Size()))
	fp.logger.Info("Alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("session_id", sessionID),
		zap.String("label", string(label)),
		zap.Float64("confidence", confidence))

	fp.mutex.Lock()
	fp.stats.AlertsRaised++
	fp.mutex.Unlock()
	return true
}

// dispatchAlert runs on the queue workers: snapshot first so the stored
// record points at it, then the record, then delivery.
func (fp *FrameProcessor) dispatchAlert(ctx context.Context, job *AlertJob) {
	alert := job.Alert
	fp.metrics.AlertQueueDepth.Set(float64(fp.queue.Size()))

	if job.Snapshot != "" {
		path, err := fp.alerts.SaveSnapshot(alert.ID, job.Snapshot)
		if err != nil {
			fp.logger.Warn("Failed to save alert snapshot",
				zap.String("alert_id", alert.ID), zap.Error(err))
		} else {
			alert.Snapshot = path
		}
	}

	stored, err := fp.alerts.Create(alert)
	if err != nil {
		fp.logger.Error("Failed to persist alert",
			zap.String("alert_id", alert.ID), zap.Error(err))
		return
	}
	fp.metrics.AlertsPersisted.Inc()

	if fp.notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(ctx, fp.config.NotifyTimeout)
	defer cancel()

	if err := fp.notifier.Notify(notifyCtx, stored); err != nil {
		fp.logger.Warn("Alert notification failed",
			zap.String("alert_id", stored.ID),
			zap.String("notifier", fp.notifier.Name()),
			zap.Error(err))
	}
}

// ResetSession clears the temporal memory and alert cooldowns of a
// session. It reports whether the session existed.
func (fp *FrameProcessor) ResetSession(ctx context.Context, sessionID string) bool {
	if !fp.sessions.Reset(sessionID) {
		return false
	}

	for _, label := range pose.Labels {
		key := cache.GenerateCacheKey("cooldown", sessionID, string(label))
		if err := fp.cache.Delete(ctx, key); err != nil {
			fp.logger.Warn("Failed to clear alert cooldown", zap.String("key", key), zap.Error(err))
		}
	}

	fp.logger.Info("Session reset", zap.String("session_id", sessionID))
	return true
}

// EndSession forgets a session entirely. It reports whether the session
// existed.
func (fp *FrameProcessor) EndSession(ctx context.Context, sessionID string) bool {
	existed := fp.ResetSession(ctx, sessionID)
	fp.sessions.Delete(sessionID)
	fp.metrics.ActiveSessions.Set(float64(fp.sessions.Len()))
	return existed
}

func (fp *FrameProcessor) ListSessions() []session.Info {
	return fp.sessions.List()
}

func (fp *FrameProcessor) GetStats() *ProcessorStats {
	fp.mutex.RLock()
	defer fp.mutex.RUnlock()

	stats := *fp.stats
	stats.Labels = make(map[string]int64, len(fp.stats.Labels))
	for label, count := range fp.stats.Labels {
		stats.Labels[label] = count
	}
	stats.ActiveSessions = fp.sessions.Len()
	stats.Queue = fp.queue.GetQueueStats()
	return &stats
}

// GetCacheStats returns cache statistics
func (fp *FrameProcessor) GetCacheStats(ctx context.Context) (*cache.CacheStats, error) {
	if fp.cache == nil {
		return nil, fmt.Errorf("cache not initialized")
	}

	return fp.cache.GetStats(ctx)
}

func (fp *FrameProcessor) recordFailure(reason string) {
	fp.metrics.FrameErrors.WithLabelValues(reason).Inc()

	fp.mutex.Lock()
	fp.stats.TotalProcessed++
	fp.stats.FailedProcessed++
	fp.mutex.Unlock()
}

func (fp *FrameProcessor) updateLatencyStats(latency time.Duration) {
	currentLatency := float64(latency.Microseconds()) / 1000

	if fp.stats.AverageLatency == 0 {
		fp.stats.AverageLatency = currentLatency
	} else {
		alpha := 0.1
		fp.stats.AverageLatency = alpha*currentLatency + (1-alpha)*fp.stats.AverageLatency
	}
}

func roundConfidence(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Shutdown drains pending alerts and closes the cache.
func (fp *FrameProcessor) Shutdown(timeout time.Duration) error {
	fp.logger.Info("Shutting down frame processor...")

	if err := fp.queue.Shutdown(timeout); err != nil {
		fp.logger.Error("Failed to drain alert queue", zap.Error(err))
		return err
	}

	if fp.cache != nil {
		if err := fp.cache.Close(); err != nil {
			fp.logger.Error("Failed to close cache", zap.Error(err))
			return err
		}
	}

	fp.logger.Info("Frame processor shutdown complete")
	return nil
}
