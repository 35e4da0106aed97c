package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/pose-sentinel/server/models"
	"go.uber.org/zap"
)

// AlertJob is one alert waiting to be persisted and delivered.
type AlertJob struct {
	Alert      *models.Alert
	Snapshot   string
	EnqueuedAt time.Time
}

// AlertQueue is a bounded queue drained by a fixed pool of workers.
// Enqueue never blocks; a full queue rejects the job.
type AlertQueue struct {
	items     chan *AlertJob
	workers   int
	handler   func(context.Context, *AlertJob)
	logger    *zap.Logger
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	mutex     sync.RWMutex
}

func NewAlertQueue(queueSize, workers int, handler func(context.Context, *AlertJob), logger *zap.Logger) *AlertQueue {
	ctx, cancel := context.WithCancel(context.Background())

	queue := &AlertQueue{
		items:     make(chan *AlertJob, queueSize),
		workers:   workers,
		handler:   handler,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		isRunning: true,
	}

	for i := 0; i < workers; i++ {
		queue.wg.Add(1)
		go queue.worker(i)
	}

	return queue
}

func (q *AlertQueue) worker(id int) {
	defer q.wg.Done()

	for job := range q.items {
		q.run(id, job)
	}
}

func (q *AlertQueue) run(id int, job *AlertJob) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Alert worker panic",
				zap.Int("worker", id),
				zap.String("alert_id", job.Alert.ID),
				zap.Any("panic", r))
		}
	}()

	q.handler(q.ctx, job)
}

func (q *AlertQueue) Enqueue(job *AlertJob) bool {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	if !q.isRunning {
		return false
	}

	select {
	case q.items <- job:
		return true
	default:
		return false
	}
}

func (q *AlertQueue) Size() int {
	return len(q.items)
}

func (q *AlertQueue) Capacity() int {
	return cap(q.items)
}

// Shutdown stops accepting jobs and waits for queued ones to drain. When
// the timeout passes first, in-flight handlers see their context cancelled.
func (q *AlertQueue) Shutdown(timeout time.Duration) error {
	q.mutex.Lock()
	if !q.isRunning {
		q.mutex.Unlock()
		return nil
	}
	q.isRunning = false
	close(q.items)
	q.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-time.After(timeout):
		q.cancel()
		return fmt.Errorf("shutdown timeout exceeded with %d alerts pending", q.Size())
	}
}

func (q *AlertQueue) GetQueueStats() QueueStats {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	return QueueStats{
		CurrentSize:        q.Size(),
		MaxCapacity:        q.Capacity(),
		ActiveWorkers:      q.workers,
		IsRunning:          q.isRunning,
		UtilizationPercent: float64(q.Size()) / float64(q.Capacity()) * 100,
	}
}

type QueueStats struct {
	CurrentSize        int     `json:"current_size"`
	MaxCapacity        int     `json:"max_capacity"`
	ActiveWorkers      int     `json:"active_workers"`
	IsRunning          bool    `json:"is_running"`
	UtilizationPercent float64 `json:"utilization_percent"`
}
