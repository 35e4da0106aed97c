package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/san-kum/pose-sentinel/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func job(id string) *AlertJob {
	return &AlertJob{Alert: &models.Alert{ID: id}}
}

func TestAlertQueue_ProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	q := NewAlertQueue(10, 2, func(ctx context.Context, j *AlertJob) {
		mu.Lock()
		seen = append(seen, j.Alert.ID)
		mu.Unlock()
	}, zap.NewNop())

	require.True(t, q.Enqueue(job("a")))
	require.True(t, q.Enqueue(job("b")))
	require.NoError(t, q.Shutdown(time.Second))

	assert.ElementsMatch(t, []string{"a", "b"}, seen)
	assert.False(t, q.GetQueueStats().IsRunning)
	assert.False(t, q.Enqueue(job("c")), "closed queue rejects jobs")
}

func TestAlertQueue_RejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	q := NewAlertQueue(1, 1, func(ctx context.Context, j *AlertJob) {
		started <- struct{}{}
		<-release
	}, zap.NewNop())

	require.True(t, q.Enqueue(job("busy")))
	<-started

	require.True(t, q.Enqueue(job("queued")))
	assert.False(t, q.Enqueue(job("dropped")))

	stats := q.GetQueueStats()
	assert.Equal(t, 1, stats.CurrentSize)
	assert.Equal(t, 100.0, stats.UtilizationPercent)

	close(release)
	require.NoError(t, q.Shutdown(time.Second))
}

func TestAlertQueue_SurvivesPanics(t *testing.T) {
	done := make(chan string, 2)

	q := NewAlertQueue(10, 1, func(ctx context.Context, j *AlertJob) {
		if j.Alert.ID == "bad" {
			panic("boom")
		}
		done <- j.Alert.ID
	}, zap.NewNop())

	q.Enqueue(job("bad"))
	q.Enqueue(job("good"))
	require.NoError(t, q.Shutdown(time.Second))

	assert.Equal(t, "good", <-done)
}

func TestAlertQueue_ShutdownTimeoutCancelsHandlers(t *testing.T) {
	cancelled := make(chan struct{})

	q := NewAlertQueue(1, 1, func(ctx context.Context, j *AlertJob) {
		<-ctx.Done()
		close(cancelled)
	}, zap.NewNop())

	q.Enqueue(job("slow"))

	err := q.Shutdown(10 * time.Millisecond)
	assert.Error(t, err)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("handler context was not cancelled")
	}

	assert.NoError(t, q.Shutdown(time.Second), "second shutdown is a no-op")
}
