// Package notify delivers persisted alerts to external systems.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/pose-sentinel/server/models"
)

type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert *models.Alert) error
}

// Multi sends every alert to all of its notifiers concurrently.
type Multi struct {
	notifiers []Notifier
	onFailure func(name string, err error)
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// OnFailure registers a hook called once for every failed delivery.
func (m *Multi) OnFailure(fn func(name string, err error)) {
	m.onFailure = fn
}

func (m *Multi) Name() string {
	return "multi"
}

func (m *Multi) Len() int {
	return len(m.notifiers)
}

// Notify returns the joined errors of the notifiers that failed.
func (m *Multi) Notify(ctx context.Context, alert *models.Alert) error {
	errs := make([]error, len(m.notifiers))

	var wg sync.WaitGroup
	for i, n := range m.notifiers {
		wg.Add(1)
		go func(i int, n Notifier) {
			defer wg.Done()
			if err := n.Notify(ctx, alert); err != nil {
				errs[i] = fmt.Errorf("%s: %w", n.Name(), err)
				if m.onFailure != nil {
					m.onFailure(n.Name(), err)
				}
			}
		}(i, n)
	}
	wg.Wait()

	return errors.Join(errs...)
}
