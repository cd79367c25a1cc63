package mock

import (
	"context"
	"sync"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/notifier"
)

var _ notifier.Notifier = (*Notifier)(nil)

// Notifier is a test double for notifier.Notifier.
type Notifier struct {
	mu sync.Mutex

	NotifyFn func(ctx context.Context, event *domain.JobEvent) error

	Delivered []*domain.JobEvent
}

func (m *Notifier) Notify(ctx context.Context, event *domain.JobEvent) error {
	if m.NotifyFn != nil {
		if err := m.NotifyFn(ctx, event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Delivered = append(m.Delivered, event)
	return nil
}
