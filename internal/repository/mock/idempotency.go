package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// ---- SubmissionKeys mock ----

var _ repository.SubmissionKeys = (*SubmissionKeys)(nil)

// SubmissionKeys is an in-memory repository.SubmissionKeys.
type SubmissionKeys struct {
	mu   sync.Mutex
	keys map[string]*domain.Submission

	ReserveFn func(ctx context.Context, key string) (*domain.Submission, bool, error)

	Released []string
}

// NewSubmissionKeys creates an empty key store.
func NewSubmissionKeys() *SubmissionKeys {
	return &SubmissionKeys{keys: make(map[string]*domain.Submission)}
}

func (m *SubmissionKeys) Reserve(ctx context.Context, key string) (*domain.Submission, bool, error) {
	if m.ReserveFn != nil {
		return m.ReserveFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.keys[key]; ok {
		return sub, false, nil
	}
	m.keys[key] = nil
	return nil, true, nil
}

func (m *SubmissionKeys) Complete(ctx context.Context, key string, sub *domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = &domain.Submission{
		JobIDs:   append([]uuid.UUID{}, sub.JobIDs...),
		Failures: append([]domain.PackFailure(nil), sub.Failures...),
	}
	return nil
}

func (m *SubmissionKeys) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.Released = append(m.Released, key)
	return nil
}

// ---- IdempotencyStore mock ----

var _ repository.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore is a test double for repository.IdempotencyStore.
type IdempotencyStore struct {
	mu sync.Mutex

	AcquireLockFn func(ctx context.Context, eventID uuid.UUID) (bool, error)
	ReleaseLockFn func(ctx context.Context, eventID uuid.UUID) error

	AcquireCalls []uuid.UUID
	ReleaseCalls []uuid.UUID
	ForgetCalls  []uuid.UUID
}

func (m *IdempotencyStore) AcquireLock(ctx context.Context, eventID uuid.UUID) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls = append(m.AcquireCalls, eventID)
	m.mu.Unlock()
	if m.AcquireLockFn != nil {
		return m.AcquireLockFn(ctx, eventID)
	}
	return true, nil // default: lock acquired
}

func (m *IdempotencyStore) ReleaseLock(ctx context.Context, eventID uuid.UUID) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, eventID)
	m.mu.Unlock()
	if m.ReleaseLockFn != nil {
		return m.ReleaseLockFn(ctx, eventID)
	}
	return nil
}

func (m *IdempotencyStore) Forget(ctx context.Context, eventID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForgetCalls = append(m.ForgetCalls, eventID)
	return nil
}
