package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Harsh-BH/Lumina/internal/domain"
)

// JobStore is the correlation surface shared by both job tables. Training and generation
// jobs each have their own JobStore, so a correlation ID is only ever looked up in its own space.
// Implementations must be safe for concurrent use.
type JobStore interface {
	// SetCorrelationID stores the provider's correlation ID on a job. It only succeeds while the
	// job is PENDING without a correlation ID; otherwise it returns domain.ErrTransitionConflict.
	SetCorrelationID(ctx context.Context, id uuid.UUID, correlationID string) error

	// MarkSubmissionFailed fails a job the provider never accepted. It applies only while the job
	// is PENDING without a correlation ID and reports whether it did.
	MarkSubmissionFailed(ctx context.Context, id uuid.UUID, t domain.Transition) (bool, error)

	// ApplyTransition moves the PENDING job holding correlationID to a terminal state in a single
	// conditional write. It returns the updated state, or nil when no PENDING job matched.
	ApplyTransition(ctx context.Context, correlationID string, t domain.Transition) (*domain.JobState, error)

	// FindByCorrelationID returns domain.ErrJobNotFound when no job holds correlationID.
	FindByCorrelationID(ctx context.Context, correlationID string) (*domain.JobState, error)
}

// TrainingRepository persists model-training jobs.
type TrainingRepository interface {
	JobStore

	Create(ctx context.Context, job *domain.TrainingJob) error

	// GetByID is scoped by owner; jobs of other owners are reported as domain.ErrJobNotFound.
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.TrainingJob, error)

	ListByOwner(ctx context.Context, ownerID string) ([]*domain.TrainingJob, error)
}

// GenerationRepository persists image-generation jobs.
type GenerationRepository interface {
	JobStore

	Create(ctx context.Context, job *domain.GenerationJob) error

	// GetByID is scoped by owner; jobs of other owners are reported as domain.ErrJobNotFound.
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.GenerationJob, error)

	// List returns the owner's jobs in any status, newest first, bounded by filter.
	List(ctx context.Context, ownerID string, filter domain.ImageFilter) ([]*domain.GenerationJob, error)
}

// PackRepository reads the pack catalog.
type PackRepository interface {
	ListPacks(ctx context.Context) ([]*domain.Pack, error)

	// ListPrompts returns the pack's templates in their stored order.
	ListPrompts(ctx context.Context, packID uuid.UUID) ([]*domain.PackPrompt, error)
}

// SubmissionKeys backs the Idempotency-Key header of submission routes.
type SubmissionKeys interface {
	// Reserve claims key. When the key was already claimed it returns reserved=false together with
	// the submission recorded for it, or nil while the first submission is still in flight.
	Reserve(ctx context.Context, key string) (recorded *domain.Submission, reserved bool, err error)

	// Complete records what was created under a reserved key.
	Complete(ctx context.Context, key string, sub *domain.Submission) error

	// Release drops a reservation whose submission failed so the caller can retry.
	Release(ctx context.Context, key string) error
}

// IdempotencyStore defines the interface for distributed deduplication locks on job events.
type IdempotencyStore interface {
	// AcquireLock attempts to acquire an exclusive processing lock for an event.
	// Returns true if the lock was acquired (first time), false if already locked (duplicate).
	AcquireLock(ctx context.Context, eventID uuid.UUID) (bool, error)

	// ReleaseLock keeps the lock with a TTL so redeliveries stay deduplicated for a while.
	ReleaseLock(ctx context.Context, eventID uuid.UUID) error

	// Forget removes the lock so a failed delivery can be retried.
	Forget(ctx context.Context, eventID uuid.UUID) error
}
