package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/metrics"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// detachedWriteTimeout bounds the phase-two writes, which outlive the caller's context.
const detachedWriteTimeout = 5 * time.Second

// correlate runs the second phase of a submission: call the provider, then store its
// correlation ID on the PENDING job created in the first phase.
func correlate(
	ctx context.Context,
	store repository.JobStore,
	kind domain.JobKind,
	jobID uuid.UUID,
	submit func(context.Context) (string, error),
	logger *zap.Logger,
) error {
	start := time.Now()
	correlationID, err := submit(ctx)
	metrics.ProviderLatency.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := domain.ReasonSubmissionUnavailable
		if errors.Is(err, domain.ErrProviderRejected) {
			reason = domain.ReasonSubmissionRejected
		} else if !errors.Is(err, domain.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
		}

		markCtx, cancel := detached(ctx)
		defer cancel()
		if _, markErr := store.MarkSubmissionFailed(markCtx, jobID, domain.Failed(reason, err.Error())); markErr != nil {
			logger.Error("Failed to mark unsubmitted job as failed",
				zap.Error(markErr),
				zap.String("job_id", jobID.String()),
				zap.String("kind", string(kind)),
			)
		}

		logger.Warn("Provider did not accept job",
			zap.Error(err),
			zap.String("job_id", jobID.String()),
			zap.String("kind", string(kind)),
			zap.String("failure_reason", string(reason)),
		)
		metrics.SubmissionsTotal.WithLabelValues(string(kind), string(reason)).Inc()
		return err
	}

	// The provider already holds the job, so a client disconnect must not skip this write.
	setCtx, cancel := detached(ctx)
	defer cancel()
	if err := store.SetCorrelationID(setCtx, jobID, correlationID); err != nil {
		// The provider holds the job; its callback will be unmatched until an operator links it.
		logger.Error("Failed to store correlation id for accepted job",
			zap.Error(err),
			zap.String("job_id", jobID.String()),
			zap.String("correlation_id", correlationID),
			zap.String("kind", string(kind)),
		)
		metrics.SubmissionsTotal.WithLabelValues(string(kind), "uncorrelated").Inc()
		return storeErr("store correlation id", err)
	}

	metrics.SubmissionsTotal.WithLabelValues(string(kind), "accepted").Inc()
	logger.Info("Job submitted to provider",
		zap.String("job_id", jobID.String()),
		zap.String("correlation_id", correlationID),
		zap.String("kind", string(kind)),
	)
	return nil
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), detachedWriteTimeout)
}

// storeErr passes classified domain errors through and marks everything else as a store outage.
func storeErr(op string, err error) error {
	for _, known := range []error{
		domain.ErrValidation,
		domain.ErrJobNotFound,
		domain.ErrTransitionConflict,
		domain.ErrStoreUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func newJobID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate UUIDv7: %w", err)
	}
	return id, nil
}
