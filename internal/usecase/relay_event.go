package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/metrics"
	"github.com/Harsh-BH/Lumina/internal/notifier"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// RelayEventUsecase forwards job events from the broker to the subscriber.
type RelayEventUsecase struct {
	idempotent repository.IdempotencyStore
	notifier   notifier.Notifier
	logger     *zap.Logger
}

// NewRelayEventUsecase creates a new RelayEventUsecase.
func NewRelayEventUsecase(idempotent repository.IdempotencyStore, n notifier.Notifier, logger *zap.Logger) *RelayEventUsecase {
	return &RelayEventUsecase{
		idempotent: idempotent,
		notifier:   n,
		logger:     logger,
	}
}

// Execute delivers one event: idempotency check → notify → keep lock.
// Returns (isDuplicate, error). On error the lock is dropped so a redelivery can retry.
func (uc *RelayEventUsecase) Execute(ctx context.Context, event *domain.JobEvent) (bool, error) {
	acquired, err := uc.idempotent.AcquireLock(ctx, event.EventID)
	if err != nil {
		uc.logger.Error("Failed to acquire idempotency lock", zap.Error(err), zap.String("event_id", event.EventID.String()))
		return false, err
	}
	if !acquired {
		uc.logger.Info("Duplicate event detected, skipping", zap.String("event_id", event.EventID.String()))
		metrics.RelayDeliveries.WithLabelValues("duplicate").Inc()
		return true, nil
	}

	if err := uc.notifier.Notify(ctx, event); err != nil {
		uc.logger.Warn("Event delivery failed",
			zap.Error(err),
			zap.String("event_id", event.EventID.String()),
			zap.String("job_id", event.JobID.String()),
		)
		metrics.RelayDeliveries.WithLabelValues("failed").Inc()
		if fErr := uc.idempotent.Forget(context.WithoutCancel(ctx), event.EventID); fErr != nil {
			uc.logger.Error("Failed to drop idempotency lock", zap.Error(fErr), zap.String("event_id", event.EventID.String()))
		}
		return false, err
	}

	_ = uc.idempotent.ReleaseLock(ctx, event.EventID)
	metrics.RelayDeliveries.WithLabelValues("delivered").Inc()

	uc.logger.Info("Event delivered",
		zap.String("event_id", event.EventID.String()),
		zap.String("job_id", event.JobID.String()),
		zap.String("status", string(event.Status)),
	)
	return false, nil
}
