package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/metrics"
	"github.com/Harsh-BH/Lumina/internal/publisher"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// eventPublishTimeout bounds the best-effort event publish after a transition.
const eventPublishTimeout = 5 * time.Second

// ReconcileWebhookUsecase applies provider callbacks to the job they correlate to.
type ReconcileWebhookUsecase struct {
	stores    map[domain.JobKind]repository.JobStore
	publisher publisher.Publisher
	logger    *zap.Logger
}

// NewReconcileWebhookUsecase creates a new ReconcileWebhookUsecase. pub may be nil.
func NewReconcileWebhookUsecase(
	training repository.JobStore,
	generation repository.JobStore,
	pub publisher.Publisher,
	logger *zap.Logger,
) *ReconcileWebhookUsecase {
	return &ReconcileWebhookUsecase{
		stores: map[domain.JobKind]repository.JobStore{
			domain.KindTraining:   training,
			domain.KindGeneration: generation,
		},
		publisher: pub,
		logger:    logger,
	}
}

// Execute moves the PENDING job holding cb.CorrelationID to the callback's terminal state.
// Unmatched, duplicate and conflicting callbacks are not errors; they are reported in the
// result. Only validation and store failures are returned.
func (uc *ReconcileWebhookUsecase) Execute(ctx context.Context, cb *domain.Callback) (*domain.Reconciliation, error) {
	if err := cb.Validate(); err != nil {
		return nil, err
	}
	store := uc.stores[cb.Kind]

	rec, err := uc.reconcile(ctx, store, cb)
	if err != nil {
		uc.logger.Error("Failed to reconcile provider callback",
			zap.Error(err),
			zap.String("kind", string(cb.Kind)),
			zap.String("correlation_id", cb.CorrelationID),
		)
		return nil, err
	}
	metrics.WebhookResults.WithLabelValues(string(cb.Kind), string(rec.Result)).Inc()
	return rec, nil
}

func (uc *ReconcileWebhookUsecase) reconcile(ctx context.Context, store repository.JobStore, cb *domain.Callback) (*domain.Reconciliation, error) {
	transition := cb.Transition()

	state, err := store.ApplyTransition(ctx, cb.CorrelationID, transition)
	if err != nil {
		return nil, storeErr("apply transition", err)
	}
	if state != nil {
		uc.logger.Info("Job reached terminal state",
			zap.String("job_id", state.ID.String()),
			zap.String("kind", string(cb.Kind)),
			zap.String("correlation_id", cb.CorrelationID),
			zap.String("status", string(state.Status)),
		)
		uc.publish(ctx, state)
		return &domain.Reconciliation{Result: domain.ReconcileApplied, JobID: state.ID, Status: state.Status}, nil
	}

	existing, err := store.FindByCorrelationID(ctx, cb.CorrelationID)
	if errors.Is(err, domain.ErrJobNotFound) {
		uc.logger.Warn("Unmatched provider callback",
			zap.String("kind", string(cb.Kind)),
			zap.String("correlation_id", cb.CorrelationID),
			zap.String("outcome", string(cb.Outcome)),
		)
		return &domain.Reconciliation{Result: domain.ReconcileUnmatched}, nil
	}
	if err != nil {
		return nil, storeErr("find by correlation id", err)
	}
	if existing.Status == domain.StatusPending {
		// The update lost a race with the correlation write; the provider redelivers on 503.
		return nil, storeErr("reconcile", fmt.Errorf("job with correlation id %q is still PENDING", cb.CorrelationID))
	}

	if cb.Matches(existing) {
		uc.logger.Info("Duplicate provider callback ignored",
			zap.String("job_id", existing.ID.String()),
			zap.String("correlation_id", cb.CorrelationID),
		)
		return &domain.Reconciliation{Result: domain.ReconcileDuplicate, JobID: existing.ID, Status: existing.Status}, nil
	}

	uc.logger.Warn("Conflicting provider callback ignored",
		zap.Error(domain.ErrTransitionConflict),
		zap.String("job_id", existing.ID.String()),
		zap.String("correlation_id", cb.CorrelationID),
		zap.String("stored_status", string(existing.Status)),
		zap.String("callback_outcome", string(cb.Outcome)),
	)
	return &domain.Reconciliation{Result: domain.ReconcileConflict, JobID: existing.ID, Status: existing.Status}, nil
}

func (uc *ReconcileWebhookUsecase) publish(ctx context.Context, state *domain.JobState) {
	if uc.publisher == nil {
		return
	}

	eventID, err := newJobID()
	if err != nil {
		uc.logger.Error("Failed to generate event id", zap.Error(err))
		return
	}
	event := &domain.JobEvent{
		EventID:    eventID,
		JobID:      state.ID,
		Kind:       state.Kind,
		OwnerID:    state.OwnerID,
		Status:     state.Status,
		OccurredAt: time.Now().UTC(),
	}
	if state.ResultRef != nil {
		event.ResultRef = *state.ResultRef
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(pubCtx, event); err != nil {
		uc.logger.Warn("Failed to publish job event",
			zap.Error(err),
			zap.String("job_id", state.ID.String()),
			zap.String("event_id", eventID.String()),
		)
	}
}
