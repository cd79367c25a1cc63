package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

const maxIdempotencyKeyLength = 128

// IdempotencyGuard makes submissions carrying an Idempotency-Key replay their first result.
type IdempotencyGuard struct {
	keys   repository.SubmissionKeys
	logger *zap.Logger
}

// NewIdempotencyGuard creates a guard backed by keys. A nil guard runs every submission.
func NewIdempotencyGuard(keys repository.SubmissionKeys, logger *zap.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{keys: keys, logger: logger}
}

// Do runs submit at most once per (caller, route, key). A repeated key returns the recorded
// submission with replayed=true; a repeat while the first call is still running returns
// ErrSubmissionInProgress. An empty key always runs submit.
func (g *IdempotencyGuard) Do(
	ctx context.Context,
	caller domain.Caller,
	route, key string,
	submit func(context.Context) (*domain.Submission, error),
) (sub *domain.Submission, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if g == nil || key == "" {
		sub, err := submit(ctx)
		return sub, false, err
	}
	if len(key) > maxIdempotencyKeyLength {
		return nil, false, domain.Invalid("Idempotency-Key", "key exceeds 128 bytes")
	}

	scoped := caller.OwnerID + ":" + route + ":" + key
	existing, reserved, err := g.keys.Reserve(ctx, scoped)
	if err != nil {
		return nil, false, storeErr("reserve idempotency key", err)
	}
	if !reserved {
		if existing == nil || len(existing.JobIDs) == 0 {
			return nil, false, domain.ErrSubmissionInProgress
		}
		g.logger.Info("Replaying idempotent submission",
			zap.String("route", route),
			zap.Int("jobs", len(existing.JobIDs)),
			zap.Int("failures", len(existing.Failures)),
		)
		return existing, true, nil
	}

	sub, err = submit(ctx)
	if err != nil || sub == nil || len(sub.JobIDs) == 0 {
		if relErr := g.keys.Release(context.WithoutCancel(ctx), scoped); relErr != nil {
			g.logger.Warn("Failed to release idempotency key", zap.Error(relErr), zap.String("route", route))
		}
		return sub, false, err
	}
	if err := g.keys.Complete(context.WithoutCancel(ctx), scoped, sub); err != nil {
		// The jobs exist; a retry with this key would submit again once the reservation expires.
		g.logger.Error("Failed to record idempotent submission", zap.Error(err), zap.String("route", route))
	}
	return sub, false, nil
}
