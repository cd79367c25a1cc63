package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

var _ repository.JobStore = (*jobStore)(nil)

// jobStore implements the correlation operations over one job table.
// table is always one of the package's own constants.
type jobStore struct {
	pool  *pgxpool.Pool
	table string
	kind  domain.JobKind
}

func (s *jobStore) SetCorrelationID(ctx context.Context, id uuid.UUID, correlationID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET correlation_id = $1, updated_at = $2
		WHERE id = $3 AND correlation_id IS NULL AND status = 'PENDING'`, s.table)

	tag, err := s.pool.Exec(ctx, query, correlationID, time.Now().UTC(), id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("postgres: correlation id %q already in use: %w", correlationID, domain.ErrTransitionConflict)
		}
		return fmt.Errorf("postgres: set correlation id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: set correlation id on %s: %w", id, domain.ErrTransitionConflict)
	}
	return nil
}

func (s *jobStore) MarkSubmissionFailed(ctx context.Context, id uuid.UUID, t domain.Transition) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, failure_reason = $2, error_message = $3, updated_at = $4, completed_at = $4
		WHERE id = $5 AND correlation_id IS NULL AND status = 'PENDING'`, s.table)

	tag, err := s.pool.Exec(ctx, query, t.Status, t.FailureReason, t.ErrorMessage, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("postgres: mark submission failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *jobStore) ApplyTransition(ctx context.Context, correlationID string, t domain.Transition) (*domain.JobState, error) {
	// Status and result ref change together, and only while the job is still PENDING.
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, result_ref = $2, failure_reason = $3, error_message = $4,
		    updated_at = $5, completed_at = $5
		WHERE correlation_id = $6 AND status = 'PENDING'
		RETURNING id, owner_id, status, result_ref`, s.table)

	state := &domain.JobState{Kind: s.kind}
	err := s.pool.QueryRow(ctx, query,
		t.Status, t.ResultRef, t.FailureReason, t.ErrorMessage, time.Now().UTC(), correlationID,
	).Scan(&state.ID, &state.OwnerID, &state.Status, &state.ResultRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: apply transition: %w", err)
	}
	return state, nil
}

func (s *jobStore) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.JobState, error) {
	query := fmt.Sprintf(`SELECT id, owner_id, status, result_ref FROM %s WHERE correlation_id = $1`, s.table)

	state := &domain.JobState{Kind: s.kind}
	err := s.pool.QueryRow(ctx, query, correlationID).Scan(&state.ID, &state.OwnerID, &state.Status, &state.ResultRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find by correlation id: %w", err)
	}
	return state, nil
}
