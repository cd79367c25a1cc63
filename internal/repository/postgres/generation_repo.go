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

const generationTable = "generation_jobs"

var _ repository.GenerationRepository = (*pgGenerationRepo)(nil)

type pgGenerationRepo struct {
	*jobStore
	pool *pgxpool.Pool
}

// NewPostgresGenerationRepository creates a new PostgreSQL-backed generation job repository.
func NewPostgresGenerationRepository(pool *pgxpool.Pool) repository.GenerationRepository {
	return &pgGenerationRepo{
		jobStore: &jobStore{pool: pool, table: generationTable, kind: domain.KindGeneration},
		pool:     pool,
	}
}

const generationColumns = `
	id, owner_id, prompt, model_id, pack_id, correlation_id, status, result_ref,
	failure_reason, error_message, created_at, updated_at, completed_at`

func (r *pgGenerationRepo) Create(ctx context.Context, job *domain.GenerationJob) error {
	query := `
		INSERT INTO generation_jobs (id, owner_id, prompt, model_id, pack_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, query,
		job.ID, job.OwnerID, job.Prompt, job.ModelRef, job.PackID, job.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("postgres: create generation job: %w", err)
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (r *pgGenerationRepo) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.GenerationJob, error) {
	query := `SELECT ` + generationColumns + ` FROM generation_jobs WHERE id = $1 AND owner_id = $2`

	job, err := scanGenerationJob(r.pool.QueryRow(ctx, query, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get generation job by id: %w", err)
	}
	return job, nil
}

func (r *pgGenerationRepo) List(ctx context.Context, ownerID string, filter domain.ImageFilter) ([]*domain.GenerationJob, error) {
	filter = filter.Normalize()

	args := []any{ownerID}
	query := `SELECT ` + generationColumns + ` FROM generation_jobs WHERE owner_id = $1`
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		query += fmt.Sprintf(` AND id = ANY($%d)`, len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list generation jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.GenerationJob, 0, filter.Limit)
	for rows.Next() {
		job, err := scanGenerationJob(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan generation job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list generation jobs: %w", err)
	}
	return jobs, nil
}

func scanGenerationJob(row pgx.Row) (*domain.GenerationJob, error) {
	job := &domain.GenerationJob{}
	err := row.Scan(
		&job.ID, &job.OwnerID, &job.Prompt, &job.ModelRef, &job.PackID, &job.CorrelationID,
		&job.Status, &job.ResultImageRef, &job.FailureReason, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
