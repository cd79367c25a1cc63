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

const trainingTable = "training_jobs"

// Ensure pgTrainingRepo implements repository.TrainingRepository.
var _ repository.TrainingRepository = (*pgTrainingRepo)(nil)

type pgTrainingRepo struct {
	*jobStore
	pool *pgxpool.Pool
}

// NewPostgresTrainingRepository creates a new PostgreSQL-backed training job repository.
func NewPostgresTrainingRepository(pool *pgxpool.Pool) repository.TrainingRepository {
	return &pgTrainingRepo{
		jobStore: &jobStore{pool: pool, table: trainingTable, kind: domain.KindTraining},
		pool:     pool,
	}
}

const trainingColumns = `
	id, owner_id, name, type, age, ethnicity, eye_color, bald, source_artifact_ref,
	correlation_id, status, result_ref, failure_reason, error_message,
	created_at, updated_at, completed_at`

func (r *pgTrainingRepo) Create(ctx context.Context, job *domain.TrainingJob) error {
	query := `
		INSERT INTO training_jobs (id, owner_id, name, type, age, ethnicity, eye_color, bald,
		                           source_artifact_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	now := time.Now().UTC()
	a := job.Attributes
	_, err := r.pool.Exec(ctx, query,
		job.ID, job.OwnerID, a.Name, a.Type, a.Age, a.Ethnicity, a.EyeColor, a.Bald,
		job.SourceArtifactRef, job.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("postgres: create training job: %w", err)
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (r *pgTrainingRepo) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.TrainingJob, error) {
	query := `SELECT ` + trainingColumns + ` FROM training_jobs WHERE id = $1 AND owner_id = $2`

	job, err := scanTrainingJob(r.pool.QueryRow(ctx, query, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get training job by id: %w", err)
	}
	return job, nil
}

func (r *pgTrainingRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.TrainingJob, error) {
	query := `SELECT ` + trainingColumns + `
		FROM training_jobs
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list training jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.TrainingJob
	for rows.Next() {
		job, err := scanTrainingJob(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan training job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list training jobs: %w", err)
	}
	return jobs, nil
}

func scanTrainingJob(row pgx.Row) (*domain.TrainingJob, error) {
	job := &domain.TrainingJob{}
	a := &job.Attributes
	err := row.Scan(
		&job.ID, &job.OwnerID, &a.Name, &a.Type, &a.Age, &a.Ethnicity, &a.EyeColor, &a.Bald,
		&job.SourceArtifactRef, &job.CorrelationID, &job.Status, &job.ResultArtifactRef,
		&job.FailureReason, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
