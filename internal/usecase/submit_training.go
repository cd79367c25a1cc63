package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/provider"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// SubmitTrainingUsecase handles model-training submissions.
type SubmitTrainingUsecase struct {
	repo    repository.TrainingRepository
	gateway provider.Gateway
	logger  *zap.Logger
}

// NewSubmitTrainingUsecase creates a new SubmitTrainingUsecase.
func NewSubmitTrainingUsecase(repo repository.TrainingRepository, gateway provider.Gateway, logger *zap.Logger) *SubmitTrainingUsecase {
	return &SubmitTrainingUsecase{
		repo:    repo,
		gateway: gateway,
		logger:  logger,
	}
}

// Execute validates the input, creates a PENDING training job, submits it to the provider and
// stores the returned correlation ID on the job.
func (uc *SubmitTrainingUsecase) Execute(ctx context.Context, caller domain.Caller, in domain.TrainingInput) (*domain.SubmitResponse, error) {
	if !caller.Valid() {
		return nil, domain.Invalid("caller", "caller identity is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	jobID, err := newJobID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &domain.TrainingJob{
		ID:                jobID,
		OwnerID:           caller.OwnerID,
		Attributes:        in.Attributes,
		SourceArtifactRef: in.SourceArtifactRef,
		Status:            domain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		uc.logger.Error("Failed to create training job in database", zap.Error(err), zap.String("job_id", jobID.String()))
		return nil, storeErr("create training job", err)
	}

	req := provider.TrainingRequest{
		ZipURL:      in.SourceArtifactRef,
		TriggerWord: in.Attributes.Name,
	}
	submit := func(ctx context.Context) (string, error) {
		return uc.gateway.SubmitTraining(ctx, req)
	}
	if err := correlate(ctx, uc.repo, domain.KindTraining, jobID, submit, uc.logger); err != nil {
		return nil, err
	}

	return &domain.SubmitResponse{JobID: jobID, Status: domain.StatusPending}, nil
}
