package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/provider"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// SubmitGenerationUsecase handles single-image generation submissions.
type SubmitGenerationUsecase struct {
	models  repository.TrainingRepository
	repo    repository.GenerationRepository
	gateway provider.Gateway
	logger  *zap.Logger
}

// NewSubmitGenerationUsecase creates a new SubmitGenerationUsecase.
func NewSubmitGenerationUsecase(
	models repository.TrainingRepository,
	repo repository.GenerationRepository,
	gateway provider.Gateway,
	logger *zap.Logger,
) *SubmitGenerationUsecase {
	return &SubmitGenerationUsecase{
		models:  models,
		repo:    repo,
		gateway: gateway,
		logger:  logger,
	}
}

// Execute checks that the caller's model is ready, then runs the two-phase submission.
func (uc *SubmitGenerationUsecase) Execute(ctx context.Context, caller domain.Caller, in domain.GenerationInput) (*domain.SubmitResponse, error) {
	if !caller.Valid() {
		return nil, domain.Invalid("caller", "caller identity is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	model, err := uc.readyModel(ctx, caller, in.ModelRef)
	if err != nil {
		return nil, err
	}

	jobID, err := uc.submit(ctx, caller, in.Prompt, model, nil)
	if err != nil {
		return nil, err
	}
	return &domain.SubmitResponse{JobID: jobID, Status: domain.StatusPending}, nil
}

// readyModel returns the caller's model if it finished training with a result.
// Missing, foreign and unfinished models are all ErrModelNotReady.
func (uc *SubmitGenerationUsecase) readyModel(ctx context.Context, caller domain.Caller, modelID uuid.UUID) (*domain.TrainingJob, error) {
	model, err := uc.models.GetByID(ctx, caller.OwnerID, modelID)
	if errors.Is(err, domain.ErrJobNotFound) {
		return nil, domain.ErrModelNotReady
	}
	if err != nil {
		return nil, storeErr("load model", err)
	}
	if !model.Ready() {
		uc.logger.Debug("Model not ready for generation",
			zap.String("model_id", modelID.String()),
			zap.String("status", string(model.Status)),
		)
		return nil, domain.ErrModelNotReady
	}
	return model, nil
}

func (uc *SubmitGenerationUsecase) submit(
	ctx context.Context,
	caller domain.Caller,
	prompt string,
	model *domain.TrainingJob,
	packID *uuid.UUID,
) (uuid.UUID, error) {
	jobID, err := newJobID()
	if err != nil {
		return uuid.Nil, err
	}

	prompt = strings.TrimSpace(prompt)
	now := time.Now().UTC()
	job := &domain.GenerationJob{
		ID:        jobID,
		OwnerID:   caller.OwnerID,
		Prompt:    prompt,
		ModelRef:  model.ID,
		PackID:    packID,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		uc.logger.Error("Failed to create generation job in database", zap.Error(err), zap.String("job_id", jobID.String()))
		return uuid.Nil, storeErr("create generation job", err)
	}

	req := provider.GenerationRequest{
		Prompt:   prompt,
		ModelRef: *model.ResultArtifactRef,
	}
	submit := func(ctx context.Context) (string, error) {
		return uc.gateway.SubmitGeneration(ctx, req)
	}
	if err := correlate(ctx, uc.repo, domain.KindGeneration, jobID, submit, uc.logger); err != nil {
		return uuid.Nil, err
	}
	return jobID, nil
}
