package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// QueryUsecase serves the read side: packs, images and models.
type QueryUsecase struct {
	models repository.TrainingRepository
	images repository.GenerationRepository
	packs  repository.PackRepository
	logger *zap.Logger
}

// NewQueryUsecase creates a new QueryUsecase.
func NewQueryUsecase(
	models repository.TrainingRepository,
	images repository.GenerationRepository,
	packs repository.PackRepository,
	logger *zap.Logger,
) *QueryUsecase {
	return &QueryUsecase{
		models: models,
		images: images,
		packs:  packs,
		logger: logger,
	}
}

// ListPacks returns the whole pack catalog.
func (uc *QueryUsecase) ListPacks(ctx context.Context) ([]*domain.Pack, error) {
	packs, err := uc.packs.ListPacks(ctx)
	if err != nil {
		return nil, storeErr("list packs", err)
	}
	return packs, nil
}

// ListImages returns the caller's generation jobs in any status, newest first.
func (uc *QueryUsecase) ListImages(ctx context.Context, caller domain.Caller, filter domain.ImageFilter) ([]*domain.GenerationJob, error) {
	if !caller.Valid() {
		return nil, domain.Invalid("caller", "caller identity is required")
	}
	images, err := uc.images.List(ctx, caller.OwnerID, filter.Normalize())
	if err != nil {
		return nil, storeErr("list images", err)
	}
	return images, nil
}

// GetImage returns one of the caller's generation jobs.
func (uc *QueryUsecase) GetImage(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.GenerationJob, error) {
	job, err := uc.images.GetByID(ctx, caller.OwnerID, id)
	if errors.Is(err, domain.ErrJobNotFound) {
		uc.logger.Debug("Image not found", zap.String("job_id", id.String()))
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, storeErr("get image", err)
	}
	return job, nil
}

// ListModels returns the caller's training jobs, newest first.
func (uc *QueryUsecase) ListModels(ctx context.Context, caller domain.Caller) ([]*domain.TrainingJob, error) {
	models, err := uc.models.ListByOwner(ctx, caller.OwnerID)
	if err != nil {
		return nil, storeErr("list models", err)
	}
	if models == nil {
		models = []*domain.TrainingJob{}
	}
	return models, nil
}

// TrainingOptions lists the accepted training attribute values.
func (uc *QueryUsecase) TrainingOptions() domain.TrainingOptions {
	return domain.TrainingOptions{
		Types:       domain.ModelTypes,
		Ethnicities: domain.Ethnicities,
		EyeColors:   domain.EyeColors,
	}
}
