package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/metrics"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// SubmitPackUsecase fans one pack out into a generation job per prompt template.
type SubmitPackUsecase struct {
	packs       repository.PackRepository
	generations *SubmitGenerationUsecase
	concurrency int
	logger      *zap.Logger
}

// NewSubmitPackUsecase creates a new SubmitPackUsecase. At most concurrency templates are
// submitted at once.
func NewSubmitPackUsecase(packs repository.PackRepository, generations *SubmitGenerationUsecase, concurrency int, logger *zap.Logger) *SubmitPackUsecase {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SubmitPackUsecase{
		packs:       packs,
		generations: generations,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Execute submits every template of the pack against the caller's model. Templates fail
// independently; the result lists created job IDs in template order next to the failures.
func (uc *SubmitPackUsecase) Execute(ctx context.Context, caller domain.Caller, req *domain.PackGenerateRequest) (*domain.PackResult, error) {
	if !caller.Valid() {
		return nil, domain.Invalid("caller", "caller identity is required")
	}
	if req.PackID == uuid.Nil {
		return nil, domain.Invalid("packId", "packId is required")
	}
	if req.ModelID == uuid.Nil {
		return nil, domain.Invalid("modelId", "modelId is required")
	}

	prompts, err := uc.packs.ListPrompts(ctx, req.PackID)
	if err != nil {
		return nil, storeErr("list pack prompts", err)
	}
	if len(prompts) == 0 {
		return nil, domain.ErrPackNotFound
	}

	// Readiness is checked once for the whole pack.
	model, err := uc.generations.readyModel(ctx, caller, req.ModelID)
	if err != nil {
		return nil, err
	}

	jobIDs := make([]uuid.UUID, len(prompts))
	errs := make([]error, len(prompts))
	packID := req.PackID

	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for i, p := range prompts {
		g.Go(func() error {
			id, err := uc.generations.submit(ctx, caller, p.Prompt, model, &packID)
			if err != nil {
				errs[i] = err
				return nil
			}
			jobIDs[i] = id
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.PackResult{
		JobIDs:   make([]uuid.UUID, 0, len(prompts)),
		Failures: []domain.PackFailure{},
	}
	for i, p := range prompts {
		if errs[i] != nil {
			result.Failures = append(result.Failures, domain.PackFailure{
				PromptID: p.ID,
				Prompt:   p.Prompt,
				Error:    errs[i].Error(),
				Err:      errs[i],
			})
			metrics.PackItems.WithLabelValues("failed").Inc()
			continue
		}
		result.JobIDs = append(result.JobIDs, jobIDs[i])
		metrics.PackItems.WithLabelValues("submitted").Inc()
	}

	uc.logger.Info("Pack fan-out finished",
		zap.String("pack_id", req.PackID.String()),
		zap.String("model_id", req.ModelID.String()),
		zap.Int("submitted", len(result.JobIDs)),
		zap.Int("failed", len(result.Failures)),
	)

	if len(result.JobIDs) == 0 {
		return result, fmt.Errorf("pack %s: no template was submitted: %w", req.PackID, result.Failures[0].Err)
	}
	return result, nil
}
