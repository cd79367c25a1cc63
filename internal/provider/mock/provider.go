package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Harsh-BH/Lumina/internal/provider"
)

// Provider satisfies provider.Gateway for testing.
type Provider struct {
	SubmitTrainingFn   func(ctx context.Context, req provider.TrainingRequest) (string, error)
	SubmitGenerationFn func(ctx context.Context, req provider.GenerationRequest) (string, error)

	mu              sync.Mutex
	seq             atomic.Int64
	TrainingCalls   []provider.TrainingRequest
	GenerationCalls []provider.GenerationRequest
}

var _ provider.Gateway = (*Provider)(nil)

// NewProvider returns a Provider that accepts every job, issuing corr-1, corr-2, ...
func NewProvider() *Provider {
	return &Provider{}
}

// NewFailingProvider returns a Provider that always returns err.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		SubmitTrainingFn: func(context.Context, provider.TrainingRequest) (string, error) {
			return "", err
		},
		SubmitGenerationFn: func(context.Context, provider.GenerationRequest) (string, error) {
			return "", err
		},
	}
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) SubmitTraining(ctx context.Context, req provider.TrainingRequest) (string, error) {
	p.mu.Lock()
	p.TrainingCalls = append(p.TrainingCalls, req)
	p.mu.Unlock()
	if p.SubmitTrainingFn != nil {
		return p.SubmitTrainingFn(ctx, req)
	}
	return p.next(), nil
}

func (p *Provider) SubmitGeneration(ctx context.Context, req provider.GenerationRequest) (string, error) {
	p.mu.Lock()
	p.GenerationCalls = append(p.GenerationCalls, req)
	p.mu.Unlock()
	if p.SubmitGenerationFn != nil {
		return p.SubmitGenerationFn(ctx, req)
	}
	return p.next(), nil
}

// Calls returns the number of submissions of both kinds.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TrainingCalls) + len(p.GenerationCalls)
}

func (p *Provider) next() string {
	return fmt.Sprintf("corr-%d", p.seq.Add(1))
}
