// Package provider defines the outbound gateway to the asynchronous inference provider.
package provider

import (
	"context"
	"fmt"

	"github.com/Harsh-BH/Lumina/internal/domain"
)

// Gateway submits jobs to the inference provider. A successful call only guarantees that the
// provider accepted the job; the outcome arrives later on our webhook routes.
// Errors wrap domain.ErrProviderUnavailable or domain.ErrProviderRejected.
type Gateway interface {
	SubmitTraining(ctx context.Context, req TrainingRequest) (string, error)
	SubmitGeneration(ctx context.Context, req GenerationRequest) (string, error)
	Name() string
}

// TrainingRequest asks the provider to train a LoRA from a zip of images.
type TrainingRequest struct {
	ZipURL      string
	TriggerWord string
}

// GenerationRequest asks the provider to render a prompt with a trained LoRA.
type GenerationRequest struct {
	Prompt   string
	ModelRef string
}

var (
	// ErrUnavailable covers network failures, 5xx responses, timeouts and an open circuit.
	ErrUnavailable = domain.ErrProviderUnavailable
	// ErrRejected covers the provider refusing the job outright.
	ErrRejected = domain.ErrProviderRejected
)

// RejectedError carries the provider's reason for refusing a job.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("provider rejected job (HTTP %d): %s", e.StatusCode, e.Reason)
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// Unavailable wraps cause as a domain.ErrProviderUnavailable.
func Unavailable(cause error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, cause)
}
