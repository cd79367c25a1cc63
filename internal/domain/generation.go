package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxPromptLength = 2000

// GenerationJob is a single-image generation job throughout its lifecycle.
type GenerationJob struct {
	ID             uuid.UUID      `json:"id"`
	OwnerID        string         `json:"owner_id"`
	Prompt         string         `json:"prompt"`
	ModelRef       uuid.UUID      `json:"model_id"`
	PackID         *uuid.UUID     `json:"pack_id,omitempty"`
	CorrelationID  *string        `json:"correlation_id,omitempty"`
	Status         JobStatus      `json:"status"`
	ResultImageRef *string        `json:"image_url,omitempty"`
	FailureReason  *FailureReason `json:"failure_reason,omitempty"`
	ErrorMessage   *string        `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// GenerationInput is the input of a single-image generation submission.
type GenerationInput struct {
	Prompt   string
	ModelRef uuid.UUID
}

// Validate checks the prompt and model reference.
func (in GenerationInput) Validate() error {
	if in.ModelRef == uuid.Nil {
		return Invalid("modelId", "modelId is required")
	}
	return validatePrompt(in.Prompt)
}

func validatePrompt(prompt string) error {
	p := strings.TrimSpace(prompt)
	if p == "" {
		return Invalid("prompt", "prompt cannot be empty")
	}
	if utf8.RuneCountInString(p) > maxPromptLength {
		return Invalid("prompt", "prompt exceeds 2000 characters")
	}
	return nil
}

// GenerateRequest is the incoming POST /ai/generate payload.
type GenerateRequest struct {
	Prompt  string    `json:"prompt" binding:"required"`
	ModelID uuid.UUID `json:"modelId" binding:"required"`
}

// ImageFilter scopes a bulk image listing. The owner filter is always applied.
type ImageFilter struct {
	IDs    []uuid.UUID
	Limit  int
	Offset int
}

const (
	DefaultImageLimit = 10
	MaxImageLimit     = 100
)

// Normalize applies the default page size and bounds.
func (f ImageFilter) Normalize() ImageFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultImageLimit
	}
	if f.Limit > MaxImageLimit {
		f.Limit = MaxImageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// SubmitResponse is returned after a successful single submission.
type SubmitResponse struct {
	JobID  uuid.UUID `json:"jobId"`
	Status JobStatus `json:"status"`
}
