package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pack is a named set of prompt templates generated against one model.
type Pack struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL1   string    `json:"imageUrl1"`
	ImageURL2   string    `json:"imageUrl2"`
	CreatedAt   time.Time `json:"created_at"`
}

// PackPrompt is one prompt template of a pack.
type PackPrompt struct {
	ID     uuid.UUID `json:"id"`
	PackID uuid.UUID `json:"pack_id"`
	Prompt string    `json:"prompt"`
}

// PackGenerateRequest is the incoming POST /pack/generate payload.
type PackGenerateRequest struct {
	PackID  uuid.UUID `json:"packId" binding:"required"`
	ModelID uuid.UUID `json:"modelId" binding:"required"`
}

// PackFailure reports a template whose submission failed.
type PackFailure struct {
	PromptID uuid.UUID `json:"promptId"`
	Prompt   string    `json:"prompt"`
	Error    string    `json:"error"`
	Err      error     `json:"-"`
}

// PackResult is the partially-completable outcome of a pack fan-out.
type PackResult struct {
	JobIDs   []uuid.UUID   `json:"jobIds"`
	Failures []PackFailure `json:"failures"`
}
