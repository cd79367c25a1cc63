package domain

import "errors"

var (
	// ErrValidation is returned for malformed or missing input. It is rejected before any state is created.
	ErrValidation = errors.New("invalid request")

	// ErrProviderUnavailable is returned when the inference provider cannot be reached in time.
	ErrProviderUnavailable = errors.New("inference provider is currently unavailable")

	// ErrProviderRejected is returned when the inference provider refuses a job.
	ErrProviderRejected = errors.New("inference provider rejected the job")

	// ErrModelNotReady is returned when generation targets a model whose training has not completed.
	ErrModelNotReady = errors.New("model is not ready for generation")

	// ErrPackNotFound is returned when a pack has no prompt templates.
	ErrPackNotFound = errors.New("pack not found")

	// ErrJobNotFound is returned when a job cannot be found by ID or correlation ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrTransitionConflict is returned when a terminal job receives a contradicting outcome.
	ErrTransitionConflict = errors.New("job already reached a different terminal state")

	// ErrStoreUnavailable is returned when the database is unreachable. Safe to retry.
	ErrStoreUnavailable = errors.New("job store is currently unavailable")

	// ErrSubmissionInProgress is returned when an idempotency key is reused while its first submission is in flight.
	ErrSubmissionInProgress = errors.New("a submission with this idempotency key is already in progress")
)

// ValidationError reports which input field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets callers classify with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
