package domain

import (
	"strings"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a training or generation job.
type JobStatus string

const (
	StatusPending   JobStatus = "PENDING"
	StatusCompleted JobStatus = "COMPLETED"
	StatusFailed    JobStatus = "FAILED"
)

// IsTerminal returns true if the status has no outgoing transition.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FailureReason distinguishes jobs the provider never accepted from jobs the provider failed.
type FailureReason string

const (
	ReasonSubmissionRejected    FailureReason = "SUBMISSION_REJECTED"
	ReasonSubmissionUnavailable FailureReason = "SUBMISSION_UNAVAILABLE"
	ReasonProviderFailed        FailureReason = "PROVIDER_FAILED"
)

// JobKind namespaces correlation IDs. Training and generation IDs never share a space.
type JobKind string

const (
	KindTraining   JobKind = "training"
	KindGeneration JobKind = "generation"
)

// IsValid checks if the kind is known.
func (k JobKind) IsValid() bool {
	return k == KindTraining || k == KindGeneration
}

// Caller is the authenticated identity on whose behalf an operation runs.
type Caller struct {
	OwnerID string
}

// Valid reports whether the caller carries an identity.
func (c Caller) Valid() bool {
	return strings.TrimSpace(c.OwnerID) != ""
}

// JobState is the kind-agnostic view of a job used during reconciliation.
type JobState struct {
	ID        uuid.UUID
	Kind      JobKind
	OwnerID   string
	Status    JobStatus
	ResultRef *string
}

// Transition describes a terminal write. ResultRef and Status are written together.
type Transition struct {
	Status        JobStatus
	ResultRef     *string
	FailureReason *FailureReason
	ErrorMessage  *string
}

// Completed builds the Pending -> Completed transition.
func Completed(resultRef string) Transition {
	return Transition{Status: StatusCompleted, ResultRef: &resultRef}
}

// Failed builds a Pending -> Failed transition.
func Failed(reason FailureReason, message string) Transition {
	t := Transition{Status: StatusFailed, FailureReason: &reason}
	if message != "" {
		t.ErrorMessage = &message
	}
	return t
}

// Submission is what one submission request created: job IDs in order, plus the pack templates
// that failed. It is what an Idempotency-Key replays.
type Submission struct {
	JobIDs   []uuid.UUID   `json:"jobIds"`
	Failures []PackFailure `json:"failures,omitempty"`
}
