package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Outcome is the result a provider callback reports.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Callback is a provider completion notification, already routed to a kind.
type Callback struct {
	Kind          JobKind
	CorrelationID string
	Outcome       Outcome
	ResultRef     string
	Error         string
}

// Validate checks that the callback can be reconciled.
func (c *Callback) Validate() error {
	if !c.Kind.IsValid() {
		return Invalid("kind", "unknown job kind "+string(c.Kind))
	}
	if strings.TrimSpace(c.CorrelationID) == "" {
		return Invalid("correlationId", "correlationId is required")
	}
	switch c.Outcome {
	case OutcomeSuccess:
		if strings.TrimSpace(c.ResultRef) == "" {
			return Invalid("resultRef", "resultRef is required for a success outcome")
		}
	case OutcomeFailure:
	default:
		return Invalid("outcome", "outcome must be success or failure")
	}
	return nil
}

// Transition returns the terminal write this callback asks for.
func (c *Callback) Transition() Transition {
	if c.Outcome == OutcomeSuccess {
		return Completed(strings.TrimSpace(c.ResultRef))
	}
	return Failed(ReasonProviderFailed, c.Error)
}

// Matches reports whether a stored terminal state is the one this callback would produce.
func (c *Callback) Matches(state *JobState) bool {
	want := c.Transition()
	if state.Status != want.Status {
		return false
	}
	if want.Status == StatusCompleted {
		return state.ResultRef != nil && *state.ResultRef == *want.ResultRef
	}
	return true
}

// WebhookRequest is the incoming POST /webhook/{train,generate} payload.
type WebhookRequest struct {
	CorrelationID string  `json:"correlationId" binding:"required"`
	Outcome       Outcome `json:"outcome" binding:"required"`
	ResultRef     string  `json:"resultRef"`
	Error         string  `json:"error"`
}

// ReconcileResult classifies what a callback did to the store.
type ReconcileResult string

const (
	ReconcileApplied   ReconcileResult = "applied"
	ReconcileDuplicate ReconcileResult = "duplicate"
	ReconcileConflict  ReconcileResult = "conflict"
	ReconcileUnmatched ReconcileResult = "unmatched"
)

// Reconciliation is the outcome of applying one callback.
type Reconciliation struct {
	Result ReconcileResult `json:"result"`
	JobID  uuid.UUID       `json:"jobId,omitempty"`
	Status JobStatus       `json:"status,omitempty"`
}
