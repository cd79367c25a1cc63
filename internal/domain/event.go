package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobEvent is published once per applied terminal transition.
type JobEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	JobID      uuid.UUID `json:"job_id"`
	Kind       JobKind   `json:"kind"`
	OwnerID    string    `json:"owner_id"`
	Status     JobStatus `json:"status"`
	ResultRef  string    `json:"result_ref,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// JobEventMessage wraps a consumed event with its broker acknowledgement callbacks.
type JobEventMessage struct {
	Event *JobEvent
	Ack   func() error
	Nack  func(requeue bool) error
}
