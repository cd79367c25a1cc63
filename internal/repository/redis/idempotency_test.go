package redis

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Harsh-BH/Lumina/internal/domain"
)

func TestEncodeDecodeSubmission_PreservesOrderAndFailures(t *testing.T) {
	sub := &domain.Submission{
		JobIDs: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
		Failures: []domain.PackFailure{
			{PromptID: uuid.New(), Prompt: "rooftop", Error: "inference provider is currently unavailable"},
		},
	}

	raw, err := encodeSubmission(sub)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	got, err := decodeSubmission(raw)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(got.JobIDs) != len(sub.JobIDs) {
		t.Fatalf("expected %d ids, got %d", len(sub.JobIDs), len(got.JobIDs))
	}
	for i := range sub.JobIDs {
		if got.JobIDs[i] != sub.JobIDs[i] {
			t.Errorf("id %d: expected %s, got %s", i, sub.JobIDs[i], got.JobIDs[i])
		}
	}
	if len(got.Failures) != 1 || got.Failures[0].Prompt != "rooftop" || got.Failures[0].PromptID != sub.Failures[0].PromptID {
		t.Errorf("expected the failure to survive, got %+v", got.Failures)
	}
}

func TestDecodeSubmission_NoIDs(t *testing.T) {
	got, err := decodeSubmission(`{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.JobIDs == nil || len(got.JobIDs) != 0 {
		t.Errorf("expected an empty id list, got %v", got.JobIDs)
	}
}

func TestDecodeSubmission_RejectsGarbage(t *testing.T) {
	if _, err := decodeSubmission(`{"jobIds":["not-a-uuid"]}`); err == nil {
		t.Error("expected error for malformed id")
	}
}
