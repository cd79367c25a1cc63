package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/provider"
	"github.com/Harsh-BH/Lumina/internal/provider/mock"
)

func TestGuarded_OpensAfterThreshold(t *testing.T) {
	inner := mock.NewFailingProvider(provider.Unavailable(errors.New("HTTP 503")))
	g := provider.NewGuarded(inner, provider.BreakerConfig{Threshold: 2, Cooldown: time.Hour}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := g.SubmitTraining(ctx, provider.TrainingRequest{}); !errors.Is(err, domain.ErrProviderUnavailable) {
			t.Fatalf("call %d: expected unavailable, got %v", i, err)
		}
	}
	if g.State() != provider.Open {
		t.Fatalf("expected open, got %s", g.State())
	}

	// Open circuit fails fast without reaching the provider.
	if _, err := g.SubmitGeneration(ctx, provider.GenerationRequest{}); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
	if inner.Calls() != 2 {
		t.Errorf("expected 2 provider calls, got %d", inner.Calls())
	}
}

func TestGuarded_RejectionsDoNotTrip(t *testing.T) {
	inner := mock.NewFailingProvider(&provider.RejectedError{StatusCode: 400, Reason: "bad prompt"})
	g := provider.NewGuarded(inner, provider.BreakerConfig{Threshold: 1, Cooldown: time.Hour}, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := g.SubmitGeneration(context.Background(), provider.GenerationRequest{}); !errors.Is(err, domain.ErrProviderRejected) {
			t.Fatalf("expected rejection, got %v", err)
		}
	}
	if g.State() != provider.Closed {
		t.Errorf("expected closed, got %s", g.State())
	}
}

func TestGuarded_HalfOpenProbeCloses(t *testing.T) {
	fail := true
	inner := mock.NewProvider()
	inner.SubmitTrainingFn = func(ctx context.Context, req provider.TrainingRequest) (string, error) {
		if fail {
			return "", provider.Unavailable(errors.New("down"))
		}
		return "corr-ok", nil
	}
	g := provider.NewGuarded(inner, provider.BreakerConfig{Threshold: 1, Cooldown: 10 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	_, _ = g.SubmitTraining(ctx, provider.TrainingRequest{})
	if g.State() != provider.Open {
		t.Fatalf("expected open, got %s", g.State())
	}

	time.Sleep(20 * time.Millisecond)
	fail = false
	id, err := g.SubmitTraining(ctx, provider.TrainingRequest{})
	if err != nil || id != "corr-ok" {
		t.Fatalf("expected probe to succeed, got %q %v", id, err)
	}
	if g.State() != provider.Closed {
		t.Errorf("expected closed, got %s", g.State())
	}
}
