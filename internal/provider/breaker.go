package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
)

// BreakerState is the state of the gateway circuit breaker.
type BreakerState int

const (
	Closed   BreakerState = iota // Normal operation
	Open                         // Failing fast
	HalfOpen                     // Probing
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for the gateway circuit breaker.
type BreakerConfig struct {
	Threshold int           // Consecutive unavailability errors before opening (default: 5)
	Cooldown  time.Duration // Time before half-open (default: 30s)
}

// Guarded fails fast with domain.ErrProviderUnavailable while the provider keeps failing.
// Rejections are answers from a healthy provider and do not count as failures.
type Guarded struct {
	next   Gateway
	logger *zap.Logger

	mu          sync.Mutex
	state       BreakerState
	failures    int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	probing     bool
}

// NewGuarded wraps next with a circuit breaker.
func NewGuarded(next Gateway, cfg BreakerConfig, logger *zap.Logger) *Guarded {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Guarded{
		next:      next,
		logger:    logger,
		state:     Closed,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
	}
}

var _ Gateway = (*Guarded)(nil)

var errCircuitOpen = errors.New("circuit open")

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) SubmitTraining(ctx context.Context, req TrainingRequest) (string, error) {
	return g.call(func() (string, error) { return g.next.SubmitTraining(ctx, req) })
}

func (g *Guarded) SubmitGeneration(ctx context.Context, req GenerationRequest) (string, error) {
	return g.call(func() (string, error) { return g.next.SubmitGeneration(ctx, req) })
}

// State returns the current breaker state.
func (g *Guarded) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guarded) call(fn func() (string, error)) (string, error) {
	if !g.allow() {
		return "", Unavailable(errCircuitOpen)
	}
	id, err := fn()
	if err != nil && errors.Is(err, domain.ErrProviderUnavailable) {
		g.recordFailure()
		return "", err
	}
	g.recordSuccess()
	return id, err
}

func (g *Guarded) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Open:
		if time.Since(g.lastFailure) <= g.cooldown {
			return false
		}
		g.state = HalfOpen
		g.probing = true
		g.logger.Info("Provider circuit half-open, probing", zap.String("provider", g.next.Name()))
		return true
	case HalfOpen:
		// One probe at a time.
		if g.probing {
			return false
		}
		g.probing = true
		return true
	default:
		return true
	}
}

func (g *Guarded) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Closed {
		g.logger.Info("Provider circuit closed", zap.String("provider", g.next.Name()))
	}
	g.failures = 0
	g.state = Closed
	g.probing = false
}

func (g *Guarded) recordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures++
	g.lastFailure = time.Now()
	g.probing = false

	if g.state == HalfOpen || g.failures >= g.threshold {
		if g.state != Open {
			g.logger.Warn("Provider circuit opened",
				zap.String("provider", g.next.Name()),
				zap.Int("consecutive_failures", g.failures),
			)
		}
		g.state = Open
	}
}
