package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/metrics"
	"github.com/Harsh-BH/Lumina/internal/notifier"
)

// Relayer delivers one job event. It reports duplicates instead of delivering them again.
type Relayer interface {
	Execute(ctx context.Context, event *domain.JobEvent) (isDuplicate bool, err error)
}

// WorkerPool manages a fixed-size pool of goroutines that relay job events.
type WorkerPool struct {
	size   int
	events <-chan *domain.JobEventMessage
	relay  Relayer
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new fixed-size worker pool.
func NewWorkerPool(size int, events <-chan *domain.JobEventMessage, relay Relayer, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:   size,
		events: events,
		relay:  relay,
		logger: logger,
	}
}

// Start launches all worker goroutines. Call Stop to wait for them to finish.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("pool_size", p.size))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish their current event and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Worker shutting down", zap.Int("worker_id", id))
			return
		case msg, ok := <-p.events:
			if !ok {
				p.logger.Debug("Event channel closed", zap.Int("worker_id", id))
				return
			}
			p.handle(ctx, id, msg)
		}
	}
}

// handle relays one message and settles it. A panic is recovered per message so the worker
// keeps running and the message is requeued.
func (p *WorkerPool) handle(ctx context.Context, id int, msg *domain.JobEventMessage) {
	event := msg.Event
	settled := false
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker panic recovered",
				zap.Int("worker_id", id),
				zap.String("event_id", event.EventID.String()),
				zap.Any("panic", r),
			)
			if !settled {
				metrics.WorkersActive.Dec()
				p.nack(msg, true)
			}
		}
	}()

	metrics.WorkersActive.Inc()
	start := time.Now()
	isDuplicate, err := p.relay.Execute(ctx, event)
	metrics.RelayDuration.Observe(time.Since(start).Seconds())
	metrics.WorkersActive.Dec()

	settled = true
	if err != nil {
		// Subscriber refusals go to the DLQ; anything else is retried until the queue's
		// delivery limit dead-letters it.
		requeue := !errors.Is(err, notifier.ErrPermanent)
		p.logger.Error("Event relay failed",
			zap.Int("worker_id", id),
			zap.String("event_id", event.EventID.String()),
			zap.String("job_id", event.JobID.String()),
			zap.Bool("requeue", requeue),
			zap.Error(err),
		)
		p.nack(msg, requeue)
		return
	}

	if isDuplicate {
		p.logger.Debug("Duplicate event skipped",
			zap.Int("worker_id", id),
			zap.String("event_id", event.EventID.String()),
		)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		p.logger.Error("Failed to ACK message",
			zap.String("event_id", event.EventID.String()),
			zap.Error(ackErr),
		)
	}
}

func (p *WorkerPool) nack(msg *domain.JobEventMessage, requeue bool) {
	if err := msg.Nack(requeue); err != nil {
		p.logger.Error("Failed to NACK message",
			zap.String("event_id", msg.Event.EventID.String()),
			zap.Error(err),
		)
	}
}
