package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bkaradag/notify-relay/internal/domain"
	"github.com/bkaradag/notify-relay/internal/observability"
	"github.com/bkaradag/notify-relay/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minWorkerConcurrency = 1
	defaultMaxRetries    = 3
	defaultBaseDelay     = time.Second
	maxRetryDelay        = 60 * time.Second

	reasonRetryExhausted   = "retry_exhausted"
	reasonPermanentFailure = "permanent_failure"
)

// Processor is the orchestrator contract the worker depends on.
type Processor interface {
	Process(ctx context.Context, req queue.NotificationRequest) domain.Outcome
}

// Worker pulls delivery requests from the broker and resolves every
// orchestrator outcome into exactly one queue action: ack, delayed
// republish, or dead-letter. All retry state travels in the message.
type Worker struct {
	consumer    queue.Consumer
	publisher   queue.Publisher
	processor   Processor
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	maxRetries  int
	baseDelay   time.Duration
}

func NewWorker(
	consumer queue.Consumer,
	publisher queue.Publisher,
	processor Processor,
	concurrency int,
	maxRetries int,
	baseDelay time.Duration,
	logger *zap.Logger,
) (*Worker, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		consumer:    consumer,
		publisher:   publisher,
		processor:   processor,
		logger:      logger,
		concurrency: concurrency,
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
	}, nil
}

func (w *Worker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes the work queue until context cancellation. Each worker slot
// processes one message fully before fetching the next; with a per-slot
// prefetch of one, the pool size bounds the unacked in-flight total.
func (w *Worker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.WorkQueue),
			)

			err := w.consumer.Consume(groupCtx, queue.WorkQueue, w.handleMessage)
			if err != nil {
				w.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

// handleMessage returns nil when the message has been fully resolved (the
// consumer then acks) and an error only when a queue action itself failed, so
// the broker redelivers and the action is retried.
func (w *Worker) handleMessage(ctx context.Context, raw []byte, req queue.NotificationRequest) error {
	if w.metrics != nil {
		w.metrics.IncWorkerInFlight()
		defer w.metrics.DecWorkerInFlight()
	}

	outcome := w.processor.Process(ctx, req)
	if w.metrics != nil {
		w.metrics.IncDelivery(outcome.Kind.String())
	}

	switch outcome.Kind {
	case domain.OutcomeDelivered:
		return nil

	case domain.OutcomePermanent:
		return w.deadLetter(ctx, raw, req, reasonPermanentFailure)

	case domain.OutcomeRetryable:
		if req.RedeliveryCount >= w.maxRetries {
			return w.deadLetter(ctx, raw, req, reasonRetryExhausted)
		}

		delay := w.computeRetryDelay(req.RedeliveryCount)
		if err := w.publisher.PublishDelayed(ctx, req.NextRedelivery(), delay); err != nil {
			return fmt.Errorf("failed to schedule redelivery: %w", err)
		}
		if w.metrics != nil {
			w.metrics.IncRetryScheduled()
		}
		w.logger.Info("redelivery scheduled",
			zap.String("notificationId", req.NotificationID),
			zap.Duration("delay", delay),
			zap.Int("redeliveryCount", req.RedeliveryCount+1),
		)
		return nil

	default:
		return fmt.Errorf("unknown outcome kind %q", outcome.Kind)
	}
}

// deadLetter publishes the original body unchanged before the ack so a crash
// between the two never drops the message.
func (w *Worker) deadLetter(ctx context.Context, raw []byte, req queue.NotificationRequest, reason string) error {
	if err := w.publisher.PublishDeadLetter(ctx, raw); err != nil {
		return fmt.Errorf("failed to dead-letter message: %w", err)
	}

	if w.metrics != nil {
		w.metrics.IncDeadLettered(reason)
	}
	w.logger.Warn("message dead-lettered",
		zap.String("notificationId", req.NotificationID),
		zap.String("reason", reason),
		zap.Int("redeliveryCount", req.RedeliveryCount),
	)
	return nil
}

// computeRetryDelay returns baseDelay * 2^redeliveryCount, capped.
func (w *Worker) computeRetryDelay(redeliveryCount int) time.Duration {
	if redeliveryCount < 0 {
		redeliveryCount = 0
	}

	delay := w.baseDelay
	for i := 0; i < redeliveryCount; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}

	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
