package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bkaradag/notify-relay/internal/cache"
	"github.com/bkaradag/notify-relay/internal/client"
	"github.com/bkaradag/notify-relay/internal/domain"
	"github.com/bkaradag/notify-relay/internal/observability"
	"github.com/bkaradag/notify-relay/internal/queue"
	"github.com/bkaradag/notify-relay/internal/ratelimit"
	"github.com/bkaradag/notify-relay/internal/repository"
	"github.com/bkaradag/notify-relay/internal/sender"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// transportName keys the send rate limit and downstream metrics.
const transportName = "transport"

// StatusWriter is the ephemeral status surface. Writes are best-effort: a
// cache outage never changes a processing outcome.
type StatusWriter interface {
	Set(ctx context.Context, notificationID, state, errText string) error
}

// Orchestrator drives one notification through lookup, render, send, and the
// durable log write. It is safe for concurrent use across distinct
// notification ids; the broker guarantees per-id serial processing.
type Orchestrator struct {
	records   repository.DeliveryLogRepository
	attempts  repository.AttemptRepository
	identity  client.IdentityResolver
	templates client.TemplateRenderer
	transport sender.Sender
	status    StatusWriter
	limiter   ratelimit.RateLimiter
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewOrchestrator(
	records repository.DeliveryLogRepository,
	attempts repository.AttemptRepository,
	identity client.IdentityResolver,
	templates client.TemplateRenderer,
	transport sender.Sender,
	status StatusWriter,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if records == nil {
		return nil, fmt.Errorf("delivery log repository is required")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template renderer is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		records:   records,
		attempts:  attempts,
		identity:  identity,
		templates: templates,
		transport: transport,
		status:    status,
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (o *Orchestrator) SetMetrics(metrics *observability.Metrics) {
	if o == nil {
		return
	}
	o.metrics = metrics
}

// Process executes the delivery pipeline for one request and always returns a
// terminal outcome; downstream errors never escape this boundary.
func (o *Orchestrator) Process(ctx context.Context, req queue.NotificationRequest) domain.Outcome {
	ctx = observability.WithNotificationID(ctx, req.NotificationID)
	log := observability.WithContextLogger(o.logger, ctx)

	existing, err := o.records.GetByNotificationID(ctx, req.NotificationID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		// Without the log we cannot prove the notification was not already
		// delivered, so no downstream call is made.
		log.Error("delivery log lookup failed", zap.Error(err))
		return domain.RetryableFailure("delivery log lookup failed: %v", err)
	}
	if existing != nil && existing.Status == domain.StatusDelivered {
		log.Info("notification already delivered, skipping")
		return domain.Delivered()
	}

	o.writeStatus(ctx, req.NotificationID, cache.StateProcessing, "")

	attemptStart := o.now()
	recipient, rendered, pipelineErr := o.runPipeline(ctx, req)
	attemptDuration := o.now().Sub(attemptStart)

	if pipelineErr == nil {
		record := &domain.DeliveryRecord{
			ID:             uuid.NewString(),
			NotificationID: req.NotificationID,
			UserID:         req.UserID,
			Recipient:      recipient,
			Subject:        rendered.Subject,
			Body:           rendered.Body,
			Status:         domain.StatusDelivered,
			RetryCount:     req.RedeliveryCount,
		}
		if err := o.records.MarkDelivered(ctx, record); err != nil {
			// The send happened but the log write did not; redelivery may
			// duplicate the send, which the contract allows.
			log.Error("delivery log write failed after send", zap.Error(err))
			o.recordAttempt(ctx, req, domain.OutcomeRetryable, err, attemptDuration)
			o.writeStatus(ctx, req.NotificationID, cache.StateFailed, err.Error())
			return domain.RetryableFailure("delivery log write failed: %v", err)
		}

		o.recordAttempt(ctx, req, domain.OutcomeDelivered, nil, attemptDuration)
		o.writeStatus(ctx, req.NotificationID, cache.StateDelivered, "")
		log.Info("notification delivered",
			zap.String("recipient", recipient),
			zap.Int("redeliveryCount", req.RedeliveryCount),
		)
		return domain.Delivered()
	}

	outcome := classifyPipelineError(pipelineErr)
	errText := pipelineErr.Error()

	record := &domain.DeliveryRecord{
		ID:             uuid.NewString(),
		NotificationID: req.NotificationID,
		UserID:         req.UserID,
		Recipient:      recipient,
		Status:         domain.StatusPending,
		ErrorMessage:   &errText,
		RetryCount:     req.RedeliveryCount + 1,
	}

	var writeErr error
	if outcome.IsPermanent() {
		writeErr = o.records.MarkFailed(ctx, record)
	} else {
		writeErr = o.records.MarkRetrying(ctx, record)
	}
	if writeErr != nil {
		log.Error("delivery log write failed", zap.Error(writeErr))
	}

	o.recordAttempt(ctx, req, outcome.Kind, pipelineErr, attemptDuration)
	o.writeStatus(ctx, req.NotificationID, cache.StateFailed, errText)
	log.Warn("notification processing failed",
		zap.String("outcome", outcome.Kind.String()),
		zap.String("reason", outcome.Reason),
		zap.Int("redeliveryCount", req.RedeliveryCount),
	)
	return outcome
}

// runPipeline performs the downstream calls in order and stops at the first
// failure. Each call carries its own timeout via the injected clients.
func (o *Orchestrator) runPipeline(ctx context.Context, req queue.NotificationRequest) (string, domain.RenderedTemplate, error) {
	resolveStart := o.now()
	recipient, err := o.identity.Resolve(ctx, req.UserID)
	o.observeDownstream("identity", o.now().Sub(resolveStart))
	if err != nil {
		return "", domain.RenderedTemplate{}, fmt.Errorf("identity lookup failed: %w", err)
	}

	renderStart := o.now()
	rendered, err := o.templates.Render(ctx, req.TemplateCode, req.Variables)
	o.observeDownstream("template", o.now().Sub(renderStart))
	if err != nil {
		return recipient, domain.RenderedTemplate{}, fmt.Errorf("template rendering failed: %w", err)
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, transportName); err != nil {
			return recipient, rendered, fmt.Errorf("send rate limit wait failed: %w", err)
		}
	}

	sendStart := o.now()
	err = o.transport.Send(ctx, recipient, rendered.Subject, rendered.Body)
	o.observeDownstream(transportName, o.now().Sub(sendStart))
	if err != nil {
		return recipient, rendered, fmt.Errorf("transport send failed: %w", err)
	}

	return recipient, rendered, nil
}

// classifyPipelineError maps a downstream failure to an outcome: structured
// not-found responses can never succeed on retry, everything else is
// considered transient.
func classifyPipelineError(err error) domain.Outcome {
	if client.IsNotFound(err) {
		return domain.PermanentFailure("%v", err)
	}
	if client.IsTransient(err) {
		return domain.RetryableFailure("%v", err)
	}
	// Errors without a classification get the benefit of the doubt; only a
	// provable not-found can never succeed on a later attempt.
	return domain.RetryableFailure("unclassified failure: %v", err)
}

func (o *Orchestrator) writeStatus(ctx context.Context, notificationID, state, errText string) {
	if o.status == nil {
		return
	}
	if err := o.status.Set(ctx, notificationID, state, errText); err != nil {
		o.logger.Warn("status cache write failed",
			zap.String("notificationId", notificationID),
			zap.String("state", state),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) recordAttempt(ctx context.Context, req queue.NotificationRequest, kind domain.OutcomeKind, attemptErr error, duration time.Duration) {
	if o.attempts == nil {
		return
	}

	var errText *string
	if attemptErr != nil {
		value := attemptErr.Error()
		errText = &value
	}

	attempt := &domain.DeliveryAttempt{
		ID:             uuid.NewString(),
		NotificationID: req.NotificationID,
		AttemptNumber:  req.RedeliveryCount + 1,
		Outcome:        kind,
		Error:          errText,
		DurationMillis: duration.Milliseconds(),
		CreatedAt:      o.now().UTC(),
	}

	if err := o.attempts.Create(ctx, attempt); err != nil {
		o.logger.Warn("failed to record delivery attempt",
			zap.String("notificationId", req.NotificationID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) observeDownstream(target string, duration time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.ObserveDownstreamCall(target, duration)
}
