package service

import (
	"context"
	"time"

	"github.com/bkaradag/notify-relay/internal/domain"
	"github.com/bkaradag/notify-relay/internal/queue"
)

type fakeDeliveryRepo struct {
	getFn           func(ctx context.Context, notificationID string) (*domain.DeliveryRecord, error)
	markDeliveredFn func(ctx context.Context, record *domain.DeliveryRecord) error
	markRetryingFn  func(ctx context.Context, record *domain.DeliveryRecord) error
	markFailedFn    func(ctx context.Context, record *domain.DeliveryRecord) error
}

func (f *fakeDeliveryRepo) GetByNotificationID(ctx context.Context, notificationID string) (*domain.DeliveryRecord, error) {
	if f.getFn != nil {
		return f.getFn(ctx, notificationID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeliveryRepo) MarkDelivered(ctx context.Context, record *domain.DeliveryRecord) error {
	if f.markDeliveredFn != nil {
		return f.markDeliveredFn(ctx, record)
	}
	return nil
}

func (f *fakeDeliveryRepo) MarkRetrying(ctx context.Context, record *domain.DeliveryRecord) error {
	if f.markRetryingFn != nil {
		return f.markRetryingFn(ctx, record)
	}
	return nil
}

func (f *fakeDeliveryRepo) MarkFailed(ctx context.Context, record *domain.DeliveryRecord) error {
	if f.markFailedFn != nil {
		return f.markFailedFn(ctx, record)
	}
	return nil
}

type fakeAttemptRepo struct {
	createFn func(ctx context.Context, a *domain.DeliveryAttempt) error
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAttemptRepo) GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	return nil, nil
}

type fakeIdentity struct {
	resolveFn func(ctx context.Context, userID string) (string, error)
	calls     int
}

func (f *fakeIdentity) Resolve(ctx context.Context, userID string) (string, error) {
	f.calls++
	if f.resolveFn != nil {
		return f.resolveFn(ctx, userID)
	}
	return "ann@example.com", nil
}

type fakeTemplates struct {
	renderFn func(ctx context.Context, templateCode string, variables map[string]any) (domain.RenderedTemplate, error)
	calls    int
}

func (f *fakeTemplates) Render(ctx context.Context, templateCode string, variables map[string]any) (domain.RenderedTemplate, error) {
	f.calls++
	if f.renderFn != nil {
		return f.renderFn(ctx, templateCode, variables)
	}
	return domain.RenderedTemplate{Subject: "Hi", Body: "Hello Ann"}, nil
}

type fakeSender struct {
	sendFn func(ctx context.Context, recipient, subject, body string) error
	calls  int
}

func (f *fakeSender) Send(ctx context.Context, recipient, subject, body string) error {
	f.calls++
	if f.sendFn != nil {
		return f.sendFn(ctx, recipient, subject, body)
	}
	return nil
}

type statusWrite struct {
	notificationID string
	state          string
	errText        string
}

type fakeStatusWriter struct {
	setFn  func(ctx context.Context, notificationID, state, errText string) error
	writes []statusWrite
}

func (f *fakeStatusWriter) Set(ctx context.Context, notificationID, state, errText string) error {
	f.writes = append(f.writes, statusWrite{notificationID: notificationID, state: state, errText: errText})
	if f.setFn != nil {
		return f.setFn(ctx, notificationID, state, errText)
	}
	return nil
}

type fakeRateLimiter struct {
	waitFn func(ctx context.Context, transport string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, transport string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, transport string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, transport)
	}
	return nil
}

type fakeProcessor struct {
	processFn func(ctx context.Context, req queue.NotificationRequest) domain.Outcome
}

func (f *fakeProcessor) Process(ctx context.Context, req queue.NotificationRequest) domain.Outcome {
	if f.processFn != nil {
		return f.processFn(ctx, req)
	}
	return domain.Delivered()
}

type delayedPublish struct {
	req   queue.NotificationRequest
	delay time.Duration
}

type fakePublisher struct {
	delayed      []delayedPublish
	deadLettered [][]byte
	delayedErr   error
	deadErr      error
}

func (f *fakePublisher) PublishDelayed(ctx context.Context, req queue.NotificationRequest, delay time.Duration) error {
	if f.delayedErr != nil {
		return f.delayedErr
	}
	f.delayed = append(f.delayed, delayedPublish{req: req, delay: delay})
	return nil
}

func (f *fakePublisher) PublishDeadLetter(ctx context.Context, body []byte) error {
	if f.deadErr != nil {
		return f.deadErr
	}
	f.deadLettered = append(f.deadLettered, body)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }
