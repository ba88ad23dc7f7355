package queue

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ackCall struct {
	method  string
	requeue bool
}

// fakeAcknowledger records the single broker action taken for a delivery.
type fakeAcknowledger struct {
	calls []ackCall
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.calls = append(f.calls, ackCall{method: "ack"})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.calls = append(f.calls, ackCall{method: "nack", requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.calls = append(f.calls, ackCall{method: "reject", requeue: requeue})
	return nil
}

func TestNewRabbitMQConsumerPrefetch(t *testing.T) {
	t.Parallel()

	if c := NewRabbitMQConsumer(nil, 0, nil); c.prefetch != 1 {
		t.Errorf("prefetch = %d, want clamped to 1", c.prefetch)
	}
	if c := NewRabbitMQConsumer(nil, PrefetchPerWorker, nil); c.prefetch != 1 {
		t.Errorf("prefetch = %d, want 1 per worker channel", c.prefetch)
	}
}

func TestHandleDeliveryRejectsMalformedWithoutRequeue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{not json`},
		{name: "missing notification id", body: `{"user_id":"u1","template_code":"welcome"}`},
		{name: "missing user id", body: `{"notification_id":"n1","template_code":"welcome"}`},
		{name: "missing template code", body: `{"notification_id":"n1","user_id":"u1"}`},
		{name: "negative redelivery count", body: `{"notification_id":"n1","user_id":"u1","template_code":"welcome","redelivery_count":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewRabbitMQConsumer(nil, 1, nil)
			ack := &fakeAcknowledger{}
			handlerCalls := 0
			handler := func(ctx context.Context, raw []byte, req NotificationRequest) error {
				handlerCalls++
				return nil
			}

			err := c.handleDelivery(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				Body:         []byte(tt.body),
			}, handler)
			if err != nil {
				t.Fatalf("handleDelivery() error = %v", err)
			}

			if handlerCalls != 0 {
				t.Error("handler must not run for a malformed message")
			}
			if len(ack.calls) != 1 {
				t.Fatalf("broker actions = %d, want exactly 1", len(ack.calls))
			}
			if ack.calls[0].method != "reject" {
				t.Errorf("broker action = %s, want reject", ack.calls[0].method)
			}
			if ack.calls[0].requeue {
				t.Error("malformed message must not be requeued")
			}
		})
	}
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(nil, 1, nil)
	ack := &fakeAcknowledger{}
	body := []byte(`{"notification_id":"n1","user_id":"u1","template_code":"welcome","redelivery_count":2}`)

	var gotReq NotificationRequest
	var gotRaw []byte
	handler := func(ctx context.Context, raw []byte, req NotificationRequest) error {
		gotRaw = raw
		gotReq = req
		return nil
	}

	err := c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         body,
	}, handler)
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}

	if gotReq.NotificationID != "n1" || gotReq.RedeliveryCount != 2 {
		t.Errorf("handler request = %s/%d, want n1/2", gotReq.NotificationID, gotReq.RedeliveryCount)
	}
	if string(gotRaw) != string(body) {
		t.Error("handler must receive the original body unmodified")
	}
	if len(ack.calls) != 1 || ack.calls[0].method != "ack" {
		t.Errorf("broker actions = %+v, want a single ack", ack.calls)
	}
}

func TestHandleDeliveryNacksWithRequeueOnHandlerError(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(nil, 1, nil)
	ack := &fakeAcknowledger{}
	handler := func(ctx context.Context, raw []byte, req NotificationRequest) error {
		return errors.New("publish failed")
	}

	err := c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"notification_id":"n1","user_id":"u1","template_code":"welcome"}`),
	}, handler)
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}

	if len(ack.calls) != 1 || ack.calls[0].method != "nack" {
		t.Fatalf("broker actions = %+v, want a single nack", ack.calls)
	}
	if !ack.calls[0].requeue {
		t.Error("handler failure must requeue for redelivery")
	}
}
