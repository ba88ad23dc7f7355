package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the durable lifecycle state of a delivery record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// DeliveryRecord is the authoritative per-notification record in the
// delivery log. notification_id is the idempotency key: once Status is
// DELIVERED the record is immutable except for UpdatedAt.
type DeliveryRecord struct {
	ID             string
	NotificationID string
	UserID         string
	Recipient      string
	Subject        string
	Body           string
	Status         Status
	ErrorMessage   *string
	RetryCount     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *DeliveryRecord) Validate() error {
	if strings.TrimSpace(r.NotificationID) == "" {
		return fmt.Errorf("%w: notification id is required", ErrValidation)
	}
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.Status)
	}
	return nil
}

// RenderedTemplate is the subject/body pair produced by the template service.
type RenderedTemplate struct {
	Subject string
	Body    string
}

// DefaultSubject is used when the template service omits a subject.
const DefaultSubject = "Notification"
