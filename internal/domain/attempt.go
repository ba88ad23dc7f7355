package domain

import "time"

// DeliveryAttempt records a single processing attempt for a notification.
type DeliveryAttempt struct {
	ID             string
	NotificationID string
	AttemptNumber  int
	Outcome        OutcomeKind
	Error          *string
	DurationMillis int64
	CreatedAt      time.Time
}
