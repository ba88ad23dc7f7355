package queue

import (
	"fmt"
	"strings"
)

// NotificationRequest is the broker payload for one logical notification.
// NotificationID doubles as the idempotency key; RedeliveryCount travels in
// the message so backoff state survives worker restarts.
type NotificationRequest struct {
	NotificationID  string         `json:"notification_id"`
	UserID          string         `json:"user_id"`
	TemplateCode    string         `json:"template_code"`
	Variables       map[string]any `json:"variables,omitempty"`
	RedeliveryCount int            `json:"redelivery_count,omitempty"`
}

func (m NotificationRequest) Validate() error {
	if strings.TrimSpace(m.NotificationID) == "" {
		return fmt.Errorf("notification_id is required")
	}
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(m.TemplateCode) == "" {
		return fmt.Errorf("template_code is required")
	}
	if m.RedeliveryCount < 0 {
		return fmt.Errorf("redelivery_count must not be negative")
	}
	return nil
}

// NextRedelivery returns a copy with the redelivery count incremented,
// leaving every other field untouched.
func (m NotificationRequest) NextRedelivery() NotificationRequest {
	m.RedeliveryCount++
	return m
}
