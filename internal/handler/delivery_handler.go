package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bkaradag/notify-relay/internal/cache"
	"github.com/bkaradag/notify-relay/internal/domain"
)

// DeliveryReader provides read access to the durable delivery log.
type DeliveryReader interface {
	GetByNotificationID(ctx context.Context, notificationID string) (*domain.DeliveryRecord, error)
}

// AttemptReader provides read access to the per-attempt audit trail.
type AttemptReader interface {
	GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
}

// StatusReader reads the ephemeral status cache. A miss means unknown.
type StatusReader interface {
	Get(ctx context.Context, notificationID string) (*cache.StatusEntry, bool, error)
}

type DeliveryHandler struct {
	records  DeliveryReader
	attempts AttemptReader
	status   StatusReader
}

func NewDeliveryHandler(records DeliveryReader, attempts AttemptReader, status StatusReader) (*DeliveryHandler, error) {
	if records == nil {
		return nil, fmt.Errorf("delivery reader is required")
	}
	return &DeliveryHandler{
		records:  records,
		attempts: attempts,
		status:   status,
	}, nil
}

func RegisterDeliveryRoutes(router fiber.Router, records DeliveryReader, attempts AttemptReader, status StatusReader) error {
	h, err := NewDeliveryHandler(records, attempts, status)
	if err != nil {
		return err
	}

	router.Get("/deliveries/:notificationId", h.GetDelivery)
	return nil
}

type attemptResponse struct {
	AttemptNumber  int       `json:"attemptNumber"`
	Outcome        string    `json:"outcome"`
	Error          *string   `json:"error,omitempty"`
	DurationMillis int64     `json:"durationMillis"`
	CreatedAt      time.Time `json:"createdAt"`
}

type deliveryResponse struct {
	NotificationID string            `json:"notificationId"`
	UserID         string            `json:"userId"`
	Recipient      string            `json:"recipient,omitempty"`
	Subject        string            `json:"subject,omitempty"`
	Status         string            `json:"status"`
	ErrorMessage   *string           `json:"errorMessage,omitempty"`
	RetryCount     int               `json:"retryCount"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	Attempts       []attemptResponse `json:"attempts"`
	CachedStatus   *string           `json:"cachedStatus,omitempty"`
}

// GetDelivery reads one notification's durable record, its attempt history,
// and the cached transient state. Cache and audit reads are best effort; only
// a missing record is an error.
func (h *DeliveryHandler) GetDelivery(c *fiber.Ctx) error {
	notificationID := strings.TrimSpace(c.Params("notificationId"))
	if notificationID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "notification id is required")
	}

	ctx := c.Context()

	record, err := h.records.GetByNotificationID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "delivery record not found")
		}
		return err
	}

	resp := deliveryResponse{
		NotificationID: record.NotificationID,
		UserID:         record.UserID,
		Recipient:      record.Recipient,
		Subject:        record.Subject,
		Status:         record.Status.String(),
		ErrorMessage:   record.ErrorMessage,
		RetryCount:     record.RetryCount,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
		Attempts:       []attemptResponse{},
	}

	if h.attempts != nil {
		attempts, err := h.attempts.GetByNotificationID(ctx, notificationID)
		if err == nil {
			for _, a := range attempts {
				resp.Attempts = append(resp.Attempts, attemptResponse{
					AttemptNumber:  a.AttemptNumber,
					Outcome:        a.Outcome.String(),
					Error:          a.Error,
					DurationMillis: a.DurationMillis,
					CreatedAt:      a.CreatedAt,
				})
			}
		}
	}

	if h.status != nil {
		if entry, found, err := h.status.Get(ctx, notificationID); err == nil && found {
			resp.CachedStatus = &entry.Status
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
