package repository

import (
	"time"

	"github.com/bkaradag/notify-relay/internal/domain"
)

// DeliveryRecordModel is the persistence model for the delivery_records table.
type DeliveryRecordModel struct {
	ID             string        `gorm:"type:uuid;primaryKey"`
	NotificationID string        `gorm:"type:varchar(255);not null;uniqueIndex:idx_delivery_records_notification_id"`
	UserID         string        `gorm:"type:varchar(255);not null"`
	Recipient      string        `gorm:"type:varchar(255)"`
	Subject        string        `gorm:"type:text"`
	Body           string        `gorm:"type:text"`
	Status         domain.Status `gorm:"type:varchar(20);not null"`
	ErrorMessage   *string       `gorm:"type:text"`
	RetryCount     int           `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (DeliveryRecordModel) TableName() string {
	return "delivery_records"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID             string             `gorm:"type:uuid;primaryKey"`
	NotificationID string             `gorm:"type:varchar(255);not null"`
	AttemptNumber  int                `gorm:"not null"`
	Outcome        domain.OutcomeKind `gorm:"type:varchar(20);not null"`
	Error          *string            `gorm:"type:text"`
	DurationMillis int64              `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

func recordModelFromDomain(r *domain.DeliveryRecord) *DeliveryRecordModel {
	if r == nil {
		return nil
	}

	return &DeliveryRecordModel{
		ID:             r.ID,
		NotificationID: r.NotificationID,
		UserID:         r.UserID,
		Recipient:      r.Recipient,
		Subject:        r.Subject,
		Body:           r.Body,
		Status:         r.Status,
		ErrorMessage:   r.ErrorMessage,
		RetryCount:     r.RetryCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func recordModelToDomain(m *DeliveryRecordModel) *domain.DeliveryRecord {
	if m == nil {
		return nil
	}

	return &domain.DeliveryRecord{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		UserID:         m.UserID,
		Recipient:      m.Recipient,
		Subject:        m.Subject,
		Body:           m.Body,
		Status:         m.Status,
		ErrorMessage:   m.ErrorMessage,
		RetryCount:     m.RetryCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:             a.ID,
		NotificationID: a.NotificationID,
		AttemptNumber:  a.AttemptNumber,
		Outcome:        a.Outcome,
		Error:          a.Error,
		DurationMillis: a.DurationMillis,
		CreatedAt:      a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		AttemptNumber:  m.AttemptNumber,
		Outcome:        m.Outcome,
		Error:          m.Error,
		DurationMillis: m.DurationMillis,
		CreatedAt:      m.CreatedAt,
	}
}
