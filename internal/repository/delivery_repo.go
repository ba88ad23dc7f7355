package repository

import (
	"context"
	"errors"

	"github.com/bkaradag/notify-relay/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryLogRepository is the durable, authoritative store for delivery
// state. All writes are insert-or-update on notification_id so the first
// attempt and every redelivery share one record.
type DeliveryLogRepository interface {
	GetByNotificationID(ctx context.Context, notificationID string) (*domain.DeliveryRecord, error)
	// MarkDelivered upserts the record into its terminal DELIVERED state with
	// the resolved recipient and rendered content.
	MarkDelivered(ctx context.Context, record *domain.DeliveryRecord) error
	// MarkRetrying upserts the record as PENDING with the attempt's error and
	// retry count. A record already DELIVERED is left untouched.
	MarkRetrying(ctx context.Context, record *domain.DeliveryRecord) error
	// MarkFailed upserts the record into its terminal FAILED state. A record
	// already DELIVERED is left untouched.
	MarkFailed(ctx context.Context, record *domain.DeliveryRecord) error
}

type GormDeliveryLogRepo struct {
	db *gorm.DB
}

func NewGormDeliveryLogRepo(db *gorm.DB) *GormDeliveryLogRepo {
	return &GormDeliveryLogRepo{db: db}
}

func (r *GormDeliveryLogRepo) GetByNotificationID(ctx context.Context, notificationID string) (*domain.DeliveryRecord, error) {
	var model DeliveryRecordModel
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recordModelToDomain(&model), nil
}

func (r *GormDeliveryLogRepo) MarkDelivered(ctx context.Context, record *domain.DeliveryRecord) error {
	if record == nil {
		return domain.ErrValidation
	}

	model := recordModelFromDomain(record)
	model.Status = domain.StatusDelivered
	model.ErrorMessage = nil

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "notification_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "recipient", "subject", "body", "error_message", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	*record = *recordModelToDomain(model)
	return nil
}

func (r *GormDeliveryLogRepo) MarkRetrying(ctx context.Context, record *domain.DeliveryRecord) error {
	return r.upsertNonTerminal(ctx, record, domain.StatusPending)
}

func (r *GormDeliveryLogRepo) MarkFailed(ctx context.Context, record *domain.DeliveryRecord) error {
	return r.upsertNonTerminal(ctx, record, domain.StatusFailed)
}

// upsertNonTerminal writes failure state without ever downgrading a record
// that already reached DELIVERED.
func (r *GormDeliveryLogRepo) upsertNonTerminal(ctx context.Context, record *domain.DeliveryRecord, status domain.Status) error {
	if record == nil {
		return domain.ErrValidation
	}

	model := recordModelFromDomain(record)
	model.Status = status

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "notification_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "error_message", "retry_count", "updated_at",
			}),
			Where: clause.Where{
				Exprs: []clause.Expression{
					clause.Neq{
						Column: clause.Column{Table: "delivery_records", Name: "status"},
						Value:  domain.StatusDelivered,
					},
				},
			},
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	*record = *recordModelToDomain(model)
	return nil
}
