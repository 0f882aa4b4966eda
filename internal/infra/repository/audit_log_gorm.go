package repository

import (
	"context"

	"ecorder/internal/domain/model"

	"gorm.io/gorm"
)

const maxAuditTrail = 200

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return translateError(r.db.WithContext(ctx).Create(&log).Error)
}

func (r *AuditLogGormRepository) ListByOrderID(ctx context.Context, orderID int64, limit int) ([]model.AuditLog, error) {
	if limit <= 0 || limit > maxAuditTrail {
		limit = maxAuditTrail
	}
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, translateError(err)
	}
	return logs, nil
}
