package repository

import (
	"context"

	"ecorder/internal/domain/model"

	"gorm.io/gorm"
)

type OrderStatusHistoryGormRepository struct {
	db *gorm.DB
}

func NewOrderStatusHistoryGormRepository(db *gorm.DB) *OrderStatusHistoryGormRepository {
	return &OrderStatusHistoryGormRepository{db: db}
}

func (r *OrderStatusHistoryGormRepository) Append(ctx context.Context, h model.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(&h).Error
}

func (r *OrderStatusHistoryGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	var list []model.OrderStatusHistory
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
