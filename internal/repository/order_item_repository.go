package repository

import (
	"context"

	"ecorder/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	//管理者の明細修正用（数量・単価・行合計のみ）
	Update(ctx context.Context, item model.OrderItem) error
}
