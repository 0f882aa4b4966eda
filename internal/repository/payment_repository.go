package repository

import (
	"context"

	"ecorder/internal/domain/model"
)

// 支払い記録
type PaymentRepository interface {
	// pendingが既にあれば ErrDuplicate
	Create(ctx context.Context, p model.Payment) (model.Payment, error)

	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)

	// 最新の支払い試行（無ければ ErrNotFound）
	FindLatestByOrderID(ctx context.Context, orderID int64) (model.Payment, error)

	ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error)

	// ステータス・取引ID・支払日時を保存
	Update(ctx context.Context, p model.Payment) error
}
