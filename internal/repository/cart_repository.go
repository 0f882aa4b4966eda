package repository

import (
	"context"

	"ecorder/internal/domain/model"
)

type CartRepository interface {
	// ACTIVEカートの明細（カートが無ければ空）
	ListActiveItemsByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// ACTIVEカートの明細を全削除
	ClearByUserID(ctx context.Context, userID int64) error
}
