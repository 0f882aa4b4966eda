package repository

import (
	"context"
	"time"

	"ecorder/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page          int
	Limit         int
	Status        string
	PaymentStatus string
	CustomerID    *int64
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	//行ロック付き（同じ注文へのIPNと管理者操作を直列化する）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (model.Order, error)
	FindByNumberForUpdate(ctx context.Context, orderNumber string) (model.Order, error)

	ListByCustomerID(ctx context.Context, customerID int64, page int, limit int) ([]model.Order, int64, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	//注文番号が衝突したら ErrDuplicate
	Create(ctx context.Context, order model.Order) (int64, error)

	//ステータス・支払い状態・金額・メモ・在庫フラグを保存
	Update(ctx context.Context, order model.Order) error
}
