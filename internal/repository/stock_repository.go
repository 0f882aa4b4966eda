package repository

import (
	"context"

	"ecorder/internal/domain/model"
)

// 在庫台帳。(拠点, バリアント)単位で行ロックして読む・減らす・戻す。
type StockRepository interface {
	// 行ロック付きで現在値を読む（行が無ければ ErrNotFound）
	LockForUpdate(ctx context.Context, locationID, variantID int64) (model.StockRecord, error)

	// 在庫が足りるときだけ減算。足りなければ ErrInsufficientStock
	Decrement(ctx context.Context, locationID, variantID, qty int64) error

	// 在庫戻し（キャンセルなど）。行が無ければ作る
	Increment(ctx context.Context, locationID, variantID, qty int64) error

	// 参照用（ロックなし）
	Find(ctx context.Context, locationID, variantID int64) (model.StockRecord, error)
}

type LocationRepository interface {
	FindByCode(ctx context.Context, code string) (model.Location, error)
	FindDefault(ctx context.Context) (model.Location, error)
}
