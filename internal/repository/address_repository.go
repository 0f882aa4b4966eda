package repository

import (
	"context"

	"ecorder/internal/domain/model"
)

// 住所帳（読み取りのみ）
type AddressRepository interface {
	//住所IDから住所を1件取得（無ければ ErrNotFound）
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
}
