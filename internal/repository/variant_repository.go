package repository

import (
	"context"

	"ecorder/internal/domain/model"
)

// カタログ側（読み取りのみ）
type VariantRepository interface {
	// 見つからないIDは結果に含めない
	FindByIDs(ctx context.Context, ids []int64) ([]model.ProductVariant, error)
}
