package repository

import (
	"context"
	"time"

	"ecorder/internal/domain/model"
	repo "ecorder/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockGormRepository struct {
	db *gorm.DB
}

func NewStockGormRepository(db *gorm.DB) *StockGormRepository {
	return &StockGormRepository{db: db}
}

// SELECT ... FOR UPDATE で在庫行をロック
func (r *StockGormRepository) LockForUpdate(ctx context.Context, locationID, variantID int64) (model.StockRecord, error) {
	var s model.StockRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("location_id = ? AND variant_id = ?", locationID, variantID).
		First(&s).Error
	if err != nil {
		return model.StockRecord{}, translateError(err)
	}
	return s, nil
}

func (r *StockGormRepository) Find(ctx context.Context, locationID, variantID int64) (model.StockRecord, error) {
	var s model.StockRecord
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND variant_id = ?", locationID, variantID).
		First(&s).Error
	if err != nil {
		return model.StockRecord{}, translateError(err)
	}
	return s, nil
}

// 在庫が足りるときだけ減らす（0未満にはならない）
func (r *StockGormRepository) Decrement(ctx context.Context, locationID, variantID, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.StockRecord{}).
		Where("location_id = ? AND variant_id = ? AND quantity >= ?", locationID, variantID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrInsufficientStock
	}
	return nil
}

// 在庫戻し。行が無ければ作る（upsert）
func (r *StockGormRepository) Increment(ctx context.Context, locationID, variantID, qty int64) error {
	rec := model.StockRecord{
		LocationID: locationID,
		VariantID:  variantID,
		Quantity:   qty,
		UpdatedAt:  time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "location_id"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("stock_records.quantity + ?", qty),
				"updated_at": rec.UpdatedAt,
			}),
		}).
		Create(&rec).Error
}
