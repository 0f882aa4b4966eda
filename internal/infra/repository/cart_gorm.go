package repository

import (
	"context"

	"ecorder/internal/domain/model"

	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのACTIVEカートの明細（カートが無ければ空）
func (r *CartGormRepository) ListActiveItemsByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Joins("join carts on carts.id = cart_items.cart_id").
		Where("carts.user_id = ? AND carts.status = ?", userID, model.CartStatusActive).
		Order("cart_items.id asc").
		Find(&items).Error
	if err != nil {
		return []model.CartItem{}, err
	}
	return items, nil
}

// ACTIVEカートの明細を全削除（カートが無ければ何もしない）
func (r *CartGormRepository) ClearByUserID(ctx context.Context, userID int64) error {
	sub := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Select("id").
		Where("user_id = ? AND status = ?", userID, model.CartStatusActive)

	return r.db.WithContext(ctx).
		Where("cart_id IN (?)", sub).
		Delete(&model.CartItem{}).Error
}
