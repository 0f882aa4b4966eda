package repository

import (
	"context"

	"ecorder/internal/domain/model"

	"gorm.io/gorm"
)

type VariantGormRepository struct {
	db *gorm.DB
}

func NewVariantGormRepository(db *gorm.DB) *VariantGormRepository {
	return &VariantGormRepository{db: db}
}

func (r *VariantGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.ProductVariant, error) {
	if len(ids) == 0 {
		return []model.ProductVariant{}, nil
	}
	var list []model.ProductVariant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
