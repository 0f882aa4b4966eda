package repository

import (
	"context"

	"ecorder/internal/domain/model"

	"gorm.io/gorm"
)

type LocationGormRepository struct {
	db *gorm.DB
}

func NewLocationGormRepository(db *gorm.DB) *LocationGormRepository {
	return &LocationGormRepository{db: db}
}

func (r *LocationGormRepository) FindByCode(ctx context.Context, code string) (model.Location, error) {
	var l model.Location
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&l).Error; err != nil {
		return model.Location{}, translateError(err)
	}
	return l, nil
}

func (r *LocationGormRepository) FindDefault(ctx context.Context) (model.Location, error) {
	var l model.Location
	if err := r.db.WithContext(ctx).Where("is_default = ?", true).Order("id asc").First(&l).Error; err != nil {
		return model.Location{}, translateError(err)
	}
	return l, nil
}
