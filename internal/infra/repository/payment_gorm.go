package repository

import (
	"context"

	"ecorder/internal/domain/model"
	repo "ecorder/internal/repository"

	"gorm.io/gorm"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

// 部分ユニークインデックス（pendingは注文に1行）に当たると ErrDuplicate
func (r *PaymentGormRepository) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Payment{}, translateError(err)
	}
	return p, nil
}

func (r *PaymentGormRepository) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", paymentID).First(&p).Error; err != nil {
		return model.Payment{}, translateError(err)
	}
	return p, nil
}

func (r *PaymentGormRepository) FindLatestByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id desc").
		First(&p).Error
	if err != nil {
		return model.Payment{}, translateError(err)
	}
	return p, nil
}

func (r *PaymentGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error) {
	var list []model.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PaymentGormRepository) Update(ctx context.Context, p model.Payment) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", p.ID).
		Select("status", "transaction_id", "gateway_code", "paid_at", "amount").
		Updates(&p)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
