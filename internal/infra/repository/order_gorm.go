package repository

import (
	"context"
	"time"

	"ecorder/internal/domain/model"
	repo "ecorder/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", orderID))
}

func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderID))
}

func (r *OrderGormRepository) FindByNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("order_number = ?", orderNumber))
}

func (r *OrderGormRepository) FindByNumberForUpdate(ctx context.Context, orderNumber string) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_number = ?", orderNumber))
}

func (r *OrderGormRepository) first(q *gorm.DB) (model.Order, error) {
	var o model.Order
	if err := q.First(&o).Error; err != nil {
		return model.Order{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) ListByCustomerID(ctx context.Context, customerID int64, page int, limit int) ([]model.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("customer_id = ?", customerID).
		Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, translateError(err)
	}
	return order.ID, nil
}

func (r *OrderGormRepository) Update(ctx context.Context, order model.Order) error {
	order.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", order.ID).
		Select(
			"status",
			"payment_status",
			"subtotal",
			"discount",
			"total_amount",
			"stock_deducted",
			"stock_location_id",
			"notes",
			"updated_at",
		).
		Updates(&order)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}

	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}
