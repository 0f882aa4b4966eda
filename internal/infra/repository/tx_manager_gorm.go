package repository

import (
	"context"

	repo "ecorder/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	payments   repo.PaymentRepository
	history    repo.OrderStatusHistoryRepository
	stock      repo.StockRepository
	carts      repo.CartRepository
	variants   repo.VariantRepository
	addresses  repo.AddressRepository
	auditLogs  repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                     { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository             { return r.orderItems }
func (r *txReposGorm) Payments() repo.PaymentRepository                 { return r.payments }
func (r *txReposGorm) StatusHistory() repo.OrderStatusHistoryRepository { return r.history }
func (r *txReposGorm) Stock() repo.StockRepository                      { return r.stock }
func (r *txReposGorm) Carts() repo.CartRepository                       { return r.carts }
func (r *txReposGorm) Variants() repo.VariantRepository                 { return r.variants }
func (r *txReposGorm) Addresses() repo.AddressRepository                { return r.addresses }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository               { return r.auditLogs }

func newTxReposGorm(db *gorm.DB) *txReposGorm {
	return &txReposGorm{
		orders:     NewOrderGormRepository(db),
		orderItems: NewOrderItemGormRepository(db),
		payments:   NewPaymentGormRepository(db),
		history:    NewOrderStatusHistoryGormRepository(db),
		stock:      NewStockGormRepository(db),
		carts:      NewCartGormRepository(db),
		variants:   NewVariantGormRepository(db),
		addresses:  NewAddressGormRepository(db),
		auditLogs:  NewAuditLogGormRepository(db),
	}
}

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(newTxReposGorm(tx))
	})
}

var (
	_ repo.TransactionManager = (*TxManagerGorm)(nil)
	_ repo.StockRepository    = (*StockGormRepository)(nil)
	_ repo.LocationRepository = (*LocationGormRepository)(nil)
	_ repo.OrderRepository    = (*OrderGormRepository)(nil)
	_ repo.PaymentRepository  = (*PaymentGormRepository)(nil)
)
