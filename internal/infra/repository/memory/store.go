// Package memory はテストとローカル起動用のインメモリ実装。
// WithinTx は1本のミューテックスで直列化し、エラー時はスナップショットに戻す。
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"ecorder/internal/domain/model"
	repo "ecorder/internal/repository"
)

type stockKey struct {
	locationID int64
	variantID  int64
}

type state struct {
	seq int64

	locations map[int64]model.Location
	stock     map[stockKey]model.StockRecord
	variants  map[int64]model.ProductVariant
	addresses map[int64]model.Address
	carts     map[int64]model.Cart
	cartItems map[int64]model.CartItem

	orders     map[int64]model.Order
	orderItems map[int64]model.OrderItem
	payments   map[int64]model.Payment
	history    []model.OrderStatusHistory
	auditLogs  []model.AuditLog
}

func newState() *state {
	return &state{
		locations:  map[int64]model.Location{},
		stock:      map[stockKey]model.StockRecord{},
		variants:   map[int64]model.ProductVariant{},
		addresses:  map[int64]model.Address{},
		carts:      map[int64]model.Cart{},
		cartItems:  map[int64]model.CartItem{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64]model.OrderItem{},
		payments:   map[int64]model.Payment{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:        s.seq,
		locations:  maps.Clone(s.locations),
		stock:      maps.Clone(s.stock),
		variants:   maps.Clone(s.variants),
		addresses:  maps.Clone(s.addresses),
		carts:      maps.Clone(s.carts),
		cartItems:  maps.Clone(s.cartItems),
		orders:     maps.Clone(s.orders),
		orderItems: maps.Clone(s.orderItems),
		payments:   maps.Clone(s.payments),
		history:    append([]model.OrderStatusHistory(nil), s.history...),
		auditLogs:  append([]model.AuditLog(nil), s.auditLogs...),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Hooks はテスト用の故障注入。nilなら何もしない。
type Hooks struct {
	// 在庫減算の直前に呼ばれ、エラーを返すとその減算が失敗する
	BeforeDecrement func(locationID, variantID, qty int64) error
	// 注文作成の直前に呼ばれる
	BeforeOrderCreate func(o model.Order) error
}

type Store struct {
	mu    sync.Mutex
	st    *state
	hooks Hooks
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) SetHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = h
}

// WithinTx は fn を直列に実行し、エラー・panic・ctx切れで巻き戻す。
func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	if err = fn(&txRepos{st: s.st, hooks: s.hooks}); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Locations() repo.LocationRepository {
	return &locationRepo{s: s}
}

type txRepos struct {
	st    *state
	hooks Hooks
}

func (r *txRepos) Orders() repo.OrderRepository                     { return &orderRepo{st: r.st, hooks: r.hooks} }
func (r *txRepos) OrderItems() repo.OrderItemRepository             { return &orderItemRepo{st: r.st} }
func (r *txRepos) Payments() repo.PaymentRepository                 { return &paymentRepo{st: r.st} }
func (r *txRepos) StatusHistory() repo.OrderStatusHistoryRepository { return &historyRepo{st: r.st} }
func (r *txRepos) Stock() repo.StockRepository                      { return &stockRepo{st: r.st, hooks: r.hooks} }
func (r *txRepos) Carts() repo.CartRepository                       { return &cartRepo{st: r.st} }
func (r *txRepos) Variants() repo.VariantRepository                 { return &variantRepo{st: r.st} }
func (r *txRepos) Addresses() repo.AddressRepository                { return &addressRepo{st: r.st} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository               { return &auditLogRepo{st: r.st} }

var _ repo.TransactionManager = (*Store)(nil)
