package memory

import (
	"context"
	"sort"
	"time"

	"ecorder/internal/domain/model"
	repo "ecorder/internal/repository"
)

type locationRepo struct{ s *Store }

func (r *locationRepo) FindByCode(_ context.Context, code string) (model.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.st.locations {
		if l.Code == code {
			return l, nil
		}
	}
	return model.Location{}, repo.ErrNotFound
}

func (r *locationRepo) FindDefault(_ context.Context) (model.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.Location
	for _, l := range r.s.st.locations {
		if l.IsDefault && (found == nil || l.ID < found.ID) {
			found = &l
		}
	}
	if found == nil {
		return model.Location{}, repo.ErrNotFound
	}
	return *found, nil
}

// 在庫台帳
type stockRepo struct {
	st    *state
	hooks Hooks
}

func (r *stockRepo) LockForUpdate(_ context.Context, locationID, variantID int64) (model.StockRecord, error) {
	rec, ok := r.st.stock[stockKey{locationID, variantID}]
	if !ok {
		return model.StockRecord{}, repo.ErrNotFound
	}
	return rec, nil
}

func (r *stockRepo) Find(ctx context.Context, locationID, variantID int64) (model.StockRecord, error) {
	return r.LockForUpdate(ctx, locationID, variantID)
}

func (r *stockRepo) Decrement(_ context.Context, locationID, variantID, qty int64) error {
	if r.hooks.BeforeDecrement != nil {
		if err := r.hooks.BeforeDecrement(locationID, variantID, qty); err != nil {
			return err
		}
	}
	k := stockKey{locationID, variantID}
	rec, ok := r.st.stock[k]
	if !ok || rec.Quantity < qty {
		return repo.ErrInsufficientStock
	}
	rec.Quantity -= qty
	rec.UpdatedAt = time.Now()
	r.st.stock[k] = rec
	return nil
}

func (r *stockRepo) Increment(_ context.Context, locationID, variantID, qty int64) error {
	k := stockKey{locationID, variantID}
	rec, ok := r.st.stock[k]
	if !ok {
		rec = model.StockRecord{ID: r.st.nextID(), LocationID: locationID, VariantID: variantID}
	}
	rec.Quantity += qty
	rec.UpdatedAt = time.Now()
	r.st.stock[k] = rec
	return nil
}

// 注文
type orderRepo struct {
	st    *state
	hooks Hooks
}

func (r *orderRepo) FindByID(_ context.Context, orderID int64) (model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

// 直列化されているのでロックはFindByIDと同じ
func (r *orderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *orderRepo) FindByNumber(_ context.Context, orderNumber string) (model.Order, error) {
	for _, o := range r.st.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r *orderRepo) FindByNumberForUpdate(ctx context.Context, orderNumber string) (model.Order, error) {
	return r.FindByNumber(ctx, orderNumber)
}

func (r *orderRepo) ListByCustomerID(_ context.Context, customerID int64, page int, limit int) ([]model.Order, int64, error) {
	return paginate(r.filter(func(o model.Order) bool { return o.CustomerID == customerID }), page, limit)
}

func (r *orderRepo) ListAdmin(_ context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	list := r.filter(func(o model.Order) bool {
		if f.Status != "" && string(o.Status) != f.Status {
			return false
		}
		if f.PaymentStatus != "" && string(o.PaymentStatus) != f.PaymentStatus {
			return false
		}
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			return false
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			return false
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			return false
		}
		return true
	})
	return paginate(list, f.Page, f.Limit)
}

func (r *orderRepo) filter(keep func(model.Order) bool) []model.Order {
	list := []model.Order{}
	for _, o := range r.st.orders {
		if keep(o) {
			list = append(list, o)
		}
	}
	//新しい順
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}

func paginate(list []model.Order, page, limit int) ([]model.Order, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	total := int64(len(list))
	start := (page - 1) * limit
	if start >= len(list) {
		return []model.Order{}, total, nil
	}
	end := min(start+limit, len(list))
	return list[start:end], total, nil
}

func (r *orderRepo) Create(_ context.Context, order model.Order) (int64, error) {
	if r.hooks.BeforeOrderCreate != nil {
		if err := r.hooks.BeforeOrderCreate(order); err != nil {
			return 0, err
		}
	}
	for _, o := range r.st.orders {
		if o.OrderNumber == order.OrderNumber {
			return 0, repo.ErrDuplicate
		}
	}
	now := time.Now()
	order.ID = r.st.nextID()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	r.st.orders[order.ID] = order
	return order.ID, nil
}

func (r *orderRepo) Update(_ context.Context, order model.Order) error {
	cur, ok := r.st.orders[order.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Status = order.Status
	cur.PaymentStatus = order.PaymentStatus
	cur.Subtotal = order.Subtotal
	cur.Discount = order.Discount
	cur.TotalAmount = order.TotalAmount
	cur.StockDeducted = order.StockDeducted
	cur.StockLocationID = order.StockLocationID
	cur.Notes = order.Notes
	cur.UpdatedAt = time.Now()
	r.st.orders[order.ID] = cur
	return nil
}

// 注文明細
type orderItemRepo struct{ st *state }

func (r *orderItemRepo) CreateBulk(_ context.Context, orderID int64, items []model.OrderItem) error {
	for i := range items {
		items[i].ID = r.st.nextID()
		items[i].OrderID = orderID
		items[i].CreatedAt = time.Now()
		r.st.orderItems[items[i].ID] = items[i]
	}
	return nil
}

func (r *orderItemRepo) ListByOrderID(_ context.Context, orderID int64) ([]model.OrderItem, error) {
	list := []model.OrderItem{}
	for _, it := range r.st.orderItems {
		if it.OrderID == orderID {
			list = append(list, it)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *orderItemRepo) Update(_ context.Context, item model.OrderItem) error {
	cur, ok := r.st.orderItems[item.ID]
	if !ok || cur.OrderID != item.OrderID {
		return repo.ErrNotFound
	}
	cur.Quantity = item.Quantity
	cur.UnitPrice = item.UnitPrice
	cur.LineTotal = item.LineTotal
	r.st.orderItems[item.ID] = cur
	return nil
}

// 支払い
type paymentRepo struct{ st *state }

func (r *paymentRepo) Create(_ context.Context, p model.Payment) (model.Payment, error) {
	if p.Status == model.PaymentStatusPending {
		for _, cur := range r.st.payments {
			if cur.OrderID == p.OrderID && cur.Status == model.PaymentStatusPending {
				return model.Payment{}, repo.ErrDuplicate
			}
		}
	}
	now := time.Now()
	p.ID = r.st.nextID()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.st.payments[p.ID] = p
	return p, nil
}

func (r *paymentRepo) FindByID(_ context.Context, paymentID int64) (model.Payment, error) {
	p, ok := r.st.payments[paymentID]
	if !ok {
		return model.Payment{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *paymentRepo) FindLatestByOrderID(_ context.Context, orderID int64) (model.Payment, error) {
	list := r.st.paymentsOf(orderID)
	if len(list) == 0 {
		return model.Payment{}, repo.ErrNotFound
	}
	return list[len(list)-1], nil
}

func (r *paymentRepo) ListByOrderID(_ context.Context, orderID int64) ([]model.Payment, error) {
	return r.st.paymentsOf(orderID), nil
}

func (r *paymentRepo) Update(_ context.Context, p model.Payment) error {
	cur, ok := r.st.payments[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if p.Status == model.PaymentStatusPending && cur.Status != model.PaymentStatusPending {
		for _, other := range r.st.payments {
			if other.ID != p.ID && other.OrderID == p.OrderID && other.Status == model.PaymentStatusPending {
				return repo.ErrDuplicate
			}
		}
	}
	cur.Status = p.Status
	cur.TransactionID = p.TransactionID
	cur.GatewayCode = p.GatewayCode
	cur.PaidAt = p.PaidAt
	cur.Amount = p.Amount
	cur.UpdatedAt = time.Now()
	r.st.payments[p.ID] = cur
	return nil
}

// ステータス履歴（追記のみ）
type historyRepo struct{ st *state }

func (r *historyRepo) Append(_ context.Context, h model.OrderStatusHistory) error {
	h.ID = r.st.nextID()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	r.st.history = append(r.st.history, h)
	return nil
}

func (r *historyRepo) ListByOrderID(_ context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	return r.st.historyOf(orderID), nil
}

// カート
type cartRepo struct{ st *state }

func (r *cartRepo) ListActiveItemsByUserID(_ context.Context, userID int64) ([]model.CartItem, error) {
	return r.st.itemsOfActiveCart(userID), nil
}

func (r *cartRepo) ClearByUserID(_ context.Context, userID int64) error {
	for _, it := range r.st.itemsOfActiveCart(userID) {
		delete(r.st.cartItems, it.ID)
	}
	return nil
}

// カタログ
type variantRepo struct{ st *state }

func (r *variantRepo) FindByIDs(_ context.Context, ids []int64) ([]model.ProductVariant, error) {
	list := []model.ProductVariant{}
	for _, id := range ids {
		if v, ok := r.st.variants[id]; ok {
			list = append(list, v)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// 住所帳
type addressRepo struct{ st *state }

func (r *addressRepo) FindByID(_ context.Context, addressID int64) (model.Address, error) {
	a, ok := r.st.addresses[addressID]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

// 監査ログ
type auditLogRepo struct{ st *state }

func (r *auditLogRepo) Create(_ context.Context, log model.AuditLog) error {
	log.ID = r.st.nextID()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	r.st.auditLogs = append(r.st.auditLogs, log)
	return nil
}

func (r *auditLogRepo) ListByOrderID(_ context.Context, orderID int64, limit int) ([]model.AuditLog, error) {
	out := []model.AuditLog{}
	for i := len(r.st.auditLogs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if l := r.st.auditLogs[i]; l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}
