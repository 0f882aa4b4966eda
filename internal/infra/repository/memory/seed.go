package memory

import (
	"sort"

	"ecorder/internal/domain/model"
)

// テスト用のデータ投入・参照ヘルパ

func (s *Store) AddLocation(l model.Location) model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.st.nextID()
	}
	s.st.locations[l.ID] = l
	return l
}

func (s *Store) SetStock(locationID, variantID, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := stockKey{locationID, variantID}
	rec, ok := s.st.stock[k]
	if !ok {
		rec = model.StockRecord{ID: s.st.nextID(), LocationID: locationID, VariantID: variantID}
	}
	rec.Quantity = qty
	s.st.stock[k] = rec
}

// 在庫数（行が無ければ0）
func (s *Store) StockOf(locationID, variantID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.stock[stockKey{locationID, variantID}].Quantity
}

func (s *Store) AddVariant(v model.ProductVariant) model.ProductVariant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == 0 {
		v.ID = s.st.nextID()
	}
	s.st.variants[v.ID] = v
	return v
}

func (s *Store) AddAddress(a model.Address) model.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.st.nextID()
	}
	s.st.addresses[a.ID] = a
	return a
}

// ACTIVEカートに明細を追加（カートが無ければ作る）
func (s *Store) AddCartItem(userID, variantID, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cartID := s.st.activeCartID(userID)
	if cartID == 0 {
		cartID = s.st.nextID()
		s.st.carts[cartID] = model.Cart{ID: cartID, UserID: userID, Status: model.CartStatusActive}
	}
	id := s.st.nextID()
	s.st.cartItems[id] = model.CartItem{ID: id, CartID: cartID, VariantID: variantID, Quantity: qty}
}

func (s *Store) CartSize(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.itemsOfActiveCart(userID))
}

func (s *Store) Order(id int64) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	return o, ok
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) PaymentsOf(orderID int64) []model.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.paymentsOf(orderID)
}

func (s *Store) HistoryOf(orderID int64) []model.OrderStatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.historyOf(orderID)
}

func (s *Store) AuditLogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.auditLogs)
}

func (st *state) activeCartID(userID int64) int64 {
	var id int64
	for _, c := range st.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive && c.ID > id {
			id = c.ID
		}
	}
	return id
}

func (st *state) itemsOfActiveCart(userID int64) []model.CartItem {
	cartID := st.activeCartID(userID)
	if cartID == 0 {
		return []model.CartItem{}
	}
	items := []model.CartItem{}
	for _, it := range st.cartItems {
		if it.CartID == cartID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (st *state) paymentsOf(orderID int64) []model.Payment {
	list := []model.Payment{}
	for _, p := range st.payments {
		if p.OrderID == orderID {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (st *state) historyOf(orderID int64) []model.OrderStatusHistory {
	list := []model.OrderStatusHistory{}
	for _, h := range st.history {
		if h.OrderID == orderID {
			list = append(list, h)
		}
	}
	return list
}
