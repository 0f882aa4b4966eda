package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"ecorder/internal/domain/model"
	"ecorder/internal/gateway"
	"ecorder/internal/metrics"
	repo "ecorder/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxNotesLen = 1000

type OrderUsecase struct {
	tx         repo.TransactionManager
	gateways   *gateway.Registry
	events     EventPublisher
	log        *zap.Logger
	locationID int64

	now       func() time.Time
	newSuffix func() string
}

// locationID は在庫を引く拠点（起動時に解決したもの）
func NewOrderUsecase(tx repo.TransactionManager, gateways *gateway.Registry, events EventPublisher, log *zap.Logger, locationID int64) *OrderUsecase {
	return &OrderUsecase{
		tx:         tx,
		gateways:   gateways,
		events:     events,
		log:        log,
		locationID: locationID,
		now:        time.Now,
		newSuffix:  uuid.NewString,
	}
}

type ShippingOption struct {
	ServiceID string
	Fee       decimal.Decimal
	Carrier   string
}

type OrderLineInput struct {
	VariantID int64
	Quantity  int64
}

type PlaceOrderInput struct {
	AddressID     int64
	Shipping      ShippingOption
	PaymentMethod string
	Notes         string
	// 空ならカートの中身を使う
	Items    []OrderLineInput
	ClientIP string
}

type PlaceOrderOutput struct {
	Order           model.Order       `json:"order"`
	Items           []model.OrderItem `json:"items"`
	ShippingAddress string            `json:"shippingAddress"`
	PaymentURL      string            `json:"paymentUrl,omitempty"`
}

type OrderDetailOutput struct {
	Order    model.Order                `json:"order"`
	Items    []model.OrderItem          `json:"items"`
	Payments []model.Payment            `json:"payments"`
	History  []model.OrderStatusHistory `json:"history"`
	// スタッフ向け詳細のみ
	AuditTrail []model.AuditLog `json:"auditTrail,omitempty"`
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type PaymentURLOutput struct {
	Order      model.Order `json:"order"`
	PaymentURL string      `json:"paymentUrl"`
}

func (u *OrderUsecase) validatePlace(customerID int64, in PlaceOrderInput) (model.PaymentMethod, error) {
	if customerID <= 0 {
		return "", errUnauthorized
	}
	if in.AddressID <= 0 {
		return "", NewHTTPError(http.StatusBadRequest, "invalid address")
	}
	if in.Shipping.Fee.IsNegative() {
		return "", NewHTTPError(http.StatusBadRequest, "invalid shipping fee")
	}
	if len(in.Notes) > maxNotesLen {
		return "", NewHTTPError(http.StatusBadRequest, "notes too long")
	}
	for _, l := range in.Items {
		if l.VariantID <= 0 || l.Quantity <= 0 {
			return "", NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}

	method := model.PaymentMethod(strings.ToLower(strings.TrimSpace(in.PaymentMethod)))
	if method.IsCOD() {
		return method, nil
	}
	if _, err := u.gateways.Get(method); err != nil {
		return "", NewHTTPError(http.StatusBadRequest, "invalid payment method")
	}
	return method, nil
}

// PlaceOrder はカート（または指定明細）から注文を1トランザクションで作る。
// COD はその場で在庫を引き、オンライン決済は IPN で確定したときに引く。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, customerID int64, in PlaceOrderInput) (PlaceOrderOutput, error) {
	method, err := u.validatePlace(customerID, in)
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	var out PlaceOrderOutput
	var payment model.Payment
	now := u.now()

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//明細（指定が無ければカート）
		var lines []stockLine
		if len(in.Items) > 0 {
			for _, l := range in.Items {
				lines = append(lines, stockLine{VariantID: l.VariantID, Quantity: l.Quantity})
			}
		} else {
			cartItems, err := r.Carts().ListActiveItemsByUserID(ctx, customerID)
			if err != nil {
				return dbError(u.log, "cart.list", err)
			}
			for _, ci := range cartItems {
				if ci.Quantity <= 0 {
					continue
				}
				lines = append(lines, stockLine{VariantID: ci.VariantID, Quantity: ci.Quantity})
			}
		}
		if len(lines) == 0 {
			return NewHTTPError(http.StatusBadRequest, "empty cart")
		}
		lines = mergeLines(lines)

		//バリアント（価格・SKU）
		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.VariantID)
		}
		variants, err := r.Variants().FindByIDs(ctx, ids)
		if err != nil {
			return dbError(u.log, "variant.find", err)
		}
		byID := make(map[int64]model.ProductVariant, len(variants))
		for _, v := range variants {
			byID[v.ID] = v
		}
		for _, l := range lines {
			if v, ok := byID[l.VariantID]; !ok || !v.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid variant")
			}
		}

		//在庫を行ロックして全行足りるか確認（一部だけの注文は作らない）
		if err := checkStock(ctx, r.Stock(), u.locationID, lines); err != nil {
			return u.stockError(err, customerID)
		}

		//住所スナップショット
		addr, err := r.Addresses().FindByID(ctx, in.AddressID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "invalid address")
		}
		if err != nil {
			return dbError(u.log, "address.find", err)
		}
		if addr.UserID != customerID {
			return NewHTTPError(http.StatusBadRequest, "invalid address")
		}

		items := make([]model.OrderItem, 0, len(lines))
		for _, l := range lines {
			v := byID[l.VariantID]
			it := model.OrderItem{
				VariantID:    v.ID,
				SKUSnapshot:  v.SKU,
				NameSnapshot: v.Name,
				UnitPrice:    model.RoundMoney(v.Price),
				Quantity:     l.Quantity,
				CreatedAt:    now,
			}
			it.RecalculateLine()
			items = append(items, it)
		}

		order := model.Order{
			OrderNumber:       model.NewOrderNumber(now, u.newSuffix()),
			CustomerID:        customerID,
			RecipientName:     addr.RecipientName,
			RecipientPhone:    addr.Phone,
			ShippingAddress:   addr.FullText(),
			ShippingWard:      addr.WardName,
			ShippingDistrict:  addr.DistrictName,
			ShippingProvince:  addr.ProvinceName,
			ShippingServiceID: strings.TrimSpace(in.Shipping.ServiceID),
			ShippingCarrier:   strings.TrimSpace(in.Shipping.Carrier),
			Subtotal:          model.SumLines(items),
			ShippingFee:       model.RoundMoney(in.Shipping.Fee),
			Discount:          decimal.Zero,
			PaymentMethod:     method,
			Status:            model.OrderStatusPending,
			PaymentStatus:     model.PaymentStatusPending,
			StockLocationID:   u.locationID,
			Notes:             strings.TrimSpace(in.Notes),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		order.RecalculateTotal()

		//CODはここで在庫を引く
		if method.IsCOD() {
			if err := deductStock(ctx, r.Stock(), u.locationID, lines); err != nil {
				return u.stockError(err, customerID)
			}
			order.StockDeducted = true
		}

		orderID, err := r.Orders().Create(ctx, order)
		if errors.Is(err, repo.ErrDuplicate) {
			u.log.Warn("order number collision", zap.String("order_number", order.OrderNumber))
			return NewHTTPError(http.StatusServiceUnavailable, "order number conflict")
		}
		if err != nil {
			return dbError(u.log, "order.create", err)
		}
		order.ID = orderID

		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return dbError(u.log, "order_item.create", err)
		}

		if err := r.StatusHistory().Append(ctx, model.OrderStatusHistory{
			OrderID:   orderID,
			ToStatus:  model.OrderStatusPending,
			Note:      "order placed",
			ActorID:   &customerID,
			CreatedAt: now,
		}); err != nil {
			return dbError(u.log, "history.append", err)
		}

		//支払いレコード（1注文につきpendingは1件）
		payment, err = r.Payments().Create(ctx, model.Payment{
			OrderID: orderID,
			Method:  method,
			Amount:  order.TotalAmount,
			Status:  model.PaymentStatusPending,
		})
		if err != nil {
			return dbError(u.log, "payment.create", err)
		}

		//オンライン決済のカートは決済確定まで残す
		if method.IsCOD() {
			if err := r.Carts().ClearByUserID(ctx, customerID); err != nil {
				return dbError(u.log, "cart.clear", err)
			}
		}

		out = PlaceOrderOutput{
			Order:           order,
			Items:           items,
			ShippingAddress: order.ShippingAddress,
		}
		return nil
	})
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	metrics.RecordOrderPlaced(string(method))
	u.log.Info("order placed",
		zap.String("order_number", out.Order.OrderNumber),
		zap.Int64("customer_id", customerID),
		zap.String("payment_method", string(method)),
		zap.String("total", out.Order.TotalAmount.StringFixed(model.MoneyScale)),
	)
	publishAll(ctx, u.events, u.log, []model.OrderEvent{model.NewOrderEvent(model.OrderEventPlaced, out.Order, now)})

	if !method.IsCOD() {
		//URLが取れなくても注文は残る（/orders/:id/payments で取り直せる）
		url, err := u.paymentURL(ctx, out.Order, payment, in.ClientIP)
		if err != nil {
			u.log.Warn("payment url failed", zap.String("order_number", out.Order.OrderNumber), zap.Error(err))
		}
		out.PaymentURL = url
	}
	return out, nil
}

func (u *OrderUsecase) stockError(err error, customerID int64) error {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		metrics.RecordStockRejection()
		u.log.Info("order rejected: insufficient stock",
			zap.Int64("customer_id", customerID),
			zap.Int64("variant_id", ise.VariantID),
			zap.Int64("requested", ise.Requested),
			zap.Int64("available", ise.Available),
		)
		return errInsufficientStock
	}
	return dbError(u.log, "stock.check", err)
}

// 参照は支払い試行ごと（IPN はこの参照で対象の支払いを特定する）
func (u *OrderUsecase) paymentURL(ctx context.Context, o model.Order, p model.Payment, clientIP string) (string, error) {
	a, err := u.gateways.Get(o.PaymentMethod)
	if err != nil {
		return "", err
	}
	return a.PaymentURL(ctx, gateway.PaymentRequest{
		OrderRef:  model.PaymentRef(o.OrderNumber, p.ID),
		Amount:    o.TotalAmount,
		ClientIP:  clientIP,
		CreatedAt: u.now(),
	})
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, customerID int64, page, limit int) (OrderListOutput, error) {
	if customerID <= 0 {
		return OrderListOutput{}, errUnauthorized
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	out := OrderListOutput{Page: page, Limit: limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByCustomerID(ctx, customerID, page, limit)
		if err != nil {
			return dbError(u.log, "order.list", err)
		}
		out.Items = orders
		out.Total = total
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, customerID int64, orderID int64) (OrderDetailOutput, error) {
	if customerID <= 0 {
		return OrderDetailOutput{}, errUnauthorized
	}
	if orderID <= 0 {
		return OrderDetailOutput{}, errInvalidID
	}

	var out OrderDetailOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return dbError(u.log, "order.find", err)
		}
		//他人の注文は「存在しない扱い」にする
		if o.CustomerID != customerID {
			return errNotFound
		}

		out, err = loadDetail(ctx, r, o)
		if err != nil {
			return dbError(u.log, "order.detail", err)
		}
		return nil
	})
	if err != nil {
		return OrderDetailOutput{}, err
	}
	return out, nil
}

// RetryPayment はオンライン決済の注文に対して決済URLを取り直す。
// 直前の支払いが failed なら新しい pending を作り、pending ならそれを使い回す。
func (u *OrderUsecase) RetryPayment(ctx context.Context, customerID, orderID int64, clientIP string) (PaymentURLOutput, error) {
	if customerID <= 0 {
		return PaymentURLOutput{}, errUnauthorized
	}
	if orderID <= 0 {
		return PaymentURLOutput{}, errInvalidID
	}

	var order model.Order
	var attempt model.Payment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return dbError(u.log, "order.lock", err)
		}
		if o.CustomerID != customerID {
			return errNotFound
		}
		if o.PaymentMethod.IsCOD() {
			return NewHTTPError(http.StatusBadRequest, "order is cash on delivery")
		}
		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "order is not awaiting payment")
		}

		latest, err := r.Payments().FindLatestByOrderID(ctx, o.ID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return dbError(u.log, "payment.latest", err)
		}
		if err == nil && latest.Status == model.PaymentStatusPending {
			order, attempt = o, latest
			return nil
		}
		if err == nil && latest.Status != model.PaymentStatusFailed {
			return NewHTTPError(http.StatusConflict, "order is not awaiting payment")
		}

		p, err := r.Payments().Create(ctx, model.Payment{
			OrderID: o.ID,
			Method:  o.PaymentMethod,
			Amount:  o.TotalAmount,
			Status:  model.PaymentStatusPending,
		})
		if err != nil {
			return dbError(u.log, "payment.create", err)
		}
		o.PaymentStatus = model.PaymentStatusPending
		if err := r.Orders().Update(ctx, o); err != nil {
			return dbError(u.log, "order.update", err)
		}
		order, attempt = o, p
		return nil
	})
	if err != nil {
		return PaymentURLOutput{}, err
	}

	url, err := u.paymentURL(ctx, order, attempt, clientIP)
	if err != nil {
		u.log.Warn("payment url failed", zap.String("order_number", order.OrderNumber), zap.Error(err))
		return PaymentURLOutput{}, NewHTTPError(http.StatusServiceUnavailable, "payment gateway unavailable")
	}
	return PaymentURLOutput{Order: order, PaymentURL: url}, nil
}

func loadDetail(ctx context.Context, r repo.TxRepos, o model.Order) (OrderDetailOutput, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDetailOutput{}, err
	}
	payments, err := r.Payments().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDetailOutput{}, err
	}
	history, err := r.StatusHistory().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDetailOutput{}, err
	}
	return OrderDetailOutput{Order: o, Items: items, Payments: payments, History: history}, nil
}
