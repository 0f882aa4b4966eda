package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ecorder/internal/domain/model"
	"ecorder/internal/metrics"
	repo "ecorder/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx         repo.TransactionManager
	events     EventPublisher
	log        *zap.Logger
	locationID int64
	now        func() time.Time
}

func NewAdminOrderUsecase(tx repo.TransactionManager, events EventPublisher, log *zap.Logger, locationID int64) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, events: events, log: log, locationID: locationID, now: time.Now}
}

// nil の項目は変更しない
type AdminUpdateOrderInput struct {
	OrderStatus   *string
	PaymentStatus *string
	Notes         *string
}

type AdminUpdateOrderItemInput struct {
	Quantity  *int64
	UnitPrice *decimal.Decimal
}

const auditTrailLimit = 100

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if f.PaymentStatus != "" && !model.PaymentStatus(f.PaymentStatus).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment status")
	}

	out := OrderListOutput{Page: f.Page, Limit: f.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError(u.log, "order.list_admin", err)
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

func (u *AdminOrderUsecase) Detail(ctx context.Context, orderID int64) (OrderDetailOutput, error) {
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
		out, err = loadDetail(ctx, r, o)
		if err != nil {
			return dbError(u.log, "order.detail", err)
		}
		//スタッフ向けには操作履歴も返す
		out.AuditTrail, err = r.AuditLogs().ListByOrderID(ctx, o.ID, auditTrailLimit)
		if err != nil {
			return dbError(u.log, "audit.list", err)
		}
		return nil
	})
	if err != nil {
		return OrderDetailOutput{}, err
	}
	return out, nil
}

// UpdateOrder はスタッフによる状態遷移・支払い状態・メモの変更。
// 注文行をロックしたまま1トランザクションで在庫と支払いも合わせて動かす。
func (u *AdminOrderUsecase) UpdateOrder(ctx context.Context, actorID, orderID int64, in AdminUpdateOrderInput) (OrderDetailOutput, error) {
	if actorID <= 0 {
		return OrderDetailOutput{}, errUnauthorized
	}
	if orderID <= 0 {
		return OrderDetailOutput{}, errInvalidID
	}
	if in.OrderStatus == nil && in.PaymentStatus == nil && in.Notes == nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	var toStatus model.OrderStatus
	if in.OrderStatus != nil {
		toStatus = model.OrderStatus(strings.ToLower(strings.TrimSpace(*in.OrderStatus)))
		if !toStatus.Valid() {
			return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}
	var toPayment model.PaymentStatus
	if in.PaymentStatus != nil {
		toPayment = model.PaymentStatus(strings.ToLower(strings.TrimSpace(*in.PaymentStatus)))
		if !toPayment.Valid() {
			return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment status")
		}
	}
	if in.Notes != nil && len(*in.Notes) > maxNotesLen {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "notes too long")
	}

	var out OrderDetailOutput
	var events []model.OrderEvent
	now := u.now()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return dbError(u.log, "order.lock", err)
		}
		// 終端ガード
		if o.IsTerminal() {
			return errOrderFinalized
		}

		if in.OrderStatus != nil {
			ev, err := u.transition(ctx, r, &o, toStatus, actorID, now)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}

		if in.PaymentStatus != nil {
			if err := u.changePaymentStatus(ctx, r, &o, toPayment, actorID, now); err != nil {
				return err
			}
		}

		if in.Notes != nil {
			notes := strings.TrimSpace(*in.Notes)
			if notes != o.Notes {
				if err := audit(ctx, r, actorID, o.ID, model.AuditActionUpdateOrderNotes, model.AuditResourceOrder, o.ID,
					map[string]any{"notes": o.Notes}, map[string]any{"notes": notes}, now); err != nil {
					return dbError(u.log, "audit.create", err)
				}
				o.Notes = notes
			}
		}

		if err := r.Orders().Update(ctx, o); err != nil {
			return dbError(u.log, "order.update", err)
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

	publishAll(ctx, u.events, u.log, events)
	return out, nil
}

// transition は状態遷移表に沿って1段進め、在庫・支払いを合わせて更新する
func (u *AdminOrderUsecase) transition(ctx context.Context, r repo.TxRepos, o *model.Order, to model.OrderStatus, actorID int64, now time.Time) (model.OrderEvent, error) {
	from := o.Status
	if err := model.ValidateTransition(from, to); err != nil {
		u.log.Info("order transition rejected",
			zap.String("order_number", o.OrderNumber),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return model.OrderEvent{}, errInvalidTransition
	}

	if o.StockLocationID == 0 {
		o.StockLocationID = u.locationID
	}

	evType := model.OrderEventStatusChanged
	switch to {
	case model.OrderStatusConfirmed:
		evType = model.OrderEventConfirmed
		//COD は注文時に引き済み。二重に引かない
		if !o.StockDeducted {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return model.OrderEvent{}, dbError(u.log, "order_item.list", err)
			}
			if err := deductStock(ctx, r.Stock(), o.StockLocationID, linesFromItems(items)); err != nil {
				if isInsufficientStock(err) {
					metrics.RecordStockRejection()
					return model.OrderEvent{}, errInsufficientStock
				}
				return model.OrderEvent{}, dbError(u.log, "stock.deduct", err)
			}
			o.StockDeducted = true
		}
		if o.PaymentMethod.IsCOD() {
			if err := u.completeCODPayment(ctx, r, o, now); err != nil {
				return model.OrderEvent{}, err
			}
		}

	case model.OrderStatusCancelled:
		evType = model.OrderEventCancelled
		//出荷後のキャンセルは返品扱いなので在庫は戻さない
		if o.StockDeducted && from != model.OrderStatusShipped {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return model.OrderEvent{}, dbError(u.log, "order_item.list", err)
			}
			if err := restoreStock(ctx, r.Stock(), o.StockLocationID, linesFromItems(items)); err != nil {
				return model.OrderEvent{}, dbError(u.log, "stock.restore", err)
			}
			o.StockDeducted = false
		}
		if err := u.settleCancelledPayment(ctx, r, o); err != nil {
			return model.OrderEvent{}, err
		}
	}

	o.Status = to
	if err := r.StatusHistory().Append(ctx, model.OrderStatusHistory{
		OrderID:    o.ID,
		FromStatus: &from,
		ToStatus:   to,
		ActorID:    &actorID,
		CreatedAt:  now,
	}); err != nil {
		return model.OrderEvent{}, dbError(u.log, "history.append", err)
	}

	metrics.RecordTransition(string(from), string(to))
	u.log.Info("order transitioned",
		zap.String("order_number", o.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64("actor_id", actorID),
	)
	return model.NewOrderEvent(evType, *o, now), nil
}

// COD の確認時点で支払いを completed にする（無ければ作る）
func (u *AdminOrderUsecase) completeCODPayment(ctx context.Context, r repo.TxRepos, o *model.Order, now time.Time) error {
	p, err := r.Payments().FindLatestByOrderID(ctx, o.ID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return dbError(u.log, "payment.latest", err)
	}
	paidAt := now
	switch {
	case errors.Is(err, repo.ErrNotFound):
		if _, err := r.Payments().Create(ctx, model.Payment{
			OrderID: o.ID,
			Method:  o.PaymentMethod,
			Amount:  o.TotalAmount,
			Status:  model.PaymentStatusCompleted,
			PaidAt:  &paidAt,
		}); err != nil {
			return dbError(u.log, "payment.create", err)
		}
	case p.Status == model.PaymentStatusPending:
		p.Status = model.PaymentStatusCompleted
		p.PaidAt = &paidAt
		if err := r.Payments().Update(ctx, p); err != nil {
			return dbError(u.log, "payment.update", err)
		}
	}
	o.PaymentStatus = model.PaymentStatusCompleted
	return nil
}

// キャンセル時：completed は refunded、pending は failed
func (u *AdminOrderUsecase) settleCancelledPayment(ctx context.Context, r repo.TxRepos, o *model.Order) error {
	p, err := r.Payments().FindLatestByOrderID(ctx, o.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dbError(u.log, "payment.latest", err)
	}

	var next model.PaymentStatus
	switch p.Status {
	case model.PaymentStatusCompleted:
		next = model.PaymentStatusRefunded
	case model.PaymentStatusPending:
		next = model.PaymentStatusFailed
	default:
		return nil
	}
	p.Status = next
	if err := r.Payments().Update(ctx, p); err != nil {
		return dbError(u.log, "payment.update", err)
	}
	o.PaymentStatus = next
	return nil
}

// 支払い状態の手動変更（監査ログを残す）
func (u *AdminOrderUsecase) changePaymentStatus(ctx context.Context, r repo.TxRepos, o *model.Order, to model.PaymentStatus, actorID int64, now time.Time) error {
	p, err := r.Payments().FindLatestByOrderID(ctx, o.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "payment not found")
	}
	if err != nil {
		return dbError(u.log, "payment.latest", err)
	}
	if p.Status == to {
		return nil
	}
	if !p.Status.CanTransitionTo(to) {
		return NewHTTPError(http.StatusConflict, "invalid payment status transition")
	}

	before := map[string]any{"status": p.Status}
	p.Status = to
	if to == model.PaymentStatusCompleted {
		paidAt := now
		p.PaidAt = &paidAt
	}
	if err := r.Payments().Update(ctx, p); err != nil {
		return dbError(u.log, "payment.update", err)
	}
	o.PaymentStatus = to

	if err := audit(ctx, r, actorID, o.ID, model.AuditActionUpdatePaymentStatus, model.AuditResourcePayment, p.ID,
		before, map[string]any{"status": to}, now); err != nil {
		return dbError(u.log, "audit.create", err)
	}
	return nil
}

// UpdateOrderItem は明細の数量・単価を直し、小計と合計を再計算する。
// 在庫台帳とは突き合わせない。
func (u *AdminOrderUsecase) UpdateOrderItem(ctx context.Context, actorID, orderID, itemID int64, in AdminUpdateOrderItemInput) (OrderDetailOutput, error) {
	if actorID <= 0 {
		return OrderDetailOutput{}, errUnauthorized
	}
	if orderID <= 0 || itemID <= 0 {
		return OrderDetailOutput{}, errInvalidID
	}
	if in.Quantity == nil && in.UnitPrice == nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid unit price")
	}

	var out OrderDetailOutput
	now := u.now()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return dbError(u.log, "order.lock", err)
		}
		if o.IsTerminal() {
			return errOrderFinalized
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError(u.log, "order_item.list", err)
		}
		idx := -1
		for i := range items {
			if items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return errNotFound
		}

		it := &items[idx]
		before := map[string]any{"quantity": it.Quantity, "unit_price": it.UnitPrice, "line_total": it.LineTotal}
		if in.Quantity != nil {
			it.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			it.UnitPrice = model.RoundMoney(*in.UnitPrice)
		}
		it.RecalculateLine()
		if err := r.OrderItems().Update(ctx, *it); err != nil {
			return dbError(u.log, "order_item.update", err)
		}

		o.Subtotal = model.SumLines(items)
		o.RecalculateTotal()
		if err := r.Orders().Update(ctx, o); err != nil {
			return dbError(u.log, "order.update", err)
		}

		after := map[string]any{"quantity": it.Quantity, "unit_price": it.UnitPrice, "line_total": it.LineTotal}
		if err := audit(ctx, r, actorID, o.ID, model.AuditActionUpdateOrderItem, model.AuditResourceOrderItem, it.ID, before, after, now); err != nil {
			return dbError(u.log, "audit.create", err)
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

// 監査ログ
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す
func audit(ctx context.Context, r repo.TxRepos, actorID, orderID int64, action model.AuditAction, res model.AuditResourceType, resID int64, before, after map[string]any, now time.Time) error {
	b, err := json.Marshal(before)
	if err != nil {
		return err
	}
	a, err := json.Marshal(after)
	if err != nil {
		return err
	}
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: res,
		ResourceID:   resID,
		OrderID:      orderID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    now,
	})
}
