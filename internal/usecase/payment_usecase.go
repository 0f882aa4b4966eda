package usecase

import (
	"context"
	"errors"
	"time"

	"ecorder/internal/domain/model"
	"ecorder/internal/gateway"
	"ecorder/internal/metrics"
	repo "ecorder/internal/repository"

	"go.uber.org/zap"
)

// ロールバックさせるための内部エラー
var errRollback = errors.New("rollback")

type PaymentUsecase struct {
	tx     repo.TransactionManager
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewPaymentUsecase(tx repo.TransactionManager, events EventPublisher, log *zap.Logger) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, events: events, log: log, now: time.Now}
}

type ReturnResult struct {
	OrderID     int64
	OrderNumber string
	Success     bool
	Message     string
}

// HandleIPN はゲートウェイからのサーバー間通知を照合する。
// 署名検証が最初。同じ通知が何度来ても結果は1回分だけ反映される。
func (u *PaymentUsecase) HandleIPN(ctx context.Context, a gateway.Adapter, f gateway.Fields) gateway.Outcome {
	outcome, events := u.handleIPN(ctx, a, f)

	metrics.RecordPaymentCallback(string(a.Method()), outcome.String())
	if outcome == gateway.OutcomeAccepted {
		publishAll(ctx, u.events, u.log, events)
	}
	return outcome
}

func (u *PaymentUsecase) handleIPN(ctx context.Context, a gateway.Adapter, f gateway.Fields) (gateway.Outcome, []model.OrderEvent) {
	log := u.log.With(zap.String("gateway", string(a.Method())))

	cb, err := a.Verify(f)
	if errors.Is(err, gateway.ErrInvalidSignature) {
		log.Warn("ipn rejected: invalid signature")
		return gateway.OutcomeInvalidSignature, nil
	}
	if err != nil {
		log.Warn("ipn rejected: malformed", zap.Error(err))
		return gateway.OutcomeOrderNotFound, nil
	}
	log = log.With(zap.String("order_ref", cb.OrderRef), zap.Bool("success", cb.Success))

	number, paymentID, err := model.ParsePaymentRef(cb.OrderRef)
	if err != nil {
		log.Info("ipn: unknown order reference")
		return gateway.OutcomeOrderNotFound, nil
	}

	outcome := gateway.OutcomeInternalError
	var events []model.OrderEvent
	now := u.now()

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByNumberForUpdate(ctx, number)
		if errors.Is(err, repo.ErrNotFound) {
			outcome = gateway.OutcomeOrderNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if o.PaymentMethod != a.Method() {
			outcome = gateway.OutcomeOrderNotFound
			return nil
		}

		if !model.MoneyEqual(cb.Amount, o.TotalAmount) {
			log.Warn("ipn rejected: amount mismatch",
				zap.String("expected", o.TotalAmount.StringFixed(model.MoneyScale)),
				zap.String("got", cb.Amount.StringFixed(model.MoneyScale)),
			)
			outcome = gateway.OutcomeAmountMismatch
			return errRollback
		}

		p, hasPayment, err := namedPayment(ctx, r, o.ID, paymentID)
		if errors.Is(err, repo.ErrNotFound) {
			outcome = gateway.OutcomeOrderNotFound
			return nil
		}
		if err != nil {
			return err
		}

		//すでに確定済みなら何もしない
		if hasPayment && p.Status == model.PaymentStatusCompleted {
			outcome = gateway.OutcomeAccepted
			return nil
		}
		//失敗通知の再送は受理扱い
		if !cb.Success && hasPayment && p.Status == model.PaymentStatusFailed {
			outcome = gateway.OutcomeAccepted
			return nil
		}
		//古い試行への通知は現在の支払いに触れない
		if hasPayment && p.Status != model.PaymentStatusPending {
			outcome = gateway.OutcomeAlreadyResolved
			return nil
		}
		if o.Status != model.OrderStatusPending || o.PaymentStatus != model.PaymentStatusPending {
			outcome = gateway.OutcomeAlreadyResolved
			return nil
		}

		if !hasPayment {
			p = model.Payment{OrderID: o.ID, Method: o.PaymentMethod, Amount: o.TotalAmount, Status: model.PaymentStatusPending}
		}
		if cb.TransactionID != "" {
			txn := cb.TransactionID
			p.TransactionID = &txn
		}
		p.GatewayCode = cb.GatewayCode

		if !cb.Success {
			p.Status = model.PaymentStatusFailed
			o.PaymentStatus = model.PaymentStatusFailed
			if err := savePayment(ctx, r, p, hasPayment); err != nil {
				return err
			}
			if err := r.Orders().Update(ctx, o); err != nil {
				return err
			}
			events = append(events, model.NewOrderEvent(model.OrderEventPaymentFailed, o, now))
			outcome = gateway.OutcomeAccepted
			return nil
		}

		//成功：在庫を引いて注文確定
		if !o.StockDeducted {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			if err := deductStock(ctx, r.Stock(), o.StockLocationID, linesFromItems(items)); err != nil {
				if isInsufficientStock(err) {
					metrics.RecordStockRejection()
					log.Error("ipn: paid order cannot be fulfilled", zap.Error(err))
					outcome = gateway.OutcomeInternalError
					return errRollback
				}
				return err
			}
			o.StockDeducted = true
		}

		paidAt := now
		if cb.PaidAt != nil {
			paidAt = *cb.PaidAt
		}
		p.Status = model.PaymentStatusCompleted
		p.PaidAt = &paidAt
		if err := savePayment(ctx, r, p, hasPayment); err != nil {
			return err
		}

		from := o.Status
		o.Status = model.OrderStatusConfirmed
		o.PaymentStatus = model.PaymentStatusCompleted
		if err := r.Orders().Update(ctx, o); err != nil {
			return err
		}
		if err := r.StatusHistory().Append(ctx, model.OrderStatusHistory{
			OrderID:    o.ID,
			FromStatus: &from,
			ToStatus:   model.OrderStatusConfirmed,
			Note:       "payment confirmed by " + string(a.Method()),
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		if err := r.Carts().ClearByUserID(ctx, o.CustomerID); err != nil {
			return err
		}

		metrics.RecordTransition(string(from), string(model.OrderStatusConfirmed))
		events = append(events, model.NewOrderEvent(model.OrderEventConfirmed, o, now))
		outcome = gateway.OutcomeAccepted
		return nil
	})

	if err != nil && !errors.Is(err, errRollback) {
		log.Error("ipn: transaction failed", zap.Error(err))
		return gateway.OutcomeInternalError, nil
	}
	if outcome == gateway.OutcomeAccepted {
		log.Info("ipn accepted", zap.Int("events", len(events)))
	}
	return outcome, events
}

// namedPayment は参照が指す支払い試行を返す。試行番号のない参照は最新の試行。
// 別の注文の試行を指していれば ErrNotFound。
func namedPayment(ctx context.Context, r repo.TxRepos, orderID, paymentID int64) (model.Payment, bool, error) {
	if paymentID > 0 {
		p, err := r.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return model.Payment{}, false, err
		}
		if p.OrderID != orderID {
			return model.Payment{}, false, repo.ErrNotFound
		}
		return p, true, nil
	}
	p, err := r.Payments().FindLatestByOrderID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Payment{}, false, nil
	}
	if err != nil {
		return model.Payment{}, false, err
	}
	return p, true, nil
}

func savePayment(ctx context.Context, r repo.TxRepos, p model.Payment, exists bool) error {
	if exists {
		return r.Payments().Update(ctx, p)
	}
	_, err := r.Payments().Create(ctx, p)
	return err
}

// DescribeReturn はブラウザのリダイレクト用。読むだけで状態は変えない
func (u *PaymentUsecase) DescribeReturn(ctx context.Context, a gateway.Adapter, f gateway.Fields) ReturnResult {
	cb, err := a.Verify(f)
	if err != nil {
		u.log.Warn("payment return rejected", zap.String("gateway", string(a.Method())), zap.Error(err))
		return ReturnResult{Success: false, Message: "invalid signature"}
	}

	res := ReturnResult{OrderNumber: cb.OrderRef, Success: cb.Success, Message: cb.Message}
	if res.Message == "" {
		if cb.Success {
			res.Message = "payment successful"
		} else {
			res.Message = "payment failed"
		}
	}

	number, _, err := model.ParsePaymentRef(cb.OrderRef)
	if err != nil {
		return ReturnResult{Success: false, Message: "order not found"}
	}
	res.OrderNumber = number
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByNumber(ctx, number)
		if err != nil {
			return err
		}
		res.OrderID = o.ID
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ReturnResult{OrderNumber: number, Success: false, Message: "order not found"}
	}
	if err != nil {
		u.log.Error("payment return: order lookup failed", zap.String("order_ref", cb.OrderRef), zap.Error(err))
		return ReturnResult{OrderNumber: number, Success: false, Message: "payment status unavailable"}
	}
	return res
}
