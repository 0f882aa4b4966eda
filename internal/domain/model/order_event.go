package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	OrderEventPlaced        OrderEventType = "order.placed"
	OrderEventConfirmed     OrderEventType = "order.confirmed"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventCancelled     OrderEventType = "order.cancelled"
	OrderEventPaymentFailed OrderEventType = "payment.failed"
)

// コミット後に通知側へ流すイベント
type OrderEvent struct {
	Type          OrderEventType  `json:"type"`
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	CustomerID    int64           `json:"customer_id"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func NewOrderEvent(t OrderEventType, o Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount,
		OccurredAt:    at,
	}
}
