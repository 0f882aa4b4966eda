package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// 1注文×1支払い試行ごとに1行。pendingは注文につき同時に1行まで。
type Payment struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"not null;index;uniqueIndex:uq_payments_order_pending,where:status = 'pending'" json:"order_id"`
	Method        PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	TransactionID *string         `gorm:"type:varchar(100);index" json:"transaction_id"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	GatewayCode   string          `gorm:"type:varchar(20)" json:"gateway_code"`
	PaidAt        *time.Time      `json:"paid_at"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 支払いは pending から1度だけ終端へ進む（completed は refunded にだけ進める）
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, n := range paymentTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}
