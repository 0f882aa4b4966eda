package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// 支払い方法。cod以外はゲートウェイのコード。
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodVNPay PaymentMethod = "vnpay"
	PaymentMethodMoMo  PaymentMethod = "momo"
)

func (m PaymentMethod) IsCOD() bool { return m == PaymentMethodCOD }

type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	CustomerID  int64  `gorm:"not null;index" json:"customer_id"`

	//受取人
	RecipientName  string `gorm:"type:varchar(255);not null" json:"recipient_name"`
	RecipientPhone string `gorm:"type:varchar(30);not null" json:"recipient_phone"`

	//住所スナップショット（住所帳へのFKは持たない）
	ShippingAddress  string `gorm:"type:text;not null" json:"shipping_address"`
	ShippingWard     string `gorm:"type:varchar(255)" json:"shipping_ward"`
	ShippingDistrict string `gorm:"type:varchar(255)" json:"shipping_district"`
	ShippingProvince string `gorm:"type:varchar(255)" json:"shipping_province"`

	//配送オプション
	ShippingServiceID string `gorm:"type:varchar(64)" json:"shipping_service_id"`
	ShippingCarrier   string `gorm:"type:varchar(64)" json:"shipping_carrier"`

	Subtotal    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	ShippingFee decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"shipping_fee"`
	Discount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"discount"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`

	//在庫を引いたかどうか・どの拠点から引いたか
	StockDeducted   bool  `gorm:"not null;default:false" json:"-"`
	StockLocationID int64 `gorm:"not null" json:"-"`

	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// completed / cancelled 以降は変更不可
func (o Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// RecalculateTotal は total = subtotal + shipping_fee - discount を再計算する。
func (o *Order) RecalculateTotal() {
	o.TotalAmount = RoundMoney(o.Subtotal.Add(o.ShippingFee).Sub(o.Discount))
}

// TotalsConsistent は合計金額の不変条件を満たしているか。
func (o Order) TotalsConsistent() bool {
	return MoneyEqual(o.TotalAmount, o.Subtotal.Add(o.ShippingFee).Sub(o.Discount))
}
