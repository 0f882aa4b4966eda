package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文時点の名前・SKU・単価を保存する（カタログ変更の影響を受けない）
type OrderItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64           `gorm:"not null;index" json:"order_id"`
	VariantID    int64           `gorm:"not null;index" json:"variant_id"`
	SKUSnapshot  string          `gorm:"type:varchar(100);not null" json:"sku"`
	NameSnapshot string          `gorm:"type:varchar(255);not null" json:"name"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	Quantity     int64           `gorm:"not null" json:"quantity"`
	LineTotal    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"line_total"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (it *OrderItem) RecalculateLine() {
	it.LineTotal = RoundMoney(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
}

// SumLines は明細合計（小計）。
func SumLines(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return RoundMoney(sum)
}
