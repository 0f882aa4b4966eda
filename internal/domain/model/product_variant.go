package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カタログ側のバリアント（読み取り専用）
type ProductVariant struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64           `gorm:"not null;index" json:"product_id"`
	SKU         string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"sku"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	WeightGrams int64           `gorm:"not null;default:0" json:"weight_grams"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
