package model

import "time"

// 拠点×バリアントごとの引当可能数。
// 直接書き換えず、在庫台帳の減算/加算だけで更新する。
type StockRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LocationID int64     `gorm:"not null;uniqueIndex:uq_stock_location_variant" json:"location_id"`
	VariantID  int64     `gorm:"not null;uniqueIndex:uq_stock_location_variant;index" json:"variant_id"`
	Quantity   int64     `gorm:"not null;default:0;check:chk_stock_quantity_non_negative,quantity >= 0" json:"quantity"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
