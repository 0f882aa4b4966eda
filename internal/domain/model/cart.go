package model

import "time"

type CartStatus string

// カートの編集・チェックアウトはカート側の責務。ここでは ACTIVE だけ読む
const CartStatusActive CartStatus = "ACTIVE"

// 注文確定時にはアクティブなカートの明細を消すだけで、カート自体は残す
type Cart struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64      `gorm:"not null;index" json:"user_id"`
	Status    CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
