package model

import "time"

// 注文ステータス遷移の履歴（追記のみ）
type OrderStatusHistory struct {
	ID         int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64        `gorm:"not null;index" json:"order_id"`
	FromStatus *OrderStatus `gorm:"type:varchar(20)" json:"from_status"`
	ToStatus   OrderStatus  `gorm:"type:varchar(20);not null" json:"to_status"`
	Note       string       `gorm:"type:text" json:"note"`
	//nilはシステム（IPNなど）
	ActorID   *int64    `gorm:"index" json:"actor_id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// テーブル名を固定
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
