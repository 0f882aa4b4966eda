package model

import "time"

// 注文明細の修正、支払いステータスの手動変更など。
type AuditAction string

const (
	//注文明細（数量・単価）を修正した操作。
	AuditActionUpdateOrderItem AuditAction = "UPDATE_ORDER_ITEM"
	//支払いステータスを手動で変更した操作。
	AuditActionUpdatePaymentStatus AuditAction = "UPDATE_PAYMENT_STATUS"
	//注文メモを変更した操作。
	AuditActionUpdateOrderNotes AuditAction = "UPDATE_ORDER_NOTES"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder     AuditResourceType = "order"
	AuditResourceOrderItem AuditResourceType = "order_item"
	AuditResourcePayment   AuditResourceType = "payment"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したスタッフのID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//対象が属する注文（明細・支払いの操作も注文ごとに辿れるように）
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
