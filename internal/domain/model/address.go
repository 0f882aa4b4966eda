package model

import (
	"strings"
	"time"
)

// 配送先住所（住所帳側。注文には名称をスナップショットで写す）
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//宛名
	RecipientName string `gorm:"type:varchar(255);not null" json:"recipient_name"`

	//電話番号
	Phone string `gorm:"type:varchar(30);not null" json:"phone"`

	//番地・建物名など
	Detail string `gorm:"type:varchar(500);not null" json:"detail"`

	//解決済みの行政区画名
	WardName     string `gorm:"type:varchar(255)" json:"ward_name"`
	DistrictName string `gorm:"type:varchar(255)" json:"district_name"`
	ProvinceName string `gorm:"type:varchar(255)" json:"province_name"`

	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// FullText は「番地, 区, 郡, 省」の一行表記。
func (a Address) FullText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Detail, a.WardName, a.DistrictName, a.ProvinceName} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
