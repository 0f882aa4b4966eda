package repository

import (
	"context"

	"ecorder/internal/domain/model"
)

// 管理者操作の監査ログ。書き込みは注文更新と同じトランザクションで行う。
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error

	//注文に紐づく操作を新しい順に最大 limit 件
	ListByOrderID(ctx context.Context, orderID int64, limit int) ([]model.AuditLog, error)
}
