package usecase

import (
	"context"
	"time"

	"ecorder/internal/domain/model"

	"go.uber.org/zap"
)

// 1リクエストでイベント送信に使ってよい時間（IPN の応答を遅らせない）
var publishTimeout = 3 * time.Second

// コミット後に注文イベントを流す先
type EventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

// 送信失敗は注文処理を失敗にしない（ログだけ）。
// リクエストのキャンセルからは切り離すが、全体で publishTimeout までしか待たない。
func publishAll(ctx context.Context, pub EventPublisher, log *zap.Logger, events []model.OrderEvent) {
	if pub == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	for _, ev := range events {
		if err := pub.Publish(ctx, ev); err != nil {
			log.Warn("order event publish failed",
				zap.String("type", string(ev.Type)),
				zap.String("order_number", ev.OrderNumber),
				zap.Error(err),
			)
		}
	}
}
