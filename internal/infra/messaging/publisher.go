package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"ecorder/internal/domain/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 注文イベントを Kafka に流す
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  5,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   10 * time.Second,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error(fmt.Sprintf("kafka writer: "+msg, args...))
		}),
	}
	return newKafkaPublisher(w, log)
}

func newKafkaPublisher(w messageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log}
}

// 同じ注文のイベントは同じパーティションに入る（キー=注文番号）
func (p *KafkaPublisher) Publish(ctx context.Context, ev model.OrderEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.OrderNumber),
		Value: b,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.log.Debug("order event published",
		zap.String("type", string(ev.Type)),
		zap.String("order_number", ev.OrderNumber),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KAFKA_BROKERS 未設定時に使う
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, model.OrderEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
