package model

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid transition")

// 許可される遷移（ここに無いものは全て拒否）
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted, OrderStatusCancelled},
}

// AllOrderStatuses は定義済みステータスの一覧。
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllOrderStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, n := range orderTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// ValidateTransition は遷移表に無ければ ErrInvalidTransition を返す。
func ValidateTransition(from, to OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
