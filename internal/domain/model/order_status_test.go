package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_AllowedTable(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusConfirmed}:    true,
		{OrderStatusPending, OrderStatusCancelled}:    true,
		{OrderStatusConfirmed, OrderStatusProcessing}: true,
		{OrderStatusConfirmed, OrderStatusCancelled}:  true,
		{OrderStatusProcessing, OrderStatusShipped}:   true,
		{OrderStatusProcessing, OrderStatusCancelled}: true,
		{OrderStatusShipped, OrderStatusCompleted}:    true,
		{OrderStatusShipped, OrderStatusCancelled}:    true,
	}

	//全ペアを総当たり
	for _, from := range AllOrderStatuses() {
		for _, to := range AllOrderStatuses() {
			err := ValidateTransition(from, to)
			if allowed[[2]OrderStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
	assert.False(t, OrderStatus("unknown").Valid())
}

func TestPaymentStatus_Transitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusCompleted))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusFailed))
	assert.True(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusRefunded))
	assert.False(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusCompleted))
	assert.False(t, PaymentStatusRefunded.CanTransitionTo(PaymentStatusPending))
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusRefunded))
}
