package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderDispatched, false},
		{OrderConfirmed, OrderDispatched, true},
		{OrderConfirmed, OrderCancelled, true},
		{OrderDispatched, OrderDelivered, true},
		{OrderDispatched, OrderCancelled, false},
		{OrderDelivered, OrderCompleted, true},
		{OrderCompleted, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPaymentStatus_CanTransition(t *testing.T) {
	assert.True(t, PaymentPending.CanTransition(PaymentSubmitted))
	assert.True(t, PaymentPending.CanTransition(PaymentApproved))
	assert.True(t, PaymentSubmitted.CanTransition(PaymentApproved))
	assert.True(t, PaymentSubmitted.CanTransition(PaymentRejected))
	assert.True(t, PaymentRejected.CanTransition(PaymentSubmitted))
	assert.False(t, PaymentPending.CanTransition(PaymentRejected))
	assert.False(t, PaymentApproved.CanTransition(PaymentRejected))
	assert.False(t, PaymentApproved.CanTransition(PaymentSubmitted))
}

func TestDeliveryStatus_CanTransition(t *testing.T) {
	assert.True(t, DeliveryAssigned.CanTransition(DeliveryPickedUp))
	assert.True(t, DeliveryPickedUp.CanTransition(DeliveryInTransit))
	assert.True(t, DeliveryInTransit.CanTransition(DeliveryDelivered))
	assert.True(t, DeliveryInTransit.CanTransition(DeliveryFailed))
	assert.False(t, DeliveryPickedUp.CanTransition(DeliveryDelivered))
	assert.False(t, DeliveryAssigned.CanTransition(DeliveryDelivered))
	assert.False(t, DeliveryDelivered.CanTransition(DeliveryFailed))
	assert.False(t, DeliveryFailed.CanTransition(DeliveryAssigned))
}

func TestMachines_AvailableTransitions(t *testing.T) {
	assert.ElementsMatch(t, []string{"IN_TRANSIT", "FAILED"}, DeliveryMachine(DeliveryPickedUp).AvailableTransitions())
	assert.ElementsMatch(t, []string{"DISPATCHED", "CANCELLED"}, OrderMachine(OrderConfirmed).AvailableTransitions())
	assert.ElementsMatch(t, []string{"SUBMITTED", "APPROVED"}, PaymentMachine(PaymentRejected).AvailableTransitions())
	assert.Empty(t, OrderMachine(OrderCompleted).AvailableTransitions())
	assert.Empty(t, PaymentMachine(PaymentApproved).AvailableTransitions())
}

func TestOrder_SellerIDs(t *testing.T) {
	s1, s2 := uuid.New(), uuid.New()
	order := &Order{Items: []OrderItem{{SellerID: s1}, {SellerID: s2}, {SellerID: s1}}}

	assert.Equal(t, []uuid.UUID{s1, s2}, order.SellerIDs())
	assert.True(t, order.HasSeller(s2))
	assert.False(t, order.HasSeller(uuid.New()))
}

func TestOrderedPair(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	x, y := OrderedPair(b, a)
	assert.Equal(t, a, x)
	assert.Equal(t, b, y)

	conv := &Conversation{UserA: a, UserB: b}
	assert.True(t, conv.HasParticipant(b))
	assert.Equal(t, a, conv.Other(b))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, ErrorCode(ErrOrderNotFound))
	assert.Equal(t, ErrCodeValidation, ErrorCode(fmt.Errorf("wrapped: %w", Validationf("bad %s", "field"))))
	assert.Equal(t, ErrCodeInternalError, ErrorCode(errors.New("boom")))
}

func TestNotificationType_Emailed(t *testing.T) {
	assert.True(t, NotifyPaymentApproved.Emailed())
	assert.False(t, NotifyNewMessage.Emailed())

	n := NewNotification(uuid.New(), NotifyOrderPlaced, "t", "m", map[string]string{"orderId": "x"})
	assert.JSONEq(t, `{"orderId":"x"}`, string(n.Data))
	assert.Nil(t, NewNotification(uuid.New(), NotifyOrderPlaced, "t", "m", nil).Data)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidTransition, http.StatusBadRequest},
		{ErrCodeInvalidPromoCode, http.StatusBadRequest},
		{ErrCodeUnauthorised, http.StatusUnauthorized},
		{ErrCodeAccountSuspended, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeTokenExpired, http.StatusGone},
		{ErrCodeProductUnavailable, http.StatusGone},
		{ErrCodeGatewayError, http.StatusBadGateway},
		{ErrCodeInternalError, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}
