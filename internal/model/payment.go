package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider identifies how a payment was collected.
type Provider string

const (
	ProviderLipia    Provider = "LIPIA"
	ProviderIntaSend Provider = "INTASEND"
	ProviderManual   Provider = "MANUAL"
)

// Payment is one attempt to pay for an order.
type Payment struct {
	ID            uuid.UUID           `json:"id" db:"id"`
	OrderID       uuid.UUID           `json:"orderId" db:"order_id"`
	Provider      Provider            `json:"provider" db:"provider"`
	Status        PaymentStatus       `json:"status" db:"status"`
	Amount        decimal.Decimal     `json:"amount" db:"amount"`
	Fee           decimal.Decimal     `json:"fee" db:"fee"`
	Phone         string              `json:"phone" db:"phone"`
	Reference     *string             `json:"reference,omitempty" db:"reference"`
	MpesaReceipt  *string             `json:"mpesaReceipt,omitempty" db:"mpesa_receipt"`
	AmountPaid    decimal.NullDecimal `json:"amountPaid" db:"amount_paid"`
	FailureReason *string             `json:"failureReason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time           `json:"updatedAt" db:"updated_at"`
}

// Approval is the audit record of a payment review.
type Approval struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	PaymentID  uuid.UUID     `json:"paymentId" db:"payment_id"`
	OrderID    uuid.UUID     `json:"orderId" db:"order_id"`
	ReviewerID *uuid.UUID    `json:"reviewerId,omitempty" db:"reviewer_id"`
	Decision   PaymentStatus `json:"decision" db:"decision"`
	Reason     string        `json:"reason" db:"reason"`
	CreatedAt  time.Time     `json:"createdAt" db:"created_at"`
}

// CallbackRecord marks a gateway notification as received.
type CallbackRecord struct {
	ID         uuid.UUID       `db:"id"`
	Provider   Provider        `db:"provider"`
	ExternalID string          `db:"external_id"`
	Payload    json.RawMessage `db:"payload"`
	CreatedAt  time.Time       `db:"created_at"`
}

// STKPushRequest is the payload for POST /api/orders/{id}/payments/stk.
type STKPushRequest struct {
	Provider Provider `json:"provider"`
	Phone    string   `json:"phone"`
}

// ManualPaymentRequest is the payload for POST /api/orders/{id}/payments/manual.
type ManualPaymentRequest struct {
	MpesaCode string          `json:"mpesaCode"`
	Phone     string          `json:"phone"`
	Amount    decimal.Decimal `json:"amount"`
}

// GatewayResult is a provider-neutral view of a payment outcome.
type GatewayResult struct {
	Provider   Provider
	ExternalID string
	Reference  string
	// AccountRef echoes the reference we sent with the push, which is the payment id.
	AccountRef string
	Receipt    string
	Amount     decimal.Decimal
	State      GatewayState
	Reason     string
}

// GatewayState is the normalised gateway outcome.
type GatewayState string

const (
	GatewayPending   GatewayState = "PENDING"
	GatewaySucceeded GatewayState = "SUCCEEDED"
	GatewayFailed    GatewayState = "FAILED"
)

// CallbackResponse is returned to gateways after a callback is processed.
type CallbackResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate"`
}

// ReviewRequest is the admin payload for rejecting a payment.
type ReviewRequest struct {
	Reason string `json:"reason"`
}
