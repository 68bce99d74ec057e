package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderDispatched OrderStatus = "DISPATCHED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// PaymentStatus is the payment state recorded on an order and on each payment attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSubmitted PaymentStatus = "SUBMITTED"
	PaymentApproved  PaymentStatus = "APPROVED"
	PaymentRejected  PaymentStatus = "REJECTED"
	// PaymentFailed only applies to payment attempts, never to the order.
	PaymentFailed PaymentStatus = "FAILED"
)

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	MethodMpesaSTK    PaymentMethod = "MPESA_STK"
	MethodMpesaManual PaymentMethod = "MPESA_MANUAL"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == MethodMpesaSTK || m == MethodMpesaManual
}

// Order represents a customer order.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	CustomerID      uuid.UUID       `json:"customerId" db:"customer_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee" db:"delivery_fee"`
	Discount        decimal.Decimal `json:"discount" db:"discount"`
	Total           decimal.Decimal `json:"total" db:"total"`
	PromoCode       *string         `json:"promoCode,omitempty" db:"promo_code"`
	DeliveryAddress string          `json:"deliveryAddress" db:"delivery_address"`
	DeliveryPhone   string          `json:"deliveryPhone" db:"delivery_phone"`
	Notes           string          `json:"notes" db:"notes"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	Items           []OrderItem     `json:"items,omitempty" db:"-"`
}

// SellerIDs returns the distinct sellers of the order's items.
func (o *Order) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	var ids []uuid.UUID
	for _, item := range o.Items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		ids = append(ids, item.SellerID)
	}
	return ids
}

// HasSeller reports whether any item of the order is sold by sellerID.
func (o *Order) HasSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// OrderItem represents a line item in an order with a price snapshot.
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	ProductID   uuid.UUID       `json:"productId" db:"product_id"`
	SellerID    uuid.UUID       `json:"sellerId" db:"seller_id"`
	ProductName string          `json:"productName" db:"product_name"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal" db:"line_total"`
}

// TimelineEntry is one event in an order's history.
type TimelineEntry struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	OrderID   uuid.UUID  `json:"orderId" db:"order_id"`
	Event     string     `json:"event" db:"event"`
	Note      string     `json:"note" db:"note"`
	ActorID   *uuid.UUID `json:"actorId,omitempty" db:"actor_id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// NewTimelineEntry builds a timeline row stamped with the current time.
func NewTimelineEntry(orderID uuid.UUID, event, note string, actor *uuid.UUID) TimelineEntry {
	return TimelineEntry{
		ID:        uuid.New(),
		OrderID:   orderID,
		Event:     event,
		Note:      note,
		ActorID:   actor,
		CreatedAt: time.Now(),
	}
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	DeliveryAddress string             `json:"deliveryAddress"`
	DeliveryPhone   string             `json:"deliveryPhone"`
	PaymentMethod   PaymentMethod      `json:"paymentMethod"`
	PromoCode       *string            `json:"promoCode,omitempty"`
	Notes           string             `json:"notes"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// OrderFilter narrows order listings. Exactly one of the scoping ids is set by the
// service according to the viewer's role.
type OrderFilter struct {
	CustomerID    *uuid.UUID
	SellerID      *uuid.UUID
	AgentID       *uuid.UUID
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Page
}

// CancelRequest carries an optional reason for cancellation or rejection.
type CancelRequest struct {
	Reason string `json:"reason"`
}
