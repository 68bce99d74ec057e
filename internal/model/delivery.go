package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the logistics state of a delivery.
type DeliveryStatus string

const (
	DeliveryAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryPickedUp  DeliveryStatus = "PICKED_UP"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

// Delivery links an order to the agent carrying it.
type Delivery struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OrderID        uuid.UUID        `json:"orderId" db:"order_id"`
	AgentID        uuid.UUID        `json:"agentId" db:"agent_id"`
	Status         DeliveryStatus   `json:"status" db:"status"`
	PickupAddress  string           `json:"pickupAddress" db:"pickup_address"`
	DropoffAddress string           `json:"dropoffAddress" db:"dropoff_address"`
	EstimatedAt    *time.Time       `json:"estimatedAt,omitempty" db:"estimated_at"`
	DeliveredAt    *time.Time       `json:"deliveredAt,omitempty" db:"delivered_at"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" db:"updated_at"`
	Updates        []DeliveryUpdate `json:"updates,omitempty" db:"-"`
}

// DeliveryUpdate is one tracking point.
type DeliveryUpdate struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	DeliveryID uuid.UUID      `json:"deliveryId" db:"delivery_id"`
	Status     DeliveryStatus `json:"status" db:"status"`
	Latitude   *float64       `json:"latitude,omitempty" db:"latitude"`
	Longitude  *float64       `json:"longitude,omitempty" db:"longitude"`
	Note       string         `json:"note" db:"note"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}

// AssignDeliveryRequest is the payload for POST /api/orders/{id}/delivery.
type AssignDeliveryRequest struct {
	AgentID       uuid.UUID  `json:"agentId"`
	PickupAddress string     `json:"pickupAddress"`
	EstimatedAt   *time.Time `json:"estimatedAt,omitempty"`
}

// DeliveryUpdateRequest is the payload for POST /api/deliveries/{id}/updates.
type DeliveryUpdateRequest struct {
	Status    DeliveryStatus `json:"status"`
	Latitude  *float64       `json:"latitude,omitempty"`
	Longitude *float64       `json:"longitude,omitempty"`
	Note      string         `json:"note"`
}
