package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies notifications; some types are also emailed.
type NotificationType string

const (
	NotifyOrderPlaced      NotificationType = "ORDER_PLACED"
	NotifyOrderStatus      NotificationType = "ORDER_STATUS"
	NotifyPaymentSubmitted NotificationType = "PAYMENT_SUBMITTED"
	NotifyPaymentApproved  NotificationType = "PAYMENT_APPROVED"
	NotifyPaymentRejected  NotificationType = "PAYMENT_REJECTED"
	NotifyPaymentFailed    NotificationType = "PAYMENT_FAILED"
	NotifyDeliveryAssigned NotificationType = "DELIVERY_ASSIGNED"
	NotifyDeliveryUpdate   NotificationType = "DELIVERY_UPDATE"
	NotifyNewMessage       NotificationType = "NEW_MESSAGE"
	NotifyNewComment       NotificationType = "NEW_COMMENT"
	NotifyAuthorReviewed   NotificationType = "AUTHOR_REVIEWED"
)

// Emailed reports whether notifications of this type also go out by email.
func (t NotificationType) Emailed() bool {
	switch t {
	case NotifyOrderPlaced, NotifyPaymentApproved, NotifyPaymentRejected,
		NotifyDeliveryAssigned, NotifyAuthorReviewed:
		return true
	}
	return false
}

// Notification is an in-app message to one user.
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"userId" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Data      json.RawMessage  `json:"data,omitempty" db:"data"`
	ReadAt    *time.Time       `json:"readAt,omitempty" db:"read_at"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// NewNotification builds a notification with a fresh id. data may be nil.
func NewNotification(userID uuid.UUID, typ NotificationType, title, message string, data map[string]string) Notification {
	var raw json.RawMessage
	if len(data) > 0 {
		raw, _ = json.Marshal(data)
	}
	return Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      raw,
		CreatedAt: time.Now(),
	}
}
