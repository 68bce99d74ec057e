package service

import (
	"context"

	"poultrymarket/internal/model"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
)

// Timeline events.
const (
	eventOrderPlaced      = "ORDER_PLACED"
	eventOrderConfirmed   = "ORDER_CONFIRMED"
	eventOrderCancelled   = "ORDER_CANCELLED"
	eventOrderDispatched  = "ORDER_DISPATCHED"
	eventOrderDelivered   = "ORDER_DELIVERED"
	eventOrderCompleted   = "ORDER_COMPLETED"
	eventPaymentInitiated = "PAYMENT_INITIATED"
	eventPaymentSubmitted = "PAYMENT_SUBMITTED"
	eventPaymentApproved  = "PAYMENT_APPROVED"
	eventPaymentRejected  = "PAYMENT_REJECTED"
	eventPaymentFailed    = "PAYMENT_FAILED"
	eventDeliveryAssigned = "DELIVERY_ASSIGNED"
	eventDeliveryUpdate   = "DELIVERY_UPDATE"
)

// orderAccess applies the order visibility rules shared by the order, payment and
// delivery services.
type orderAccess struct {
	orders     repository.OrderRepository
	deliveries repository.DeliveryRepository
}

// load returns the order if viewer may see it and ErrOrderNotFound otherwise.
func (a orderAccess) load(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error) {
	order, err := a.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	ok, err := a.canView(ctx, viewer, order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (a orderAccess) canView(ctx context.Context, viewer *model.User, order *model.Order) (bool, error) {
	switch viewer.Role {
	case model.RoleAdmin:
		return true, nil
	case model.RoleCustomer:
		return order.CustomerID == viewer.ID, nil
	case model.RoleSeller, model.RoleCompany:
		return order.HasSeller(viewer.ID), nil
	case model.RoleDeliveryAgent:
		d, err := a.deliveries.GetByOrder(ctx, order.ID)
		if err != nil {
			return false, err
		}
		return d != nil && d.AgentID == viewer.ID, nil
	}
	return false, nil
}

// scope restricts an order listing to what viewer may see.
func scope(viewer *model.User, filter model.OrderFilter) model.OrderFilter {
	filter.CustomerID, filter.SellerID, filter.AgentID = nil, nil, nil

	id := viewer.ID
	switch viewer.Role {
	case model.RoleAdmin:
	case model.RoleSeller, model.RoleCompany:
		filter.SellerID = &id
	case model.RoleDeliveryAgent:
		filter.AgentID = &id
	default:
		filter.CustomerID = &id
	}
	return filter
}

func actorID(user *model.User) *uuid.UUID {
	if user == nil {
		return nil
	}
	id := user.ID
	return &id
}

// partiesOf returns notifications for the customer and every seller of an order.
func partiesOf(order *model.Order, typ model.NotificationType, title, message string) []model.Notification {
	data := map[string]string{"orderId": order.ID.String()}
	out := []model.Notification{model.NewNotification(order.CustomerID, typ, title, message, data)}
	for _, seller := range order.SellerIDs() {
		if seller == order.CustomerID {
			continue
		}
		out = append(out, model.NewNotification(seller, typ, title, message, data))
	}
	return out
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
