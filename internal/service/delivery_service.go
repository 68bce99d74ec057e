package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"poultrymarket/internal/model"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// deliveryService implements DeliveryService.
type deliveryService struct {
	orderAccess
	tx       repository.TxManager
	users    repository.UserRepository
	notifier Notifier
	logger   zerolog.Logger
}

// NewDeliveryService creates a new delivery service.
func NewDeliveryService(
	tx repository.TxManager,
	orderRepo repository.OrderRepository,
	deliveryRepo repository.DeliveryRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	logger zerolog.Logger,
) DeliveryService {
	return &deliveryService{
		orderAccess: orderAccess{orders: orderRepo, deliveries: deliveryRepo},
		tx:          tx,
		users:       userRepo,
		notifier:    notifier,
		logger:      logger.With().Str("service", "delivery").Logger(),
	}
}

// Assign hands a confirmed order to a delivery agent.
func (s *deliveryService) Assign(ctx context.Context, actor *model.User, orderID uuid.UUID, req *model.AssignDeliveryRequest) (*model.Delivery, error) {
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !order.HasSeller(actor.ID) {
		return nil, model.ErrForbidden
	}
	if order.Status != model.OrderConfirmed {
		return nil, model.ErrInvalidTransition
	}

	pickup := strings.TrimSpace(req.PickupAddress)
	if pickup == "" {
		return nil, model.Validationf("pickupAddress is required")
	}

	agent, err := s.users.GetByID(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil || agent.Role != model.RoleDeliveryAgent || agent.Status != model.UserActive {
		return nil, model.Validationf("agentId must refer to an active delivery agent")
	}

	now := time.Now()
	d := &model.Delivery{
		ID:             uuid.New(),
		OrderID:        orderID,
		AgentID:        agent.ID,
		Status:         model.DeliveryAssigned,
		PickupAddress:  pickup,
		DropoffAddress: order.DeliveryAddress,
		EstimatedAt:    req.EstimatedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	first := model.DeliveryUpdate{
		ID:         uuid.New(),
		DeliveryID: d.ID,
		Status:     model.DeliveryAssigned,
		Note:       "Assigned to " + agent.FullName,
		CreatedAt:  now,
	}

	err = s.tx.WithTx(ctx, "assign delivery", func(ctx context.Context, tx pgx.Tx) error {
		locked, err := s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return model.ErrOrderNotFound
		}
		if locked.Status != model.OrderConfirmed {
			return model.ErrInvalidTransition
		}

		if err := s.deliveries.Create(ctx, tx, d); err != nil {
			return err
		}
		if err := s.deliveries.AddUpdate(ctx, tx, &first); err != nil {
			return err
		}
		return s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(orderID, eventDeliveryAssigned,
			"Delivery assigned to "+agent.FullName, actorID(actor)))
	})
	if err != nil {
		return nil, err
	}
	d.Updates = []model.DeliveryUpdate{first}

	s.logger.Info().
		Str("delivery_id", d.ID.String()).
		Str("order_id", orderID.String()).
		Str("agent_id", agent.ID.String()).
		Msg("delivery assigned")

	data := map[string]string{"orderId": orderID.String(), "deliveryId": d.ID.String()}
	s.notifier.Notify(ctx,
		model.NewNotification(agent.ID, model.NotifyDeliveryAssigned, "New delivery",
			fmt.Sprintf("Pick up order %s at %s.", shortID(orderID), pickup), data),
		model.NewNotification(order.CustomerID, model.NotifyDeliveryAssigned, "Delivery scheduled",
			fmt.Sprintf("Order %s has been assigned to %s for delivery.", shortID(orderID), agent.FullName), data),
	)

	return d, nil
}

// AddUpdate records a tracking point. A repeated non-terminal status is accepted as a
// location ping. Picking up dispatches the order and delivering completes the trip.
func (s *deliveryService) AddUpdate(ctx context.Context, actor *model.User, deliveryID uuid.UUID, req *model.DeliveryUpdateRequest) (*model.Delivery, error) {
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	var customerID uuid.UUID
	var d *model.Delivery

	err := s.tx.WithTx(ctx, "delivery update", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		if d, err = s.deliveries.GetForUpdate(ctx, tx, deliveryID); err != nil {
			return err
		}
		if d == nil {
			return model.ErrDeliveryNotFound
		}
		if !actor.IsAdmin() && d.AgentID != actor.ID {
			return model.ErrForbidden
		}

		if req.Status != d.Status || isTerminal(d.Status) {
			if !d.Status.CanTransition(req.Status) {
				return model.ErrInvalidTransition
			}
		}

		now := time.Now()
		d.Status = req.Status
		if d.Status == model.DeliveryDelivered {
			d.DeliveredAt = &now
		}
		if err := s.deliveries.Update(ctx, tx, d); err != nil {
			return err
		}
		if err := s.deliveries.AddUpdate(ctx, tx, &model.DeliveryUpdate{
			ID:         uuid.New(),
			DeliveryID: d.ID,
			Status:     d.Status,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			Note:       strings.TrimSpace(req.Note),
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		order, err := s.orders.GetForUpdate(ctx, tx, d.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		customerID = order.CustomerID

		if err := s.advanceOrder(ctx, tx, actor, order, d.Status); err != nil {
			return err
		}
		return s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(order.ID, eventDeliveryUpdate,
			"Delivery "+strings.ToLower(strings.ReplaceAll(string(d.Status), "_", " ")), actorID(actor)))
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, model.NewNotification(customerID, model.NotifyDeliveryUpdate, "Delivery update",
		fmt.Sprintf("Your delivery for order %s is now %s.", shortID(d.OrderID), d.Status),
		map[string]string{"orderId": d.OrderID.String(), "deliveryId": d.ID.String()}))

	return s.deliveries.GetByID(ctx, deliveryID)
}

// advanceOrder mirrors delivery progress onto the order.
func (s *deliveryService) advanceOrder(ctx context.Context, tx pgx.Tx, actor *model.User, order *model.Order, status model.DeliveryStatus) error {
	var steps []model.OrderStatus
	switch status {
	case model.DeliveryPickedUp, model.DeliveryInTransit:
		steps = []model.OrderStatus{model.OrderDispatched}
	case model.DeliveryDelivered:
		steps = []model.OrderStatus{model.OrderDispatched, model.OrderDelivered}
	}

	for _, to := range steps {
		if order.Status == to || !order.Status.CanTransition(to) {
			continue
		}
		order.Status = to
		if err := s.orders.UpdateStatus(ctx, tx, order); err != nil {
			return err
		}
		event := eventOrderDispatched
		if to == model.OrderDelivered {
			event = eventOrderDelivered
		}
		if err := s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(order.ID, event,
			"Order "+strings.ToLower(string(to)), actorID(actor))); err != nil {
			return err
		}
	}
	return nil
}

func (s *deliveryService) List(ctx context.Context, viewer *model.User, page model.Page) ([]model.Delivery, error) {
	switch viewer.Role {
	case model.RoleAdmin:
		return s.deliveries.List(ctx, nil, page)
	case model.RoleDeliveryAgent:
		id := viewer.ID
		return s.deliveries.List(ctx, &id, page)
	}
	return nil, model.ErrForbidden
}

func (s *deliveryService) Get(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Delivery, error) {
	d, err := s.deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil || (!viewer.IsAdmin() && d.AgentID != viewer.ID) {
		return nil, model.ErrDeliveryNotFound
	}
	return d, nil
}

func (s *deliveryService) Tracking(ctx context.Context, viewer *model.User, orderID uuid.UUID) (*model.Delivery, error) {
	if _, err := s.load(ctx, viewer, orderID); err != nil {
		return nil, err
	}
	d, err := s.deliveries.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, model.ErrDeliveryNotFound
	}
	return d, nil
}

func isTerminal(status model.DeliveryStatus) bool {
	return status == model.DeliveryDelivered || status == model.DeliveryFailed
}

func validateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return model.Validationf("latitude and longitude must be given together")
	}
	if lat != nil && (*lat < -90 || *lat > 90 || *lng < -180 || *lng > 180) {
		return model.Validationf("coordinates are out of range")
	}
	return nil
}
