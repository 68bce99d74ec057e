package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"poultrymarket/internal/model"
	"poultrymarket/internal/payment"
	"poultrymarket/internal/promo"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService.
type orderService struct {
	orderAccess
	tx          repository.TxManager
	productRepo repository.ProductRepository
	validator   promo.Validator
	notifier    Notifier
	deliveryFee decimal.Decimal
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	tx repository.TxManager,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	deliveryRepo repository.DeliveryRepository,
	validator promo.Validator,
	notifier Notifier,
	deliveryFee decimal.Decimal,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderAccess: orderAccess{orders: orderRepo, deliveries: deliveryRepo},
		tx:          tx,
		productRepo: productRepo,
		validator:   validator,
		notifier:    notifier,
		deliveryFee: deliveryFee,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder prices the basket from current product data, takes the stock and
// stores the order in one transaction.
func (s *orderService) CreateOrder(ctx context.Context, customer *model.User, req *model.OrderRequest) (*model.Order, error) {
	phone, err := s.validateOrderRequest(req)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if len(products) != len(productIDs) {
		s.logger.Warn().Int("requested", len(productIDs)).Int("found", len(products)).Msg("product validation failed")
		return nil, model.ErrProductNotFound
	}
	byID := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := time.Now()
	order := &model.Order{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Status:          model.OrderPending,
		PaymentStatus:   model.PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		DeliveryFee:     s.deliveryFee.Round(2),
		Discount:        decimal.Zero,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		DeliveryPhone:   phone,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	subtotal := decimal.Zero
	for _, item := range req.Items {
		p := byID[item.ProductID]
		if !p.IsActive {
			return nil, model.ErrProductUnavailable
		}
		if p.Stock < item.Quantity {
			return nil, model.ErrInsufficientStock
		}

		line := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		order.Items = append(order.Items, model.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   p.ID,
			SellerID:    p.SellerID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    item.Quantity,
			LineTotal:   line,
		})
	}
	order.Subtotal = subtotal

	if req.PromoCode != nil && strings.TrimSpace(*req.PromoCode) != "" {
		if s.validator == nil {
			return nil, model.ErrInvalidPromoCode
		}
		discount, err := s.validator.Discount(ctx, *req.PromoCode, subtotal)
		if err != nil {
			s.logger.Warn().Str("promo_code", *req.PromoCode).Err(err).Msg("invalid promo code")
			return nil, err
		}
		code, _ := promo.NormaliseCode(*req.PromoCode)
		order.PromoCode = &code
		order.Discount = decimal.Min(discount, subtotal)
	}
	order.Total = order.Subtotal.Sub(order.Discount).Add(order.DeliveryFee)

	err = s.tx.WithTx(ctx, "create order", func(ctx context.Context, tx pgx.Tx) error {
		for _, item := range order.Items {
			ok, err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return model.ErrInsufficientStock
			}
		}
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		return s.orders.AddTimeline(ctx, tx,
			model.NewTimelineEntry(order.ID, eventOrderPlaced, "Order placed", actorID(customer)))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Str("total", order.Total.StringFixed(2)).
		Msg("order created successfully")

	s.notifier.Notify(ctx, partiesOf(order, model.NotifyOrderPlaced,
		"Order placed",
		fmt.Sprintf("Order %s was placed. Total KES %s.", shortID(order.ID), order.Total.StringFixed(2)))...)

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, viewer *model.User, filter model.OrderFilter) ([]model.Order, error) {
	return s.orders.List(ctx, scope(viewer, filter))
}

func (s *orderService) GetOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error) {
	return s.load(ctx, viewer, id)
}

func (s *orderService) Timeline(ctx context.Context, viewer *model.User, id uuid.UUID) ([]model.TimelineEntry, error) {
	if _, err := s.load(ctx, viewer, id); err != nil {
		return nil, err
	}
	return s.orders.Timeline(ctx, id)
}

// CancelOrder lets a customer withdraw an unpaid pending order, and an admin cancel
// any order that has not shipped. Stock is put back.
func (s *orderService) CancelOrder(ctx context.Context, viewer *model.User, id uuid.UUID, reason string) (*model.Order, error) {
	authorise := func(order *model.Order) error {
		if viewer.IsAdmin() {
			return nil
		}
		if order.CustomerID != viewer.ID {
			return model.ErrForbidden
		}
		if order.Status != model.OrderPending || order.PaymentStatus == model.PaymentApproved {
			return model.ErrInvalidTransition
		}
		return nil
	}

	note := "Order cancelled"
	if reason = strings.TrimSpace(reason); reason != "" {
		note += ": " + reason
	}

	order, err := s.transition(ctx, viewer, id, model.OrderCancelled, eventOrderCancelled, note, authorise,
		func(ctx context.Context, tx pgx.Tx, order *model.Order) error {
			return s.productRepo.RestoreStock(ctx, tx, order.Items)
		})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, partiesOf(order, model.NotifyOrderStatus, "Order cancelled",
		fmt.Sprintf("Order %s was cancelled.", shortID(order.ID)))...)
	return order, nil
}

func (s *orderService) DispatchOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error) {
	authorise := func(order *model.Order) error {
		if viewer.IsAdmin() || order.HasSeller(viewer.ID) {
			return nil
		}
		return model.ErrForbidden
	}

	order, err := s.transition(ctx, viewer, id, model.OrderDispatched, eventOrderDispatched, "Order dispatched", authorise, nil)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, model.NewNotification(order.CustomerID, model.NotifyOrderStatus, "Order dispatched",
		fmt.Sprintf("Order %s is on its way.", shortID(order.ID)), map[string]string{"orderId": order.ID.String()}))
	return order, nil
}

func (s *orderService) CompleteOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error) {
	authorise := func(order *model.Order) error {
		if viewer.IsAdmin() || order.CustomerID == viewer.ID {
			return nil
		}
		return model.ErrForbidden
	}

	order, err := s.transition(ctx, viewer, id, model.OrderCompleted, eventOrderCompleted, "Order completed", authorise, nil)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, partiesOf(order, model.NotifyOrderStatus, "Order completed",
		fmt.Sprintf("Order %s is complete.", shortID(order.ID)))...)
	return order, nil
}

// transition moves an order to status under a row lock after checking visibility,
// authorise and the transition table, then runs extra and writes the timeline.
func (s *orderService) transition(
	ctx context.Context,
	viewer *model.User,
	id uuid.UUID,
	to model.OrderStatus,
	event, note string,
	authorise func(*model.Order) error,
	extra func(context.Context, pgx.Tx, *model.Order) error,
) (*model.Order, error) {
	// orders the viewer cannot see report not found before any lock is taken
	if _, err := s.load(ctx, viewer, id); err != nil {
		return nil, err
	}

	var order *model.Order
	err := s.tx.WithTx(ctx, strings.ToLower(event), func(ctx context.Context, tx pgx.Tx) error {
		var err error
		if order, err = s.orders.GetForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if err := authorise(order); err != nil {
			return err
		}
		if !order.Status.CanTransition(to) {
			return model.ErrInvalidTransition
		}

		if extra != nil {
			if err := extra(ctx, tx, order); err != nil {
				return err
			}
		}

		from := order.Status
		order.Status = to
		if err := s.orders.UpdateStatus(ctx, tx, order); err != nil {
			return err
		}

		s.logger.Info().
			Str("order_id", id.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Str("actor_id", viewer.ID.String()).
			Msg("order status changed")

		return s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(id, event, note, actorID(viewer)))
	})
	if err != nil {
		var de *model.DomainError
		if !errors.As(err, &de) {
			s.logger.Error().Err(err).Str("order_id", id.String()).Str("event", event).Msg("order transition failed")
		}
		return nil, err
	}

	return order, nil
}

// validateOrderRequest checks the basket and returns the normalised delivery phone.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) (string, error) {
	if req == nil {
		return "", model.Validationf("order request is required")
	}
	if len(req.Items) == 0 {
		return "", model.Validationf("order must contain at least one item")
	}

	seen := make(map[uuid.UUID]struct{}, len(req.Items))
	for i, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return "", model.Validationf("item %d: productId is required", i)
		}
		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID.String()).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return "", model.ErrInvalidQuantity
		}
		if _, dup := seen[item.ProductID]; dup {
			return "", model.Validationf("item %d: product %s is listed more than once", i, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return "", model.Validationf("deliveryAddress is required")
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = model.MethodMpesaSTK
	}
	if !req.PaymentMethod.Valid() {
		return "", model.Validationf("paymentMethod must be MPESA_STK or MPESA_MANUAL")
	}

	return payment.NormalisePhone(req.DeliveryPhone)
}
