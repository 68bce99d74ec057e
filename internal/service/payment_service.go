package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"poultrymarket/internal/model"
	"poultrymarket/internal/payment"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	reasonAmountMismatch = "amount mismatch"
	reasonAlreadyPaid    = "order already paid"
	reasonSuperseded     = "superseded by an approved payment"
)

var mpesaCodePattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// paymentService implements PaymentService.
type paymentService struct {
	orderAccess
	tx        repository.TxManager
	payments  repository.PaymentRepository
	users     repository.UserRepository
	gateways  payment.Gateways
	notifier  Notifier
	tolerance decimal.Decimal
	logger    zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	tx repository.TxManager,
	orderRepo repository.OrderRepository,
	deliveryRepo repository.DeliveryRepository,
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
	gateways payment.Gateways,
	notifier Notifier,
	tolerance decimal.Decimal,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		orderAccess: orderAccess{orders: orderRepo, deliveries: deliveryRepo},
		tx:          tx,
		payments:    paymentRepo,
		users:       userRepo,
		gateways:    gateways,
		notifier:    notifier,
		tolerance:   tolerance,
		logger:      logger.With().Str("service", "payment").Logger(),
	}
}

// InitiateSTKPush prompts the customer's phone and records a pending payment.
func (s *paymentService) InitiateSTKPush(ctx context.Context, customer *model.User, orderID uuid.UUID, req *model.STKPushRequest) (*model.Payment, error) {
	order, err := s.payable(ctx, customer, orderID)
	if err != nil {
		return nil, err
	}

	provider := req.Provider
	if provider == "" {
		provider = model.ProviderLipia
	}
	gw, err := s.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	rawPhone := req.Phone
	if strings.TrimSpace(rawPhone) == "" {
		rawPhone = order.DeliveryPhone
	}
	phone, err := payment.NormalisePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	charge, fee := payment.ChargeAmount(gw.FeePercent(), order.Total)
	paymentID := uuid.New()

	res, err := gw.InitiateSTKPush(ctx, payment.STKPush{PaymentID: paymentID.String(), Phone: phone, Amount: charge})
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Str("provider", string(provider)).Msg("stk push failed")
		return nil, err
	}

	now := time.Now()
	reference := res.Reference
	p := &model.Payment{
		ID:        paymentID,
		OrderID:   orderID,
		Provider:  provider,
		Status:    model.PaymentPending,
		Amount:    charge,
		Fee:       fee,
		Phone:     phone,
		Reference: &reference,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.tx.WithTx(ctx, "initiate stk push", func(ctx context.Context, tx pgx.Tx) error {
		if err := s.payments.Create(ctx, tx, p); err != nil {
			return err
		}
		return s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(orderID, eventPaymentInitiated,
			fmt.Sprintf("%s prompt sent for KES %s", provider, charge.StringFixed(2)), actorID(customer)))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("payment_id", p.ID.String()).
		Str("order_id", orderID.String()).
		Str("reference", reference).
		Str("amount", charge.StringFixed(2)).
		Msg("stk push initiated")

	return p, nil
}

// HandleCallback records the notification first so a redelivery is a no-op.
func (s *paymentService) HandleCallback(ctx context.Context, provider model.Provider, body []byte) (*model.CallbackResponse, error) {
	gw, err := s.gateways.Get(provider)
	if err != nil {
		return nil, err
	}
	res, err := gw.ParseCallback(body)
	if err != nil {
		return nil, err
	}

	resp := &model.CallbackResponse{Received: true}
	if res.State == model.GatewaySucceeded {
		if res, err = s.confirmSuccess(ctx, gw, res); err != nil {
			return nil, err
		}
		if res.State == model.GatewayPending {
			// not recorded, so the provider's genuine notification still applies later
			return resp, nil
		}
	}
	var notes []model.Notification

	err = s.tx.WithTx(ctx, "payment callback", func(ctx context.Context, tx pgx.Tx) error {
		recorded, err := s.payments.RecordCallback(ctx, tx, &model.CallbackRecord{
			ID:         uuid.New(),
			Provider:   provider,
			ExternalID: res.ExternalID,
			Payload:    body,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			return err
		}
		if !recorded {
			resp.Duplicate = true
			return nil
		}

		p, err := s.findForCallback(ctx, tx, res)
		if err != nil {
			return err
		}
		if p == nil {
			s.logger.Warn().
				Str("provider", string(provider)).
				Str("reference", res.Reference).
				Str("account_ref", res.AccountRef).
				Msg("callback for unknown payment")
			return nil
		}

		notes, err = s.reconcile(ctx, tx, p, res)
		return err
	})
	if err != nil {
		return nil, err
	}

	if resp.Duplicate {
		s.logger.Info().Str("provider", string(provider)).Str("external_id", res.ExternalID).Msg("duplicate callback ignored")
	}
	s.notifier.Notify(ctx, notes...)

	return resp, nil
}

// confirmSuccess asks the provider for the state of a reported success, so a
// callback alone never approves a payment. Amount and receipt come from the
// provider's answer when it has them.
func (s *paymentService) confirmSuccess(ctx context.Context, gw payment.Gateway, res *model.GatewayResult) (*model.GatewayResult, error) {
	status, err := gw.QueryStatus(ctx, res.Reference)
	if err != nil {
		return nil, err
	}

	confirmed := *res
	confirmed.State = status.State
	if !status.Amount.IsZero() {
		confirmed.Amount = status.Amount
	}
	if status.Receipt != "" {
		confirmed.Receipt = status.Receipt
	}
	if status.Reason != "" {
		confirmed.Reason = status.Reason
	}

	if confirmed.State != model.GatewaySucceeded {
		s.logger.Warn().
			Str("provider", string(gw.Provider())).
			Str("reference", res.Reference).
			Str("state", string(status.State)).
			Msg("callback success not confirmed by provider")
	}
	return &confirmed, nil
}

func (s *paymentService) findForCallback(ctx context.Context, tx pgx.Tx, res *model.GatewayResult) (*model.Payment, error) {
	if res.Reference != "" {
		p, err := s.payments.GetByReferenceForUpdate(ctx, tx, res.Reference)
		if err != nil || p != nil {
			return p, err
		}
	}
	if id, err := uuid.Parse(res.AccountRef); err == nil {
		return s.payments.GetForUpdate(ctx, tx, id)
	}
	return nil, nil
}

// reconcile applies a gateway outcome to a pending payment and its order.
func (s *paymentService) reconcile(ctx context.Context, tx pgx.Tx, p *model.Payment, res *model.GatewayResult) ([]model.Notification, error) {
	if p.Status != model.PaymentPending {
		s.logger.Debug().Str("payment_id", p.ID.String()).Str("status", string(p.Status)).Msg("payment already settled")
		return nil, nil
	}

	switch res.State {
	case model.GatewayFailed:
		reason := strings.TrimSpace(res.Reason)
		if reason == "" {
			reason = "payment failed"
		}
		p.Status = model.PaymentFailed
		p.FailureReason = &reason
		if err := s.payments.Update(ctx, tx, p); err != nil {
			return nil, err
		}
		if err := s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(p.OrderID, eventPaymentFailed, reason, nil)); err != nil {
			return nil, err
		}

		order, err := s.orders.GetByID(ctx, p.OrderID)
		if err != nil || order == nil {
			return nil, err
		}
		return []model.Notification{model.NewNotification(order.CustomerID, model.NotifyPaymentFailed,
			"Payment failed", fmt.Sprintf("Your M-Pesa payment for order %s failed: %s", shortID(order.ID), reason),
			map[string]string{"orderId": order.ID.String(), "paymentId": p.ID.String()})}, nil

	case model.GatewaySucceeded:
		order, err := s.orders.GetForUpdate(ctx, tx, p.OrderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, model.ErrOrderNotFound
		}

		if res.Receipt != "" {
			receipt := res.Receipt
			p.MpesaReceipt = &receipt
		}
		p.AmountPaid = decimal.NewNullDecimal(res.Amount)

		if payment.WithinTolerance(p.Amount, res.Amount, s.tolerance) &&
			order.Status == model.OrderPending && order.PaymentStatus.CanTransition(model.PaymentApproved) {
			return s.approve(ctx, tx, p, order, nil, fmt.Sprintf("verified by %s", p.Provider))
		}

		reason := reasonAmountMismatch
		switch {
		case order.PaymentStatus == model.PaymentApproved:
			reason = reasonAlreadyPaid
		case order.Status != model.OrderPending:
			reason = "order is " + strings.ToLower(string(order.Status))
		}
		s.logger.Warn().
			Str("payment_id", p.ID.String()).
			Str("expected", p.Amount.StringFixed(2)).
			Str("paid", res.Amount.StringFixed(2)).
			Str("reason", reason).
			Msg("payment needs manual review")

		p.Status = model.PaymentSubmitted
		p.FailureReason = &reason
		if err := s.payments.Update(ctx, tx, p); err != nil {
			return nil, err
		}
		if order.Status != model.OrderCancelled && order.PaymentStatus.CanTransition(model.PaymentSubmitted) {
			order.PaymentStatus = model.PaymentSubmitted
			if err := s.orders.UpdateStatus(ctx, tx, order); err != nil {
				return nil, err
			}
		}
		if err := s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(order.ID, eventPaymentSubmitted,
			"Payment received, awaiting review: "+reason, nil)); err != nil {
			return nil, err
		}
		return []model.Notification{model.NewNotification(order.CustomerID, model.NotifyPaymentSubmitted,
			"Payment under review", fmt.Sprintf("Your payment for order %s is being reviewed.", shortID(order.ID)),
			map[string]string{"orderId": order.ID.String(), "paymentId": p.ID.String()})}, nil
	}

	return nil, nil
}

// approve marks p and its order approved and confirms a pending order. reviewer is
// nil for gateway-verified payments.
func (s *paymentService) approve(ctx context.Context, tx pgx.Tx, p *model.Payment, order *model.Order, reviewer *model.User, reason string) ([]model.Notification, error) {
	p.Status = model.PaymentApproved
	p.FailureReason = nil
	if err := s.payments.Update(ctx, tx, p); err != nil {
		return nil, err
	}

	// a second payment on an already paid order is settled without touching the order
	alreadyPaid := order.PaymentStatus == model.PaymentApproved
	confirmed := order.Status.CanTransition(model.OrderConfirmed)
	if alreadyPaid {
		reason += "; " + reasonAlreadyPaid
	}
	if !alreadyPaid || confirmed {
		order.PaymentStatus = model.PaymentApproved
		if confirmed {
			order.Status = model.OrderConfirmed
		}
		if err := s.orders.UpdateStatus(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	if err := s.payments.AddApproval(ctx, tx, &model.Approval{
		ID:         uuid.New(),
		PaymentID:  p.ID,
		OrderID:    order.ID,
		ReviewerID: actorID(reviewer),
		Decision:   model.PaymentApproved,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}); err != nil {
		return nil, err
	}

	if err := s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(order.ID, eventPaymentApproved,
		fmt.Sprintf("Payment of KES %s approved", p.Amount.StringFixed(2)), actorID(reviewer))); err != nil {
		return nil, err
	}
	if confirmed {
		if err := s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(order.ID, eventOrderConfirmed,
			"Order confirmed", actorID(reviewer))); err != nil {
			return nil, err
		}
	}

	s.logger.Info().Str("payment_id", p.ID.String()).Str("order_id", order.ID.String()).Msg("payment approved")

	data := map[string]string{"orderId": order.ID.String(), "paymentId": p.ID.String()}
	notes := []model.Notification{model.NewNotification(order.CustomerID, model.NotifyPaymentApproved,
		"Payment approved", fmt.Sprintf("Your payment for order %s was approved.", shortID(order.ID)), data)}
	if confirmed {
		for _, seller := range order.SellerIDs() {
			notes = append(notes, model.NewNotification(seller, model.NotifyOrderStatus,
				"Order confirmed", fmt.Sprintf("Order %s is paid and ready to fulfil.", shortID(order.ID)), data))
		}
	}
	return notes, nil
}

func (s *paymentService) RefreshStatus(ctx context.Context, viewer *model.User, paymentID uuid.UUID) (*model.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrPaymentNotFound
	}
	order, err := s.load(ctx, viewer, p.OrderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			return nil, model.ErrPaymentNotFound
		}
		return nil, err
	}
	if !viewer.IsAdmin() && order.CustomerID != viewer.ID {
		return nil, model.ErrForbidden
	}

	if p.Provider == model.ProviderManual {
		return nil, model.Validationf("manual payments have no gateway status")
	}
	if p.Status != model.PaymentPending || p.Reference == nil {
		return p, nil
	}

	gw, err := s.gateways.Get(p.Provider)
	if err != nil {
		return nil, err
	}
	res, err := gw.QueryStatus(ctx, *p.Reference)
	if err != nil {
		return nil, err
	}

	var notes []model.Notification
	err = s.tx.WithTx(ctx, "refresh payment", func(ctx context.Context, tx pgx.Tx) error {
		locked, err := s.payments.GetForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return model.ErrPaymentNotFound
		}
		notes, err = s.reconcile(ctx, tx, locked, res)
		if err == nil {
			p = locked
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notes...)
	return p, nil
}

// SubmitManual records an M-Pesa code the customer paid with outside the STK flow.
func (s *paymentService) SubmitManual(ctx context.Context, customer *model.User, orderID uuid.UUID, req *model.ManualPaymentRequest) (*model.Payment, error) {
	code := strings.ToUpper(strings.TrimSpace(req.MpesaCode))
	if !mpesaCodePattern.MatchString(code) {
		return nil, model.Validationf("mpesaCode must be 10 letters or digits")
	}
	phone, err := payment.NormalisePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, model.Validationf("amount must be greater than zero")
	}

	if _, err := s.payable(ctx, customer, orderID); err != nil {
		return nil, err
	}

	now := time.Now()
	amount := req.Amount.Round(2)
	p := &model.Payment{
		ID:           uuid.New(),
		OrderID:      orderID,
		Provider:     model.ProviderManual,
		Status:       model.PaymentSubmitted,
		Amount:       amount,
		Fee:          decimal.Zero,
		Phone:        phone,
		MpesaReceipt: &code,
		AmountPaid:   decimal.NewNullDecimal(amount),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var order *model.Order
	err = s.tx.WithTx(ctx, "submit manual payment", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		if order, err = s.orders.GetForUpdate(ctx, tx, orderID); err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if order.Status != model.OrderPending || !order.PaymentStatus.CanTransition(model.PaymentSubmitted) {
			return model.ErrInvalidTransition
		}

		if err := s.payments.Create(ctx, tx, p); err != nil {
			return err
		}
		order.PaymentStatus = model.PaymentSubmitted
		if err := s.orders.UpdateStatus(ctx, tx, order); err != nil {
			return err
		}
		return s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(orderID, eventPaymentSubmitted,
			fmt.Sprintf("M-Pesa code %s submitted for KES %s", code, amount.StringFixed(2)), actorID(customer)))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("payment_id", p.ID.String()).Str("order_id", orderID.String()).Msg("manual payment submitted")

	data := map[string]string{"orderId": orderID.String(), "paymentId": p.ID.String()}
	notes := []model.Notification{model.NewNotification(customer.ID, model.NotifyPaymentSubmitted,
		"Payment submitted", fmt.Sprintf("We received M-Pesa code %s and will review it shortly.", code), data)}
	admins, err := s.users.List(ctx, model.UserFilter{Role: model.RoleAdmin, Status: model.UserActive})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list admins for review notification")
	}
	for _, admin := range admins {
		notes = append(notes, model.NewNotification(admin.ID, model.NotifyPaymentSubmitted,
			"Payment awaiting review", fmt.Sprintf("Order %s has a manual payment to review.", shortID(orderID)), data))
	}
	s.notifier.Notify(ctx, notes...)

	return p, nil
}

func (s *paymentService) Approve(ctx context.Context, admin *model.User, paymentID uuid.UUID) (*model.Payment, error) {
	var p *model.Payment
	var notes []model.Notification

	err := s.tx.WithTx(ctx, "approve payment", func(ctx context.Context, tx pgx.Tx) error {
		var order *model.Order
		var err error
		if p, order, err = s.lockForReview(ctx, tx, paymentID); err != nil {
			return err
		}
		if order.Status == model.OrderCancelled || !canSettle(order.PaymentStatus, model.PaymentApproved) {
			return model.ErrInvalidTransition
		}
		notes, err = s.approve(ctx, tx, p, order, admin, "approved by admin")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notes...)
	return p, nil
}

// Reject settles a SUBMITTED payment as rejected. The order's payment status
// only follows when nothing else on the order is paid or awaiting review.
func (s *paymentService) Reject(ctx context.Context, admin *model.User, paymentID uuid.UUID, reason string) (*model.Payment, error) {
	reason = strings.TrimSpace(reason)

	var p *model.Payment
	var order *model.Order
	var superseded bool

	err := s.tx.WithTx(ctx, "reject payment", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		if p, order, err = s.lockForReview(ctx, tx, paymentID); err != nil {
			return err
		}

		superseded = order.PaymentStatus == model.PaymentApproved
		if reason == "" {
			reason = "payment could not be verified"
			if superseded {
				reason = reasonSuperseded
			}
		}

		p.Status = model.PaymentRejected
		p.FailureReason = &reason
		if err := s.payments.Update(ctx, tx, p); err != nil {
			return err
		}

		if order.PaymentStatus.CanTransition(model.PaymentRejected) {
			pending, err := s.othersAwaitingReview(ctx, p)
			if err != nil {
				return err
			}
			if !pending {
				order.PaymentStatus = model.PaymentRejected
				if err := s.orders.UpdateStatus(ctx, tx, order); err != nil {
					return err
				}
			}
		}

		if err := s.payments.AddApproval(ctx, tx, &model.Approval{
			ID:         uuid.New(),
			PaymentID:  p.ID,
			OrderID:    order.ID,
			ReviewerID: actorID(admin),
			Decision:   model.PaymentRejected,
			Reason:     reason,
			CreatedAt:  time.Now(),
		}); err != nil {
			return err
		}
		return s.orders.AddTimeline(ctx, tx, model.NewTimelineEntry(order.ID, eventPaymentRejected,
			"Payment rejected: "+reason, actorID(admin)))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("payment_id", paymentID.String()).
		Str("reviewer_id", admin.ID.String()).
		Bool("superseded", superseded).
		Msg("payment rejected")

	body := fmt.Sprintf("Your payment for order %s was rejected: %s. You can submit a new payment.", shortID(order.ID), reason)
	if superseded {
		body = fmt.Sprintf("An extra payment for order %s was rejected: %s. The order is already paid.", shortID(order.ID), reason)
	}
	s.notifier.Notify(ctx, model.NewNotification(order.CustomerID, model.NotifyPaymentRejected, "Payment rejected", body,
		map[string]string{"orderId": order.ID.String(), "paymentId": p.ID.String()}))
	return p, nil
}

// othersAwaitingReview reports whether another payment on p's order is still SUBMITTED.
func (s *paymentService) othersAwaitingReview(ctx context.Context, p *model.Payment) (bool, error) {
	payments, err := s.payments.ListByOrder(ctx, p.OrderID)
	if err != nil {
		return false, err
	}
	for _, other := range payments {
		if other.ID != p.ID && other.Status == model.PaymentSubmitted {
			return true, nil
		}
	}
	return false, nil
}

// canSettle reports whether a payment decision leaves the order's payment
// status valid: either already there or a legal move.
func canSettle(from, to model.PaymentStatus) bool {
	return from == to || from.CanTransition(to)
}

func (s *paymentService) ListForOrder(ctx context.Context, viewer *model.User, orderID uuid.UUID) ([]model.Payment, error) {
	if _, err := s.load(ctx, viewer, orderID); err != nil {
		return nil, err
	}
	return s.payments.ListByOrder(ctx, orderID)
}

// payable checks that customer owns the order and that it is still awaiting payment.
func (s *paymentService) payable(ctx context.Context, customer *model.User, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.load(ctx, customer, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customer.ID {
		return nil, model.ErrForbidden
	}
	if order.Status != model.OrderPending || !order.PaymentStatus.CanTransition(model.PaymentSubmitted) {
		return nil, model.ErrInvalidTransition
	}
	return order, nil
}

// lockForReview locks a SUBMITTED payment and its order.
func (s *paymentService) lockForReview(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (*model.Payment, *model.Order, error) {
	p, err := s.payments.GetForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, model.ErrPaymentNotFound
	}
	if p.Status != model.PaymentSubmitted {
		return nil, nil, model.ErrInvalidTransition
	}

	order, err := s.orders.GetForUpdate(ctx, tx, p.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, model.ErrOrderNotFound
	}
	return p, order, nil
}
