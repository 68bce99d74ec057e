package handler

import (
	"context"
	"net/http"
	"strings"

	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"
	"poultrymarket/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type orderFunc func(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), middleware.CurrentUser(r.Context()), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders?status=&paymentStatus=&limit=&offset=.
// Results are scoped to what the caller may see.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	q := r.URL.Query()
	orders, err := h.service.ListOrders(r.Context(), middleware.CurrentUser(r.Context()), model.OrderFilter{
		Status:        model.OrderStatus(strings.ToUpper(q.Get("status"))),
		PaymentStatus: model.PaymentStatus(strings.ToUpper(q.Get("paymentStatus"))),
		Page:          page,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /api/orders/{id} requests.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.service.GetOrder)
}

// Timeline handles GET /api/orders/{id}/timeline.
func (h *OrderHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	entries, err := h.service.Timeline(r.Context(), middleware.CurrentUser(r.Context()), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// Cancel handles POST /api/orders/{id}/cancel with an optional {"reason": "..."} body.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err, h.logger)
			return
		}
	}

	h.withOrder(w, r, func(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error) {
		return h.service.CancelOrder(ctx, viewer, id, req.Reason)
	})
}

// Dispatch handles POST /api/orders/{id}/dispatch.
func (h *OrderHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.service.DispatchOrder)
}

// Complete handles POST /api/orders/{id}/complete.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.service.CompleteOrder)
}

func (h *OrderHandler) withOrder(w http.ResponseWriter, r *http.Request, fn orderFunc) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := fn(r.Context(), middleware.CurrentUser(r.Context()), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
