package handler

import (
	"net/http"

	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"
	"poultrymarket/internal/service"

	"github.com/rs/zerolog"
)

// DeliveryHandler handles delivery assignment and tracking.
type DeliveryHandler struct {
	service service.DeliveryService
	logger  zerolog.Logger
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(service service.DeliveryService, logger zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service: service,
		logger:  logger.With().Str("handler", "delivery").Logger(),
	}
}

// Assign handles POST /api/orders/{id}/delivery.
func (h *DeliveryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.AssignDeliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	d, err := h.service.Assign(r.Context(), middleware.CurrentUser(r.Context()), orderID, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// AddUpdate handles POST /api/deliveries/{id}/updates.
func (h *DeliveryHandler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.DeliveryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	d, err := h.service.AddUpdate(r.Context(), middleware.CurrentUser(r.Context()), id, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// List handles GET /api/deliveries.
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	deliveries, err := h.service.List(r.Context(), middleware.CurrentUser(r.Context()), page)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, deliveries)
}

// Get handles GET /api/deliveries/{id}.
func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	d, err := h.service.Get(r.Context(), middleware.CurrentUser(r.Context()), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// Tracking handles GET /api/orders/{id}/tracking.
func (h *DeliveryHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	d, err := h.service.Tracking(r.Context(), middleware.CurrentUser(r.Context()), orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
