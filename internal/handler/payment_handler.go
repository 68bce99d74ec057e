package handler

import (
	"io"
	"net/http"

	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"
	"poultrymarket/internal/service"

	"github.com/rs/zerolog"
)

// PaymentHandler handles M-Pesa collection, gateway callbacks and admin review.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// InitiateSTK handles POST /api/orders/{id}/payments/stk.
func (h *PaymentHandler) InitiateSTK(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.STKPushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	p, err := h.service.InitiateSTKPush(r.Context(), middleware.CurrentUser(r.Context()), orderID, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, p)
}

// SubmitManual handles POST /api/orders/{id}/payments/manual.
func (h *PaymentHandler) SubmitManual(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.ManualPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	p, err := h.service.SubmitManual(r.Context(), middleware.CurrentUser(r.Context()), orderID, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// ListForOrder handles GET /api/orders/{id}/payments.
func (h *PaymentHandler) ListForOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	payments, err := h.service.ListForOrder(r.Context(), middleware.CurrentUser(r.Context()), orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, payments)
}

// Approve handles POST /api/payments/{id}/approve.
func (h *PaymentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	p, err := h.service.Approve(r.Context(), middleware.CurrentUser(r.Context()), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Reject handles POST /api/payments/{id}/reject with an optional {"reason": "..."} body.
func (h *PaymentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.ReviewRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err, h.logger)
			return
		}
	}

	p, err := h.service.Reject(r.Context(), middleware.CurrentUser(r.Context()), id, req.Reason)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Refresh handles POST /api/payments/{id}/refresh.
func (h *PaymentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	p, err := h.service.RefreshStatus(r.Context(), middleware.CurrentUser(r.Context()), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// LipiaCallback handles POST /api/payments/callbacks/lipia.
func (h *PaymentHandler) LipiaCallback(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, model.ProviderLipia)
}

// IntaSendCallback handles POST /api/payments/callbacks/intasend.
func (h *PaymentHandler) IntaSendCallback(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, model.ProviderIntaSend)
}

func (h *PaymentHandler) callback(w http.ResponseWriter, r *http.Request, provider model.Provider) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, model.NewDomainError(model.ErrCodeInvalidJSON, "Unreadable callback body"), h.logger)
		return
	}

	resp, err := h.service.HandleCallback(r.Context(), provider, body)
	if err != nil {
		h.logger.Warn().Err(err).Str("provider", string(provider)).Msg("callback rejected")
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
