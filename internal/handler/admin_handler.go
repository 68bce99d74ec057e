package handler

import (
	"net/http"
	"strings"

	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"
	"poultrymarket/internal/service"

	"github.com/rs/zerolog"
)

// AdminHandler handles user management, author review and dashboard figures.
type AdminHandler struct {
	admin  service.AdminService
	blog   service.BlogService
	logger zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin service.AdminService, blog service.BlogService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		blog:   blog,
		logger: logger.With().Str("handler", "admin").Logger(),
	}
}

// ListUsers handles GET /api/admin/users?role=&status=&limit=&offset=.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	q := r.URL.Query()
	users, err := h.admin.ListUsers(r.Context(), model.UserFilter{
		Role:   model.Role(strings.ToUpper(q.Get("role"))),
		Status: model.UserStatus(strings.ToUpper(q.Get("status"))),
		Page:   page,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// UpdateUser handles PATCH /api/admin/users/{id}.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	user, err := h.admin.UpdateUser(r.Context(), middleware.CurrentUser(r.Context()), id, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ApproveAuthor handles POST /api/admin/authors/{id}/approve.
func (h *AdminHandler) ApproveAuthor(w http.ResponseWriter, r *http.Request) {
	h.reviewAuthor(w, r, true)
}

// RejectAuthor handles POST /api/admin/authors/{id}/reject.
func (h *AdminHandler) RejectAuthor(w http.ResponseWriter, r *http.Request) {
	h.reviewAuthor(w, r, false)
}

func (h *AdminHandler) reviewAuthor(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	author, err := h.blog.ReviewAuthor(r.Context(), middleware.CurrentUser(r.Context()), id, approve)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, author)
}
