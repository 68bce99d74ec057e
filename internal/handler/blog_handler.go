package handler

import (
	"net/http"
	"strings"

	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"
	"poultrymarket/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// BlogHandler handles authors, posts and comments.
type BlogHandler struct {
	service service.BlogService
	logger  zerolog.Logger
}

// NewBlogHandler creates a new blog handler.
func NewBlogHandler(service service.BlogService, logger zerolog.Logger) *BlogHandler {
	return &BlogHandler{
		service: service,
		logger:  logger.With().Str("handler", "blog").Logger(),
	}
}

// Apply handles POST /api/blog/authors.
func (h *BlogHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req model.AuthorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	author, err := h.service.Apply(r.Context(), middleware.CurrentUser(r.Context()), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, author)
}

// MyAuthor handles GET /api/blog/authors/me.
func (h *BlogHandler) MyAuthor(w http.ResponseWriter, r *http.Request) {
	author, err := h.service.MyAuthor(r.Context(), middleware.CurrentUser(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, author)
}

// ListPosts handles GET /api/blog/posts?tag=&authorId=&limit=&offset=.
func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	authorID, err := queryUUID(r, "authorId")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	posts, err := h.service.ListPosts(r.Context(), model.PostFilter{
		Tag:      r.URL.Query().Get("tag"),
		AuthorID: authorID,
		Page:     page,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// GetPost handles GET /api/blog/posts/{slug}.
func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := strings.ToLower(mux.Vars(r)["slug"])

	post, err := h.service.GetPostBySlug(r.Context(), middleware.CurrentUser(r.Context()), slug)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /api/blog/posts.
func (h *BlogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req model.PostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	post, err := h.service.CreatePost(r.Context(), middleware.CurrentUser(r.Context()), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// UpdatePost handles PUT /api/blog/posts/{id}.
func (h *BlogHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.PostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	post, err := h.service.UpdatePost(r.Context(), middleware.CurrentUser(r.Context()), id, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /api/blog/posts/{id}.
func (h *BlogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.service.DeletePost(r.Context(), middleware.CurrentUser(r.Context()), id); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PublishPost handles POST /api/blog/posts/{id}/publish.
func (h *BlogHandler) PublishPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	post, err := h.service.PublishPost(r.Context(), middleware.CurrentUser(r.Context()), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// ListComments handles GET /api/blog/posts/{id}/comments.
func (h *BlogHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	comments, err := h.service.ListComments(r.Context(), id, page)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

// AddComment handles POST /api/blog/posts/{id}/comments.
func (h *BlogHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	var req model.CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	comment, err := h.service.AddComment(r.Context(), middleware.CurrentUser(r.Context()), id, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}
