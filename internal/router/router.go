package router

import (
	"encoding/json"
	"net/http"

	"poultrymarket/internal/handler"
	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	Order        *handler.OrderHandler
	Payment      *handler.PaymentHandler
	Delivery     *handler.DeliveryHandler
	Blog         *handler.BlogHandler
	Chat         *handler.ChatHandler
	Notification *handler.NotificationHandler
	Admin        *handler.AdminHandler
}

type middlewareFunc = func(http.Handler) http.Handler

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, auth middleware.Authenticator, logger zerolog.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	authed := middleware.Authenticate(auth, logger)
	optional := middleware.OptionalAuth(auth, logger)
	roles := func(allowed ...model.Role) middlewareFunc {
		return middleware.RequireRole(logger, allowed...)
	}
	sellers := roles(model.RoleSeller, model.RoleCompany, model.RoleAdmin)
	agents := roles(model.RoleDeliveryAgent, model.RoleAdmin)
	admins := roles(model.RoleAdmin)
	customers := roles(model.RoleCustomer)

	public := func(fn http.HandlerFunc) http.Handler { return fn }
	withUser := func(fn http.HandlerFunc, mws ...middlewareFunc) http.Handler {
		return chain(fn, append([]middlewareFunc{authed}, mws...)...)
	}

	// Health check endpoint (no authentication required)
	r.Handle("/health", public(h.Health.Health)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.Handle("/auth/register", public(h.Auth.Register)).Methods(http.MethodPost)
	api.Handle("/auth/login", public(h.Auth.Login)).Methods(http.MethodPost)
	api.Handle("/auth/logout", withUser(h.Auth.Logout)).Methods(http.MethodPost)
	api.Handle("/auth/me", withUser(h.Auth.Me)).Methods(http.MethodGet)
	api.Handle("/auth/me", withUser(h.Auth.UpdateMe)).Methods(http.MethodPatch)

	api.Handle("/products", public(h.Product.List)).Methods(http.MethodGet)
	api.Handle("/products", withUser(h.Product.Create, sellers)).Methods(http.MethodPost)
	api.Handle("/products/{id}", chain(http.HandlerFunc(h.Product.Get), optional)).Methods(http.MethodGet)
	api.Handle("/products/{id}", withUser(h.Product.Update)).Methods(http.MethodPut)
	api.Handle("/products/{id}", withUser(h.Product.Delete)).Methods(http.MethodDelete)

	api.Handle("/orders", withUser(h.Order.Create, customers)).Methods(http.MethodPost)
	api.Handle("/orders", withUser(h.Order.List)).Methods(http.MethodGet)
	api.Handle("/orders/{id}", withUser(h.Order.Get)).Methods(http.MethodGet)
	api.Handle("/orders/{id}/timeline", withUser(h.Order.Timeline)).Methods(http.MethodGet)
	api.Handle("/orders/{id}/cancel", withUser(h.Order.Cancel)).Methods(http.MethodPost)
	api.Handle("/orders/{id}/dispatch", withUser(h.Order.Dispatch)).Methods(http.MethodPost)
	api.Handle("/orders/{id}/complete", withUser(h.Order.Complete)).Methods(http.MethodPost)
	api.Handle("/orders/{id}/payments", withUser(h.Payment.ListForOrder)).Methods(http.MethodGet)
	api.Handle("/orders/{id}/payments/stk", withUser(h.Payment.InitiateSTK, customers)).Methods(http.MethodPost)
	api.Handle("/orders/{id}/payments/manual", withUser(h.Payment.SubmitManual, customers)).Methods(http.MethodPost)
	api.Handle("/orders/{id}/delivery", withUser(h.Delivery.Assign, sellers)).Methods(http.MethodPost)
	api.Handle("/orders/{id}/tracking", withUser(h.Delivery.Tracking)).Methods(http.MethodGet)

	// Gateways authenticate through the payload, not a bearer token.
	api.Handle("/payments/callbacks/lipia", public(h.Payment.LipiaCallback)).Methods(http.MethodPost)
	api.Handle("/payments/callbacks/intasend", public(h.Payment.IntaSendCallback)).Methods(http.MethodPost)
	api.Handle("/payments/{id}/approve", withUser(h.Payment.Approve, admins)).Methods(http.MethodPost)
	api.Handle("/payments/{id}/reject", withUser(h.Payment.Reject, admins)).Methods(http.MethodPost)
	api.Handle("/payments/{id}/refresh", withUser(h.Payment.Refresh)).Methods(http.MethodPost)

	api.Handle("/deliveries", withUser(h.Delivery.List, agents)).Methods(http.MethodGet)
	api.Handle("/deliveries/{id}", withUser(h.Delivery.Get, agents)).Methods(http.MethodGet)
	api.Handle("/deliveries/{id}/updates", withUser(h.Delivery.AddUpdate, agents)).Methods(http.MethodPost)

	api.Handle("/blog/authors", withUser(h.Blog.Apply)).Methods(http.MethodPost)
	api.Handle("/blog/authors/me", withUser(h.Blog.MyAuthor)).Methods(http.MethodGet)
	api.Handle("/blog/posts", public(h.Blog.ListPosts)).Methods(http.MethodGet)
	api.Handle("/blog/posts", withUser(h.Blog.CreatePost)).Methods(http.MethodPost)
	api.Handle("/blog/posts/{slug}", chain(http.HandlerFunc(h.Blog.GetPost), optional)).Methods(http.MethodGet)
	api.Handle("/blog/posts/{id}", withUser(h.Blog.UpdatePost)).Methods(http.MethodPut)
	api.Handle("/blog/posts/{id}", withUser(h.Blog.DeletePost)).Methods(http.MethodDelete)
	api.Handle("/blog/posts/{id}/publish", withUser(h.Blog.PublishPost)).Methods(http.MethodPost)
	api.Handle("/blog/posts/{id}/comments", public(h.Blog.ListComments)).Methods(http.MethodGet)
	api.Handle("/blog/posts/{id}/comments", withUser(h.Blog.AddComment)).Methods(http.MethodPost)

	api.Handle("/chat/conversations", withUser(h.Chat.ListConversations)).Methods(http.MethodGet)
	api.Handle("/chat/conversations", withUser(h.Chat.Start)).Methods(http.MethodPost)
	api.Handle("/chat/conversations/{id}/messages", withUser(h.Chat.ListMessages)).Methods(http.MethodGet)
	api.Handle("/chat/conversations/{id}/messages", withUser(h.Chat.Send)).Methods(http.MethodPost)
	api.Handle("/chat/conversations/{id}/read", withUser(h.Chat.MarkRead)).Methods(http.MethodPost)

	api.Handle("/notifications", withUser(h.Notification.List)).Methods(http.MethodGet)
	api.Handle("/notifications/unread-count", withUser(h.Notification.UnreadCount)).Methods(http.MethodGet)
	api.Handle("/notifications/read-all", withUser(h.Notification.MarkAllRead)).Methods(http.MethodPost)
	api.Handle("/notifications/{id}/read", withUser(h.Notification.MarkRead)).Methods(http.MethodPost)

	api.Handle("/admin/users", withUser(h.Admin.ListUsers, admins)).Methods(http.MethodGet)
	api.Handle("/admin/users/{id}", withUser(h.Admin.UpdateUser, admins)).Methods(http.MethodPatch)
	api.Handle("/admin/stats", withUser(h.Admin.Stats, admins)).Methods(http.MethodGet)
	api.Handle("/admin/authors/{id}/approve", withUser(h.Admin.ApproveAuthor, admins)).Methods(http.MethodPost)
	api.Handle("/admin/authors/{id}/reject", withUser(h.Admin.RejectAuthor, admins)).Methods(http.MethodPost)

	// Apply middleware in order: RequestID -> Recovery -> Logging -> CORS
	var handler http.Handler = r
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// chain wraps h so that the first middleware runs first.
func chain(h http.Handler, mws ...middlewareFunc) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, http.StatusNotFound, model.ErrCodeNotFound, "route not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, http.StatusMethodNotAllowed, model.ErrCodeValidation, "method not allowed")
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Error:         message,
		Code:          code,
		CorrelationID: middleware.GetRequestID(r.Context()),
	})
}
