package service

import (
	"context"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
)

// Notifier delivers notifications after the state they describe has been committed.
type Notifier interface {
	Notify(ctx context.Context, notifications ...model.Notification)
}

// AuthService defines account registration and session handling.
type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)

	// Authenticate resolves a bearer token to an active user.
	Authenticate(ctx context.Context, token string) (*model.User, error)

	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, user *model.User, req *model.UpdateProfileRequest) (*model.User, error)
}

// ProductService defines operations for product management.
type ProductService interface {
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// Get returns an active product. Inactive products are only visible to their seller and admins.
	Get(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Product, error)

	Create(ctx context.Context, seller *model.User, req *model.ProductRequest) (*model.Product, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, req *model.ProductRequest) (*model.Product, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
}

// OrderService defines the order workflow.
type OrderService interface {
	CreateOrder(ctx context.Context, customer *model.User, req *model.OrderRequest) (*model.Order, error)
	ListOrders(ctx context.Context, viewer *model.User, filter model.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error)
	CancelOrder(ctx context.Context, viewer *model.User, id uuid.UUID, reason string) (*model.Order, error)
	DispatchOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error)
	CompleteOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error)
	Timeline(ctx context.Context, viewer *model.User, id uuid.UUID) ([]model.TimelineEntry, error)
}

// PaymentService defines M-Pesa collection and the manual approval workflow.
type PaymentService interface {
	InitiateSTKPush(ctx context.Context, customer *model.User, orderID uuid.UUID, req *model.STKPushRequest) (*model.Payment, error)

	// HandleCallback processes a gateway notification exactly once per (provider, external id).
	HandleCallback(ctx context.Context, provider model.Provider, body []byte) (*model.CallbackResponse, error)

	RefreshStatus(ctx context.Context, viewer *model.User, paymentID uuid.UUID) (*model.Payment, error)
	SubmitManual(ctx context.Context, customer *model.User, orderID uuid.UUID, req *model.ManualPaymentRequest) (*model.Payment, error)
	Approve(ctx context.Context, admin *model.User, paymentID uuid.UUID) (*model.Payment, error)
	Reject(ctx context.Context, admin *model.User, paymentID uuid.UUID, reason string) (*model.Payment, error)
	ListForOrder(ctx context.Context, viewer *model.User, orderID uuid.UUID) ([]model.Payment, error)
}

// DeliveryService defines delivery assignment and tracking.
type DeliveryService interface {
	Assign(ctx context.Context, actor *model.User, orderID uuid.UUID, req *model.AssignDeliveryRequest) (*model.Delivery, error)
	AddUpdate(ctx context.Context, actor *model.User, deliveryID uuid.UUID, req *model.DeliveryUpdateRequest) (*model.Delivery, error)
	List(ctx context.Context, viewer *model.User, page model.Page) ([]model.Delivery, error)
	Get(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Delivery, error)
	Tracking(ctx context.Context, viewer *model.User, orderID uuid.UUID) (*model.Delivery, error)
}

// BlogService defines authors, posts and comments.
type BlogService interface {
	Apply(ctx context.Context, user *model.User, req *model.AuthorRequest) (*model.Author, error)
	MyAuthor(ctx context.Context, user *model.User) (*model.Author, error)
	ReviewAuthor(ctx context.Context, admin *model.User, authorID uuid.UUID, approve bool) (*model.Author, error)

	CreatePost(ctx context.Context, user *model.User, req *model.PostRequest) (*model.Post, error)
	UpdatePost(ctx context.Context, user *model.User, id uuid.UUID, req *model.PostRequest) (*model.Post, error)
	DeletePost(ctx context.Context, user *model.User, id uuid.UUID) error
	PublishPost(ctx context.Context, user *model.User, id uuid.UUID) (*model.Post, error)
	ListPosts(ctx context.Context, filter model.PostFilter) ([]model.Post, error)

	// GetPostBySlug returns published posts to anyone; viewer may be nil.
	GetPostBySlug(ctx context.Context, viewer *model.User, slug string) (*model.Post, error)

	AddComment(ctx context.Context, user *model.User, postID uuid.UUID, req *model.CommentRequest) (*model.Comment, error)
	ListComments(ctx context.Context, postID uuid.UUID, page model.Page) ([]model.Comment, error)
}

// ChatService defines two-party conversations.
type ChatService interface {
	Start(ctx context.Context, user *model.User, participantID uuid.UUID) (*model.Conversation, error)
	ListConversations(ctx context.Context, user *model.User) ([]model.Conversation, error)
	ListMessages(ctx context.Context, user *model.User, conversationID uuid.UUID, before *time.Time, limit int) ([]model.Message, error)
	Send(ctx context.Context, user *model.User, conversationID uuid.UUID, body string) (*model.Message, error)
	MarkRead(ctx context.Context, user *model.User, conversationID uuid.UUID) (int64, error)
}

// NotificationService exposes a user's in-app notifications.
type NotificationService interface {
	List(ctx context.Context, user *model.User, unreadOnly bool, page model.Page) ([]model.Notification, error)
	UnreadCount(ctx context.Context, user *model.User) (int, error)
	MarkRead(ctx context.Context, user *model.User, id uuid.UUID) error
	MarkAllRead(ctx context.Context, user *model.User) (int64, error)
}

// AdminService defines user management and dashboard figures.
type AdminService interface {
	ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, error)
	UpdateUser(ctx context.Context, admin *model.User, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error)
	Stats(ctx context.Context) (*model.Stats, error)
}
