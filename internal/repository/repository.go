package repository

import (
	"context"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxManager runs a function inside a database transaction.
type TxManager interface {
	// WithTx begins a transaction bounded by the configured timeout, calls fn and
	// commits when fn returns nil. Any error or panic rolls the transaction back.
	// reason is used for logging only.
	WithTx(ctx context.Context, reason string, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// UserRepository defines data access for accounts and their session tokens.
type UserRepository interface {
	// Create inserts a new user. Returns model.ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *model.User) error

	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetByEmail looks a user up case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// Update persists the mutable fields of a user.
	Update(ctx context.Context, user *model.User) error

	List(ctx context.Context, filter model.UserFilter) ([]model.User, error)

	CreateToken(ctx context.Context, token *model.AuthToken) error
	GetToken(ctx context.Context, tokenHash string) (*model.AuthToken, error)
	RevokeToken(ctx context.Context, tokenHash string) error
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error

	// GetByID retrieves a single product by its ID, active or not.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)

	// List returns active products matching the filter.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	Update(ctx context.Context, product *model.Product) error

	// Deactivate hides a product from the catalogue. Existing orders keep referencing it.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// DecrementStock takes qty units from an active product only if enough remain.
	// Returns false when the conditional update matched no row.
	DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int) (bool, error)

	// RestoreStock puts the quantities of the given items back.
	RestoreStock(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts an order and its items within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForUpdate locks the order row for the rest of the transaction.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus writes both the order and the payment status.
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error

	AddTimeline(ctx context.Context, tx pgx.Tx, entry model.TimelineEntry) error
	Timeline(ctx context.Context, orderID uuid.UUID) ([]model.TimelineEntry, error)
}

// PaymentRepository defines data access for payment attempts and their audit trail.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Payment, error)

	// GetByReferenceForUpdate finds the payment a gateway reference belongs to and locks it.
	GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*model.Payment, error)

	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error)
	Update(ctx context.Context, tx pgx.Tx, payment *model.Payment) error
	AddApproval(ctx context.Context, tx pgx.Tx, approval *model.Approval) error

	// RecordCallback stores a gateway notification. It returns false when the
	// (provider, external id) pair was already recorded.
	RecordCallback(ctx context.Context, tx pgx.Tx, record *model.CallbackRecord) (bool, error)
}

// DeliveryRepository defines data access for deliveries and tracking updates.
type DeliveryRepository interface {
	// Create returns model.ErrDuplicate when the order already has a delivery.
	Create(ctx context.Context, tx pgx.Tx, delivery *model.Delivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*model.Delivery, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Delivery, error)

	// List returns deliveries for one agent, or all of them when agentID is nil.
	List(ctx context.Context, agentID *uuid.UUID, page model.Page) ([]model.Delivery, error)

	Update(ctx context.Context, tx pgx.Tx, delivery *model.Delivery) error
	AddUpdate(ctx context.Context, tx pgx.Tx, update *model.DeliveryUpdate) error
	Updates(ctx context.Context, deliveryID uuid.UUID) ([]model.DeliveryUpdate, error)
}

// BlogRepository defines data access for authors, posts and comments.
type BlogRepository interface {
	CreateAuthor(ctx context.Context, author *model.Author) error
	GetAuthor(ctx context.Context, id uuid.UUID) (*model.Author, error)
	GetAuthorByUser(ctx context.Context, userID uuid.UUID) (*model.Author, error)
	UpdateAuthorStatus(ctx context.Context, id uuid.UUID, status model.AuthorStatus) error

	// SlugsWithPrefix returns every existing slug equal to base or starting with "base-".
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)

	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*model.Post, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id uuid.UUID) error
	ListPublished(ctx context.Context, filter model.PostFilter) ([]model.Post, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error

	AddComment(ctx context.Context, comment *model.Comment) error
	ListComments(ctx context.Context, postID uuid.UUID, page model.Page) ([]model.Comment, error)
}

// ChatRepository defines data access for conversations and messages.
type ChatRepository interface {
	// GetOrCreateConversation returns the conversation for the ordered pair, creating it if needed.
	GetOrCreateConversation(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)

	// AddMessage stores a message and bumps the conversation's last_message_at.
	AddMessage(ctx context.Context, tx pgx.Tx, message *model.Message) error

	// ListMessages returns up to limit messages older than before, newest first.
	ListMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]model.Message, error)

	// MarkRead stamps every unread message not sent by readerID.
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
}

// NotificationRepository defines data access for in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page model.Page) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead returns false when the notification does not belong to userID.
	MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// StatsRepository aggregates figures for the admin dashboard.
type StatsRepository interface {
	Stats(ctx context.Context) (*model.Stats, error)
}
