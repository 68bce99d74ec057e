package service

import (
	"context"
	"sync"
	"time"

	"poultrymarket/internal/model"
	"poultrymarket/internal/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// value returns the i-th mocked return value as T, or T's zero value when it is nil.
func value[T any](args mock.Arguments, i int) T {
	var zero T
	if args.Get(i) == nil {
		return zero
	}
	return args.Get(i).(T)
}

// MockTxManager runs the function without a real transaction.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, reason string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	m.Called(ctx, reason)
	return fn(ctx, nil)
}

// MockNotifier records every notification it is asked to deliver.
type MockNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (m *MockNotifier) Notify(_ context.Context, notifications ...model.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, notifications...)
}

func (m *MockNotifier) recipients(typ model.NotificationType) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, n := range m.sent {
		if n.Type == typ {
			out = append(out, n.UserID)
		}
	}
	return out
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	return value[*model.User](args, 0), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	return value[*model.User](args, 0), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	args := m.Called(ctx, filter)
	return value[[]model.User](args, 0), args.Error(1)
}

func (m *MockUserRepository) CreateToken(ctx context.Context, token *model.AuthToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockUserRepository) GetToken(ctx context.Context, tokenHash string) (*model.AuthToken, error) {
	args := m.Called(ctx, tokenHash)
	return value[*model.AuthToken](args, 0), args.Error(1)
}

func (m *MockUserRepository) RevokeToken(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *model.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	return value[*model.Product](args, 0), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	return value[[]model.Product](args, 0), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	return value[[]model.Product](args, 0), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *model.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int) (bool, error) {
	args := m.Called(ctx, tx, id, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) RestoreStock(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	return m.Called(ctx, tx, items).Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	return value[*model.Order](args, 0), args.Error(1)
}

func (m *MockOrderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	return value[*model.Order](args, 0), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	args := m.Called(ctx, filter)
	return value[[]model.Order](args, 0), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) AddTimeline(ctx context.Context, tx pgx.Tx, entry model.TimelineEntry) error {
	return m.Called(ctx, tx, entry).Error(0)
}

func (m *MockOrderRepository) Timeline(ctx context.Context, orderID uuid.UUID) ([]model.TimelineEntry, error) {
	args := m.Called(ctx, orderID)
	return value[[]model.TimelineEntry](args, 0), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	return m.Called(ctx, tx, p).Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	return value[*model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, tx, id)
	return value[*model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentRepository) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*model.Payment, error) {
	args := m.Called(ctx, tx, reference)
	return value[*model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	args := m.Called(ctx, orderID)
	return value[[]model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	return m.Called(ctx, tx, p).Error(0)
}

func (m *MockPaymentRepository) AddApproval(ctx context.Context, tx pgx.Tx, a *model.Approval) error {
	return m.Called(ctx, tx, a).Error(0)
}

func (m *MockPaymentRepository) RecordCallback(ctx context.Context, tx pgx.Tx, r *model.CallbackRecord) (bool, error) {
	args := m.Called(ctx, tx, r)
	return args.Bool(0), args.Error(1)
}

type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) Create(ctx context.Context, tx pgx.Tx, d *model.Delivery) error {
	return m.Called(ctx, tx, d).Error(0)
}

func (m *MockDeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	args := m.Called(ctx, id)
	return value[*model.Delivery](args, 0), args.Error(1)
}

func (m *MockDeliveryRepository) GetByOrder(ctx context.Context, orderID uuid.UUID) (*model.Delivery, error) {
	args := m.Called(ctx, orderID)
	return value[*model.Delivery](args, 0), args.Error(1)
}

func (m *MockDeliveryRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Delivery, error) {
	args := m.Called(ctx, tx, id)
	return value[*model.Delivery](args, 0), args.Error(1)
}

func (m *MockDeliveryRepository) List(ctx context.Context, agentID *uuid.UUID, page model.Page) ([]model.Delivery, error) {
	args := m.Called(ctx, agentID, page)
	return value[[]model.Delivery](args, 0), args.Error(1)
}

func (m *MockDeliveryRepository) Update(ctx context.Context, tx pgx.Tx, d *model.Delivery) error {
	return m.Called(ctx, tx, d).Error(0)
}

func (m *MockDeliveryRepository) AddUpdate(ctx context.Context, tx pgx.Tx, u *model.DeliveryUpdate) error {
	return m.Called(ctx, tx, u).Error(0)
}

func (m *MockDeliveryRepository) Updates(ctx context.Context, deliveryID uuid.UUID) ([]model.DeliveryUpdate, error) {
	args := m.Called(ctx, deliveryID)
	return value[[]model.DeliveryUpdate](args, 0), args.Error(1)
}

type MockBlogRepository struct {
	mock.Mock
}

func (m *MockBlogRepository) CreateAuthor(ctx context.Context, a *model.Author) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockBlogRepository) GetAuthor(ctx context.Context, id uuid.UUID) (*model.Author, error) {
	args := m.Called(ctx, id)
	return value[*model.Author](args, 0), args.Error(1)
}

func (m *MockBlogRepository) GetAuthorByUser(ctx context.Context, userID uuid.UUID) (*model.Author, error) {
	args := m.Called(ctx, userID)
	return value[*model.Author](args, 0), args.Error(1)
}

func (m *MockBlogRepository) UpdateAuthorStatus(ctx context.Context, id uuid.UUID, status model.AuthorStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockBlogRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	args := m.Called(ctx, base)
	return value[[]string](args, 0), args.Error(1)
}

func (m *MockBlogRepository) CreatePost(ctx context.Context, p *model.Post) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockBlogRepository) GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	args := m.Called(ctx, id)
	return value[*model.Post](args, 0), args.Error(1)
}

func (m *MockBlogRepository) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	args := m.Called(ctx, slug)
	return value[*model.Post](args, 0), args.Error(1)
}

func (m *MockBlogRepository) UpdatePost(ctx context.Context, p *model.Post) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockBlogRepository) DeletePost(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBlogRepository) ListPublished(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	args := m.Called(ctx, filter)
	return value[[]model.Post](args, 0), args.Error(1)
}

func (m *MockBlogRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBlogRepository) AddComment(ctx context.Context, c *model.Comment) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockBlogRepository) ListComments(ctx context.Context, postID uuid.UUID, page model.Page) ([]model.Comment, error) {
	args := m.Called(ctx, postID, page)
	return value[[]model.Comment](args, 0), args.Error(1)
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) GetOrCreateConversation(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	return value[*model.Conversation](args, 0), args.Error(1)
}

func (m *MockChatRepository) GetConversation(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	return value[*model.Conversation](args, 0), args.Error(1)
}

func (m *MockChatRepository) ListConversations(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	args := m.Called(ctx, userID)
	return value[[]model.Conversation](args, 0), args.Error(1)
}

func (m *MockChatRepository) AddMessage(ctx context.Context, tx pgx.Tx, msg *model.Message) error {
	return m.Called(ctx, tx, msg).Error(0)
}

func (m *MockChatRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]model.Message, error) {
	args := m.Called(ctx, conversationID, before, limit)
	return value[[]model.Message](args, 0), args.Error(1)
}

func (m *MockChatRepository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, conversationID, readerID)
	return value[int64](args, 0), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page model.Page) ([]model.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, page)
	return value[[]model.Notification](args, 0), args.Error(1)
}

func (m *MockNotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return value[int64](args, 0), args.Error(1)
}

type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) Stats(ctx context.Context) (*model.Stats, error) {
	args := m.Called(ctx)
	return value[*model.Stats](args, 0), args.Error(1)
}

type MockPromoValidator struct {
	mock.Mock
}

func (m *MockPromoValidator) Discount(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, code, subtotal)
	return value[decimal.Decimal](args, 0), args.Error(1)
}

func (m *MockPromoValidator) Size() int {
	return m.Called().Int(0)
}

// MockGateway is a payment.Gateway for a fixed provider.
type MockGateway struct {
	mock.Mock
	provider model.Provider
	fee      float64
}

var _ payment.Gateway = (*MockGateway)(nil)

func (m *MockGateway) Provider() model.Provider { return m.provider }
func (m *MockGateway) FeePercent() float64      { return m.fee }

func (m *MockGateway) InitiateSTKPush(ctx context.Context, req payment.STKPush) (*model.GatewayResult, error) {
	args := m.Called(ctx, req)
	return value[*model.GatewayResult](args, 0), args.Error(1)
}

func (m *MockGateway) QueryStatus(ctx context.Context, reference string) (*model.GatewayResult, error) {
	args := m.Called(ctx, reference)
	return value[*model.GatewayResult](args, 0), args.Error(1)
}

func (m *MockGateway) ParseCallback(body []byte) (*model.GatewayResult, error) {
	args := m.Called(body)
	return value[*model.GatewayResult](args, 0), args.Error(1)
}

func newUser(role model.Role) *model.User {
	return &model.User{
		ID:       uuid.New(),
		Email:    string(role) + "@example.com",
		FullName: "Test " + string(role),
		Role:     role,
		Status:   model.UserActive,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal argument by value rather than by representation.
func decEq(s string) any {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}
