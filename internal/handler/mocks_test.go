package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func value[T any](args mock.Arguments, i int) T {
	var zero T
	if args.Get(i) == nil {
		return zero
	}
	return args.Get(i).(T)
}

func newUser(role model.Role) *model.User {
	return &model.User{ID: uuid.New(), Email: "u@example.com", FullName: "Test User", Role: role, Status: model.UserActive}
}

// call routes a single request through a mux router registered on pattern,
// with user stored as the authenticated caller.
func call(t *testing.T, pattern string, fn http.HandlerFunc, method, target string, body any, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	return callWithToken(t, pattern, fn, method, target, "", user, body)
}

func callWithToken(t *testing.T, pattern string, fn http.HandlerFunc, method, target, token string, user *model.User, body ...any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	var payload any
	if len(body) > 0 {
		payload = body[0]
	}
	switch b := payload.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	r := mux.NewRouter()
	r.Handle(pattern, middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if user != nil {
			req = req.WithContext(middleware.WithUser(req.Context(), user))
		}
		fn(w, req)
	}))).Methods(method)

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	args := m.Called(ctx, req)
	return value[*model.AuthResponse](args, 0), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	args := m.Called(ctx, req)
	return value[*model.AuthResponse](args, 0), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	args := m.Called(ctx, token)
	return value[*model.User](args, 0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, user *model.User, req *model.UpdateProfileRequest) (*model.User, error) {
	args := m.Called(ctx, user, req)
	return value[*model.User](args, 0), args.Error(1)
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	return value[[]model.Product](args, 0), args.Error(1)
}

func (m *MockProductService) Get(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, viewer, id)
	return value[*model.Product](args, 0), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, seller *model.User, req *model.ProductRequest) (*model.Product, error) {
	args := m.Called(ctx, seller, req)
	return value[*model.Product](args, 0), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, actor *model.User, id uuid.UUID, req *model.ProductRequest) (*model.Product, error) {
	args := m.Called(ctx, actor, id, req)
	return value[*model.Product](args, 0), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, customer *model.User, req *model.OrderRequest) (*model.Order, error) {
	args := m.Called(ctx, customer, req)
	return value[*model.Order](args, 0), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, viewer *model.User, filter model.OrderFilter) ([]model.Order, error) {
	args := m.Called(ctx, viewer, filter)
	return value[[]model.Order](args, 0), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, viewer, id)
	return value[*model.Order](args, 0), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, viewer *model.User, id uuid.UUID, reason string) (*model.Order, error) {
	args := m.Called(ctx, viewer, id, reason)
	return value[*model.Order](args, 0), args.Error(1)
}

func (m *MockOrderService) DispatchOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, viewer, id)
	return value[*model.Order](args, 0), args.Error(1)
}

func (m *MockOrderService) CompleteOrder(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, viewer, id)
	return value[*model.Order](args, 0), args.Error(1)
}

func (m *MockOrderService) Timeline(ctx context.Context, viewer *model.User, id uuid.UUID) ([]model.TimelineEntry, error) {
	args := m.Called(ctx, viewer, id)
	return value[[]model.TimelineEntry](args, 0), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiateSTKPush(ctx context.Context, customer *model.User, orderID uuid.UUID, req *model.STKPushRequest) (*model.Payment, error) {
	args := m.Called(ctx, customer, orderID, req)
	return value[*model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentService) HandleCallback(ctx context.Context, provider model.Provider, body []byte) (*model.CallbackResponse, error) {
	args := m.Called(ctx, provider, body)
	return value[*model.CallbackResponse](args, 0), args.Error(1)
}

func (m *MockPaymentService) RefreshStatus(ctx context.Context, viewer *model.User, paymentID uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, viewer, paymentID)
	return value[*model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentService) SubmitManual(ctx context.Context, customer *model.User, orderID uuid.UUID, req *model.ManualPaymentRequest) (*model.Payment, error) {
	args := m.Called(ctx, customer, orderID, req)
	return value[*model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentService) Approve(ctx context.Context, admin *model.User, paymentID uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, admin, paymentID)
	return value[*model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentService) Reject(ctx context.Context, admin *model.User, paymentID uuid.UUID, reason string) (*model.Payment, error) {
	args := m.Called(ctx, admin, paymentID, reason)
	return value[*model.Payment](args, 0), args.Error(1)
}

func (m *MockPaymentService) ListForOrder(ctx context.Context, viewer *model.User, orderID uuid.UUID) ([]model.Payment, error) {
	args := m.Called(ctx, viewer, orderID)
	return value[[]model.Payment](args, 0), args.Error(1)
}

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Assign(ctx context.Context, actor *model.User, orderID uuid.UUID, req *model.AssignDeliveryRequest) (*model.Delivery, error) {
	args := m.Called(ctx, actor, orderID, req)
	return value[*model.Delivery](args, 0), args.Error(1)
}

func (m *MockDeliveryService) AddUpdate(ctx context.Context, actor *model.User, deliveryID uuid.UUID, req *model.DeliveryUpdateRequest) (*model.Delivery, error) {
	args := m.Called(ctx, actor, deliveryID, req)
	return value[*model.Delivery](args, 0), args.Error(1)
}

func (m *MockDeliveryService) List(ctx context.Context, viewer *model.User, page model.Page) ([]model.Delivery, error) {
	args := m.Called(ctx, viewer, page)
	return value[[]model.Delivery](args, 0), args.Error(1)
}

func (m *MockDeliveryService) Get(ctx context.Context, viewer *model.User, id uuid.UUID) (*model.Delivery, error) {
	args := m.Called(ctx, viewer, id)
	return value[*model.Delivery](args, 0), args.Error(1)
}

func (m *MockDeliveryService) Tracking(ctx context.Context, viewer *model.User, orderID uuid.UUID) (*model.Delivery, error) {
	args := m.Called(ctx, viewer, orderID)
	return value[*model.Delivery](args, 0), args.Error(1)
}

type MockBlogService struct {
	mock.Mock
}

func (m *MockBlogService) Apply(ctx context.Context, user *model.User, req *model.AuthorRequest) (*model.Author, error) {
	args := m.Called(ctx, user, req)
	return value[*model.Author](args, 0), args.Error(1)
}

func (m *MockBlogService) MyAuthor(ctx context.Context, user *model.User) (*model.Author, error) {
	args := m.Called(ctx, user)
	return value[*model.Author](args, 0), args.Error(1)
}

func (m *MockBlogService) ReviewAuthor(ctx context.Context, admin *model.User, authorID uuid.UUID, approve bool) (*model.Author, error) {
	args := m.Called(ctx, admin, authorID, approve)
	return value[*model.Author](args, 0), args.Error(1)
}

func (m *MockBlogService) CreatePost(ctx context.Context, user *model.User, req *model.PostRequest) (*model.Post, error) {
	args := m.Called(ctx, user, req)
	return value[*model.Post](args, 0), args.Error(1)
}

func (m *MockBlogService) UpdatePost(ctx context.Context, user *model.User, id uuid.UUID, req *model.PostRequest) (*model.Post, error) {
	args := m.Called(ctx, user, id, req)
	return value[*model.Post](args, 0), args.Error(1)
}

func (m *MockBlogService) DeletePost(ctx context.Context, user *model.User, id uuid.UUID) error {
	return m.Called(ctx, user, id).Error(0)
}

func (m *MockBlogService) PublishPost(ctx context.Context, user *model.User, id uuid.UUID) (*model.Post, error) {
	args := m.Called(ctx, user, id)
	return value[*model.Post](args, 0), args.Error(1)
}

func (m *MockBlogService) ListPosts(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	args := m.Called(ctx, filter)
	return value[[]model.Post](args, 0), args.Error(1)
}

func (m *MockBlogService) GetPostBySlug(ctx context.Context, viewer *model.User, slug string) (*model.Post, error) {
	args := m.Called(ctx, viewer, slug)
	return value[*model.Post](args, 0), args.Error(1)
}

func (m *MockBlogService) AddComment(ctx context.Context, user *model.User, postID uuid.UUID, req *model.CommentRequest) (*model.Comment, error) {
	args := m.Called(ctx, user, postID, req)
	return value[*model.Comment](args, 0), args.Error(1)
}

func (m *MockBlogService) ListComments(ctx context.Context, postID uuid.UUID, page model.Page) ([]model.Comment, error) {
	args := m.Called(ctx, postID, page)
	return value[[]model.Comment](args, 0), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Start(ctx context.Context, user *model.User, participantID uuid.UUID) (*model.Conversation, error) {
	args := m.Called(ctx, user, participantID)
	return value[*model.Conversation](args, 0), args.Error(1)
}

func (m *MockChatService) ListConversations(ctx context.Context, user *model.User) ([]model.Conversation, error) {
	args := m.Called(ctx, user)
	return value[[]model.Conversation](args, 0), args.Error(1)
}

func (m *MockChatService) ListMessages(ctx context.Context, user *model.User, conversationID uuid.UUID, before *time.Time, limit int) ([]model.Message, error) {
	args := m.Called(ctx, user, conversationID, before, limit)
	return value[[]model.Message](args, 0), args.Error(1)
}

func (m *MockChatService) Send(ctx context.Context, user *model.User, conversationID uuid.UUID, body string) (*model.Message, error) {
	args := m.Called(ctx, user, conversationID, body)
	return value[*model.Message](args, 0), args.Error(1)
}

func (m *MockChatService) MarkRead(ctx context.Context, user *model.User, conversationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, user, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context, user *model.User, unreadOnly bool, page model.Page) ([]model.Notification, error) {
	args := m.Called(ctx, user, unreadOnly, page)
	return value[[]model.Notification](args, 0), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, user *model.User) (int, error) {
	args := m.Called(ctx, user)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, user *model.User, id uuid.UUID) error {
	return m.Called(ctx, user, id).Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, user *model.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	args := m.Called(ctx, filter)
	return value[[]model.User](args, 0), args.Error(1)
}

func (m *MockAdminService) UpdateUser(ctx context.Context, admin *model.User, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	args := m.Called(ctx, admin, id, req)
	return value[*model.User](args, 0), args.Error(1)
}

func (m *MockAdminService) Stats(ctx context.Context) (*model.Stats, error) {
	args := m.Called(ctx)
	return value[*model.Stats](args, 0), args.Error(1)
}
