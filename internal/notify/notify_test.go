package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"poultrymarket/internal/config"
	"poultrymarket/internal/model"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page model.Page) ([]model.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, page)
	return args.Get(0).([]model.Notification), args.Error(1)
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
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) CreateToken(ctx context.Context, t *model.AuthToken) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockUserRepository) GetToken(ctx context.Context, hash string) (*model.AuthToken, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthToken), args.Error(1)
}

func (m *MockUserRepository) RevokeToken(ctx context.Context, hash string) error {
	return m.Called(ctx, hash).Error(0)
}

// recordingMailer collects sent emails and can be told to fail.
type recordingMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (r *recordingMailer) Send(_ context.Context, e Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, e)
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []model.Notification
	err       error
}

func (r *recordingPublisher) Publish(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, n)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func TestDispatcher_Notify(t *testing.T) {
	customer := &model.User{ID: uuid.New(), Email: "wanjiru@example.com", FullName: "Wanjiru <W>"}
	seller := uuid.New()

	notifications := new(MockNotificationRepository)
	users := new(MockUserRepository)
	mailer := &recordingMailer{}
	publisher := &recordingPublisher{}

	placed := model.NewNotification(customer.ID, model.NotifyOrderPlaced, "Order placed", "Your order was received", nil)
	message := model.NewNotification(seller, model.NotifyNewMessage, "New message", "You have a new message", nil)

	notifications.On("Create", mock.Anything, mock.AnythingOfType("*model.Notification")).Return(nil).Twice()
	users.On("GetByID", mock.Anything, customer.ID).Return(customer, nil).Once()

	d := NewDispatcher(notifications, users, mailer, publisher, 2, zerolog.Nop())
	d.Notify(context.Background(), placed, message)

	notifications.AssertExpectations(t)
	users.AssertExpectations(t)
	users.AssertNotCalled(t, "GetByID", mock.Anything, seller)

	require.Len(t, mailer.sent, 1, "only email-worthy types are mailed")
	assert.Equal(t, "wanjiru@example.com", mailer.sent[0].To)
	assert.Equal(t, "Order placed", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].HTMLBody, "Wanjiru &lt;W&gt;")
	assert.Len(t, publisher.published, 2)
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	userID := uuid.New()

	notifications := new(MockNotificationRepository)
	users := new(MockUserRepository)
	mailer := &recordingMailer{err: errors.New("smtp down")}
	publisher := &recordingPublisher{err: errors.New("broker down")}

	notifications.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	users.On("GetByID", mock.Anything, userID).Return(&model.User{ID: userID, Email: "a@b.c"}, nil)

	d := NewDispatcher(notifications, users, mailer, publisher, 0, zerolog.Nop())

	assert.NotPanics(t, func() {
		d.Notify(context.Background(),
			model.NewNotification(userID, model.NotifyPaymentApproved, "Paid", "Payment approved", nil))
	})
	assert.Len(t, publisher.published, 1, "publishing is attempted after earlier failures")
}

func TestDispatcher_MissingRecipient(t *testing.T) {
	userID := uuid.New()

	notifications := new(MockNotificationRepository)
	users := new(MockUserRepository)
	mailer := &recordingMailer{}

	notifications.On("Create", mock.Anything, mock.Anything).Return(nil)
	users.On("GetByID", mock.Anything, userID).Return(nil, nil)

	d := NewDispatcher(notifications, users, mailer, noopPublisher{}, 1, zerolog.Nop())
	d.Notify(context.Background(), model.NewNotification(userID, model.NotifyAuthorReviewed, "Reviewed", "ok", nil))

	assert.Empty(t, mailer.sent)
}

func TestDispatcher_NotifyNothing(t *testing.T) {
	d := NewDispatcher(new(MockNotificationRepository), new(MockUserRepository), &recordingMailer{}, noopPublisher{}, 1, zerolog.Nop())
	d.Notify(context.Background())
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	n := model.NewNotification(uuid.New(), model.NotifyOrderStatus, "Dispatched", "On its way", map[string]string{"orderId": "42"})

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got model.Notification
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.ID != n.ID {
			return errors.New("unexpected notification id")
		}
		return nil
	})

	p := NewKafkaPublisher(producer, "poultrymarket.notifications", zerolog.Nop())
	require.NoError(t, p.Publish(context.Background(), n))
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_Error(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisher(producer, "topic", zerolog.Nop())
	err := p.Publish(context.Background(), model.NewNotification(uuid.New(), model.NotifyOrderStatus, "t", "m", nil))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := NewSESMailer(client, "no-reply@poultrymarket.co.ke", zerolog.Nop())

	err := m.Send(context.Background(), Email{To: "a@b.c", Subject: "Hello", TextBody: "text"})
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "no-reply@poultrymarket.co.ke", aws.ToString(client.input.FromEmailAddress))
	assert.Equal(t, []string{"a@b.c"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(client.input.Content.Simple.Subject.Data))
	assert.Nil(t, client.input.Content.Simple.Body.Html)

	client.err = errors.New("throttled")
	assert.Error(t, m.Send(context.Background(), Email{To: "a@b.c"}))
}

func TestNewPublisher_Disabled(t *testing.T) {
	p, err := NewPublisher(config.KafkaConfig{Enabled: false, Topic: "t"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, noopPublisher{}, p)
}

func TestNewMailer_Log(t *testing.T) {
	m, err := NewMailer(context.Background(), config.EmailConfig{Provider: "log"}, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, m.Send(context.Background(), Email{To: "a@b.c", Subject: "s", TextBody: "b"}))
}
