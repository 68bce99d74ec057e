package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"poultrymarket/internal/config"
	"poultrymarket/internal/database"
	"poultrymarket/internal/handler"
	"poultrymarket/internal/model"
	"poultrymarket/internal/notify"
	"poultrymarket/internal/payment"
	"poultrymarket/internal/promo"
	"poultrymarket/internal/repository"
	"poultrymarket/internal/router"
	"poultrymarket/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container, applies the embedded migrations and opens a pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.Migrate(connStr, database.Up, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB removes all rows from the application tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE users, products, orders, payments, deliveries, authors,
			conversations, notifications, payment_callbacks CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// testConfig mirrors the production defaults with fast hashing and no external services.
func testConfig(gatewayURL string) *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{TokenTTL: time.Hour, BcryptCost: 4},
		Payments: config.PaymentsConfig{
			Lipia: config.LipiaConfig{
				BaseURL:     gatewayURL,
				APIKey:      "lipia-key",
				CallbackURL: "http://localhost/api/payments/callbacks/lipia",
			},
			IntaSend: config.IntaSendConfig{
				BaseURL:          gatewayURL,
				SecretKey:        "intasend-key",
				WebhookChallenge: "challenge",
				FeePercent:       3,
			},
			AmountTolerance: 1,
			HTTPTimeout:     5 * time.Second,
		},
		Email:  config.EmailConfig{Provider: "log"},
		Kafka:  config.KafkaConfig{Enabled: false},
		Orders: config.OrdersConfig{DeliveryFee: 200, TxTimeout: 15 * time.Second},
	}
}

// setupTestServer wires the full application the way the serve command does, against
// testDB and a gateway stub listening at gatewayURL.
func setupTestServer(t *testing.T, testDB *TestDB, gatewayURL string) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	ctx := context.Background()
	cfg := testConfig(gatewayURL)
	pool := testDB.Pool

	txManager := repository.NewTxManager(pool, cfg.Orders.TxTimeout, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	deliveryRepo := repository.NewDeliveryRepository(pool, logger)
	blogRepo := repository.NewBlogRepository(pool, logger)
	chatRepo := repository.NewChatRepository(pool, logger)
	notificationRepo := repository.NewNotificationRepository(pool, logger)
	statsRepo := repository.NewStatsRepository(pool, logger)

	validator, err := promo.NewValidator(ctx, nil, promo.NewFileLoader(logger), logger)
	require.NoError(t, err)

	httpClient := &http.Client{Timeout: cfg.Payments.HTTPTimeout}
	gateways := payment.NewGateways(
		payment.NewLipiaClient(cfg.Payments.Lipia, httpClient, logger),
		payment.NewIntaSendClient(cfg.Payments.IntaSend, httpClient, logger),
	)

	mailer, err := notify.NewMailer(ctx, cfg.Email, logger)
	require.NoError(t, err)
	publisher, err := notify.NewPublisher(cfg.Kafka, logger)
	require.NoError(t, err)
	dispatcher := notify.NewDispatcher(notificationRepo, userRepo, mailer, publisher, 4, logger)

	authService := service.NewAuthService(userRepo, cfg.Auth, logger)
	blogService := service.NewBlogService(blogRepo, dispatcher, logger)

	return router.New(router.Handlers{
		Health:  handler.NewHealthHandler(pool, logger),
		Auth:    handler.NewAuthHandler(authService, logger),
		Product: handler.NewProductHandler(service.NewProductService(productRepo, logger), logger),
		Order: handler.NewOrderHandler(service.NewOrderService(txManager, orderRepo, productRepo, deliveryRepo,
			validator, dispatcher, decimal.NewFromFloat(cfg.Orders.DeliveryFee), logger), logger),
		Payment: handler.NewPaymentHandler(service.NewPaymentService(txManager, orderRepo, deliveryRepo, paymentRepo,
			userRepo, gateways, dispatcher, decimal.NewFromFloat(cfg.Payments.AmountTolerance), logger), logger),
		Delivery: handler.NewDeliveryHandler(service.NewDeliveryService(txManager, orderRepo, deliveryRepo,
			userRepo, dispatcher, logger), logger),
		Blog:         handler.NewBlogHandler(blogService, logger),
		Chat:         handler.NewChatHandler(service.NewChatService(txManager, chatRepo, userRepo, dispatcher, logger), logger),
		Notification: handler.NewNotificationHandler(service.NewNotificationService(notificationRepo, logger), logger),
		Admin:        handler.NewAdminHandler(service.NewAdminService(userRepo, statsRepo, logger), blogService, logger),
	}, authService, logger)
}

// apiClient issues JSON requests against an in-process server.
type apiClient struct {
	t      *testing.T
	server http.Handler
}

func (c apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.server.ServeHTTP(w, req)
	return w
}

// expect performs a request, asserts its status and decodes the body into out when set.
func (c apiClient) expect(status int, method, path, token string, body, out any) {
	c.t.Helper()

	w := c.do(method, path, token, body)
	require.Equal(c.t, status, w.Code, "%s %s: %s", method, path, w.Body.String())
	if out != nil {
		require.NoError(c.t, json.NewDecoder(w.Body).Decode(out))
	}
}

// register creates an account through the API and returns its session.
func (c apiClient) register(role model.Role) model.AuthResponse {
	c.t.Helper()

	var resp model.AuthResponse
	c.expect(http.StatusCreated, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{
		Email:    fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		Password: "correct-horse",
		FullName: "Test " + string(role),
		Phone:    "0712345678",
		Role:     role,
	}, &resp)
	return resp
}

// registerAdmin registers a customer and promotes it directly in the database,
// since the API never hands out the admin role.
func (c apiClient) registerAdmin(pool *pgxpool.Pool) model.AuthResponse {
	c.t.Helper()

	resp := c.register(model.RoleCustomer)
	_, err := pool.Exec(context.Background(), `UPDATE users SET role = 'ADMIN' WHERE id = $1`, resp.User.ID)
	require.NoError(c.t, err)
	return resp
}
