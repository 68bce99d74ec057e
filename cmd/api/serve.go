package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poultrymarket/internal/config"
	"poultrymarket/internal/database"
	"poultrymarket/internal/handler"
	"poultrymarket/internal/notify"
	"poultrymarket/internal/payment"
	"poultrymarket/internal/promo"
	"poultrymarket/internal/repository"
	"poultrymarket/internal/router"
	"poultrymarket/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const notifyConcurrency = 8

func serveCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger, !skipMigrations)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations at start-up")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, logger zerolog.Logger, migrateUp bool) error {
	logger.Info().Str("version", version).Msg("starting poultrymarket API server")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if migrateUp {
		if err := database.Migrate(cfg.Database.ConnectionString(), database.Up, logger); err != nil {
			return err
		}
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Repositories
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

	validator, err := newPromoValidator(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize promo validator: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Payments.HTTPTimeout}
	gateways := payment.NewGateways(
		payment.NewLipiaClient(cfg.Payments.Lipia, httpClient, logger),
		payment.NewIntaSendClient(cfg.Payments.IntaSend, httpClient, logger),
	)

	// Notifications
	mailer, err := notify.NewMailer(ctx, cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	publisher, err := notify.NewPublisher(cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close event publisher")
		}
	}()
	dispatcher := notify.NewDispatcher(notificationRepo, userRepo, mailer, publisher, notifyConcurrency, logger)

	// Services
	authService := service.NewAuthService(userRepo, cfg.Auth, logger)
	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(txManager, orderRepo, productRepo, deliveryRepo, validator,
		dispatcher, decimal.NewFromFloat(cfg.Orders.DeliveryFee), logger)
	paymentService := service.NewPaymentService(txManager, orderRepo, deliveryRepo, paymentRepo, userRepo,
		gateways, dispatcher, decimal.NewFromFloat(cfg.Payments.AmountTolerance), logger)
	deliveryService := service.NewDeliveryService(txManager, orderRepo, deliveryRepo, userRepo, dispatcher, logger)
	blogService := service.NewBlogService(blogRepo, dispatcher, logger)
	chatService := service.NewChatService(txManager, chatRepo, userRepo, dispatcher, logger)
	notificationService := service.NewNotificationService(notificationRepo, logger)
	adminService := service.NewAdminService(userRepo, statsRepo, logger)

	mux := router.New(router.Handlers{
		Health:       handler.NewHealthHandler(pool, logger),
		Auth:         handler.NewAuthHandler(authService, logger),
		Product:      handler.NewProductHandler(productService, logger),
		Order:        handler.NewOrderHandler(orderService, logger),
		Payment:      handler.NewPaymentHandler(paymentService, logger),
		Delivery:     handler.NewDeliveryHandler(deliveryService, logger),
		Blog:         handler.NewBlogHandler(blogService, logger),
		Chat:         handler.NewChatHandler(chatService, logger),
		Notification: handler.NewNotificationHandler(notificationService, logger),
		Admin:        handler.NewAdminHandler(adminService, blogService, logger),
	}, authService, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newPromoValidator loads the configured catalogues from S3 with a local fallback,
// or from local disk only when S3 is disabled.
func newPromoValidator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (promo.Validator, error) {
	fileLoader := promo.NewFileLoader(logger)
	loader := fileLoader

	if cfg.S3.Enabled {
		s3Loader, err := promo.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			loader = promo.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger)
		}
	} else {
		logger.Info().Msg("using local file system for promo catalogues (S3 disabled)")
	}

	return promo.NewValidator(ctx, cfg.Promo.Files, loader, logger)
}
