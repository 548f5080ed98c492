package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"vipps/internal/app"
	"vipps/internal/config"
	"vipps/internal/gateway"
	"vipps/internal/handler"
	internalRedis "vipps/internal/redis"
	"vipps/internal/repository/postgres"
	"vipps/internal/service"
)

func main() {
	// Load .env if present, then configuration from the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, poller := wireServer(db, redisClient, nrApp, cfg)

	// Start the reconciliation poller; it stops with the server.
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()
	go poller.Run(pollerCtx)
	log.Printf("Reconciliation poller started (interval %s)", cfg.Poller.Interval)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	pollerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// reconciliation poller.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.Poller) {
	// Provider client.
	tokens := gateway.NewAccessTokenSource(cfg.Vipps.BaseURL, cfg.Vipps.ClientID, cfg.Vipps.ClientSecret, cfg.Vipps.SubscriptionKey, nil)
	client := gateway.NewHTTPClient(cfg.Vipps.BaseURL, gateway.APIVersion(cfg.Vipps.APIVersion), cfg.Vipps.MerchantSerialNumber, cfg.Vipps.SubscriptionKey, tokens, nil)

	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)

	// Initialize repositories.
	reservationRepo := postgres.NewReservationRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	cartRepo := postgres.NewCartRepository(db)

	// Initialize services.
	lockManager := service.NewLockManager(lockStore)
	notificationService := service.NewNotificationService()
	orderPlaceService := service.NewOrderPlaceService(lockManager, orderRepo, cartRepo)
	actionService := service.NewPaymentActionService(orderRepo)
	processor := service.NewTransactionProcessor(
		lockManager,
		client,
		reservationRepo,
		orderRepo,
		orderPlaceService,
		actionService,
		config.PaymentActionResolver{},
		notificationService,
		cfg.Vipps.ExpiryWindow,
	)
	checkoutService := service.NewCheckoutService(cartRepo, reservationRepo, client, cfg.Vipps.CallbackURL, cfg.Vipps.FallbackURL, cfg.Vipps.Currency)
	poller := service.NewPoller(reservationRepo, processor, cfg.Poller.Interval, cfg.Poller.PageSize, cfg.Poller.MaxAttempts, cfg.Poller.Throttle)

	// Initialize handlers.
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	webhookHandler := handler.NewWebhookHandler(reservationRepo, processor)
	fallbackHandler := handler.NewFallbackHandler(reservationRepo, processor, handler.FallbackURLs{
		Success:     cfg.Vipps.SuccessURL,
		Pending:     cfg.Vipps.PendingURL,
		CartRestore: cfg.Vipps.CartRestoreURL,
	}, cfg.Vipps.FallbackStatusCheck)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		CheckoutHandler: checkoutHandler,
		WebhookHandler:  webhookHandler,
		FallbackHandler: fallbackHandler,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, poller
}
