package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/api"
	"github.com/akylbek/payment-system/payment-gate/internal/config"
	"github.com/akylbek/payment-system/payment-gate/internal/events"
	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/provider"
	"github.com/akylbek/payment-system/payment-gate/internal/repository"
	"github.com/akylbek/payment-system/payment-gate/internal/repository/memory"
	"github.com/akylbek/payment-system/payment-gate/internal/retry"
	"github.com/akylbek/payment-system/payment-gate/internal/service"
	"github.com/akylbek/payment-system/payment-gate/internal/telemetry"
)

const localWebhookSecret = "whsec_local_development"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := telemetry.InitTelemetry(telemetry.Config{
		ServiceName:    "payment-gate",
		JaegerEndpoint: cfg.JaegerEndpoint,
		TracingEnabled: cfg.OTelEnabled,
	}); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	logger := telemetry.Logger
	logger.Info("Starting Payment Gate",
		zap.String("ledger_backend", cfg.LedgerBackend),
		zap.String("provider_backend", cfg.ProviderBackend),
		zap.String("gate_store_backend", cfg.GateStoreBackend),
	)

	// Ledger
	var ledger interfaces.LedgerStore
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		repo := repository.NewPaymentSessionRepository(db)
		if err := repo.InitDB(); err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		ledger = repo
	default:
		ledger = memory.NewLedger()
	}
	ledger = repository.NewRetryingLedger(ledger, retry.Policy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.LedgerMaxWait,
		Jitter:          cfg.Retry.Jitter,
	}, logger)

	// Payment provider
	var (
		paymentProvider interfaces.PaymentProvider
		devCheckout     *provider.Fake
	)
	switch cfg.ProviderBackend {
	case config.BackendStripe:
		paymentProvider = provider.NewStripeProvider(provider.StripeConfig{
			SecretKey:      cfg.Stripe.SecretKey,
			WebhookSecret:  cfg.Stripe.WebhookSecret,
			Currency:       cfg.Stripe.Currency,
			ProductName:    cfg.Stripe.ProductName,
			RequestTimeout: cfg.Stripe.RequestTimeout,
		})
	default:
		secret := cfg.Stripe.WebhookSecret
		if secret == "" {
			secret = localWebhookSecret
		}
		devCheckout = provider.NewFake(secret, strings.TrimRight(cfg.PublicURL, "/")+"/dev/checkout")
		paymentProvider = devCheckout
		logger.Warn("Using fake payment provider, checkout links pay immediately")
	}
	paymentProvider = provider.NewRetrying(paymentProvider, retry.Policy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.ProviderMaxWait,
		Jitter:          cfg.Retry.Jitter,
	}, logger)

	// Redis: session poll lock, attempt lock and gate state
	var (
		redisClient *redis.Client
		locker      interfaces.SessionLocker  = memory.NewLocker()
		gateLocker  interfaces.SessionLocker  = memory.NewLocker()
		gateStore   interfaces.GateStateStore = memory.NewGateStateStore()
	)
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		defer redisClient.Close()
		locker = repository.NewSessionLock(redisClient, cfg.SessionLockTTL)
		gateLocker = repository.NewGateLock(redisClient, cfg.SessionLockTTL)
	}
	if cfg.GateStoreBackend == config.BackendRedis {
		gateStore = repository.NewGateStateStore(redisClient, logger)
	}

	// State change events
	var publishers events.Fanout
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(logger, cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
	}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		publishers = append(publishers, events.NewNATSPublisher(logger, nc))
	}

	opts := []service.SessionOption{service.WithLocker(locker)}
	if len(publishers) > 0 {
		opts = append(opts, service.WithPublisher(publishers))
	}
	sessions := service.NewSessionManager(paymentProvider, ledger, logger, service.SessionConfig{
		Amount:     cfg.Stripe.UnitAmount,
		SuccessURL: cfg.Stripe.SuccessURL,
	}, opts...)

	gate := service.NewGateService(
		service.NewGateController(sessions, service.GatePolicy{
			Timeout:      cfg.Gate.Timeout,
			MaxRetries:   cfg.Gate.MaxRetries,
			PollInterval: cfg.Gate.PollInterval,
		}, nil, logger),
		gateStore,
		gateLocker,
		cfg.Gate.StateTTL,
		logger,
	)

	deps := api.Deps{
		Ledger:   ledger,
		Sessions: sessions,
		Gate:     gate,
	}
	if devCheckout != nil {
		deps.DevCheckout = devCheckout
	}
	r := api.NewRouter(deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Payment Gate starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
