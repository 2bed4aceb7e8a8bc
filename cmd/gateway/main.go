package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/cashfree"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/events"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/locker"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/persistence/memory"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/persistence/mongo"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/recharge"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/docs"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/routes"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/metrics"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger(os.Stdout, cfg.Primary.Env)
	slog.SetDefault(logger)

	logger.Info("starting payment ledger",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"gateway_env", cfg.Gateway.Environment,
		"recharge_mode", cfg.Recharge.Mode,
	)

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open transaction store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var lock application.Locker = locker.Noop{}
	if cfg.Redis.Addr != "" {
		redisClient, err := locker.Connect(ctx, cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		lock = locker.NewRedisLocker(redisClient, cfg.Redis.LockTTL, logger)
		logger.Info("idempotency lock enabled", "addr", cfg.Redis.Addr)
	}

	var publisher application.EventPublisher = events.Noop{}
	if cfg.Events.AMQPURL != "" {
		amqpPublisher, err := events.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		logger.Info("status events enabled", "exchange", cfg.Events.Exchange)
	}

	gateway := cashfree.NewClient(cfg.Gateway, cfg.Retry, m)
	rechargeClient := recharge.NewClient(cfg.Recharge, logger)

	ledger := services.NewLedger(store, publisher, m, logger)
	orderService := services.NewOrderService(ledger, gateway, lock, cfg.Gateway.Currency, logger)
	reconciliationService := services.NewReconciliationService(ledger, gateway, m, logger)
	verificationService := services.NewVerificationService(ledger, logger)
	settlementService := services.NewSettlementService(ledger, rechargeClient,
		cfg.Settlement.MinDelay, cfg.Settlement.MaxDelay, logger)
	queryService := services.NewQueryService(store, rechargeClient)
	rechargeService := services.NewRechargeExecutionService(rechargeClient, logger)

	h := handlers.NewHandlers(
		orderService,
		reconciliationService,
		verificationService,
		settlementService,
		queryService,
		rechargeService,
		logger,
	)

	apiDoc, err := docs.Load(ctx, cfg.Server.PublicURL)
	if err != nil {
		logger.Error("failed to load api document", "error", err)
		os.Exit(1)
	}

	router, err := routes.NewRouter(routes.Options{
		Server:   cfg.Server,
		HTTP:     cfg.HTTP,
		Handlers: h,
		Metrics:  m,
		Gatherer: registry,
		Docs:     apiDoc,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if cfg.Worker.Enabled {
		reconciler := worker.NewReconciler(
			store,
			reconciliationService,
			cfg.Worker.Interval,
			cfg.Worker.BatchSize,
			cfg.Worker.StaleAfter,
			logger,
		)
		go reconciler.Start(workerCtx)
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// openStore connects the configured backend and returns it with its cleanup.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.TransactionStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		db, err := mongo.Connect(ctx, &cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			_ = db.Close(ctx)
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return mongo.NewTransactionRepository(db), func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Close(closeCtx)
		}, nil

	case config.StorePostgres:
		db, err := postgres.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return postgres.NewTransactionRepository(db), db.Close, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewTransactionStore(), func() {}, nil
	}
}
