package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/retailops-backend/api/routes"
	"github.com/angelmondragon/retailops-backend/internal/activity"
	"github.com/angelmondragon/retailops-backend/internal/catalog"
	"github.com/angelmondragon/retailops-backend/internal/exchangerates"
	"github.com/angelmondragon/retailops-backend/internal/purchaseorders"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/internal/wallets"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/metrics"
	"github.com/angelmondragon/retailops-backend/pkg/migrate"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	activityLog := activity.NewLog(activity.NewRepository(conn), logg)
	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	retryPolicy := db.RetryPolicy{
		MaxRetries: cfg.Ledger.MaxRetries,
		BaseDelay:  cfg.Ledger.RetryBaseDelay,
	}

	rateService, err := exchangerates.NewService(exchangerates.Options{
		Repo:        exchangerates.NewRepository(conn),
		Tx:          dbClient,
		Outbox:      outboxService,
		Cache:       redisClient,
		CacheTTL:    cfg.FX.CacheTTL,
		DefaultRate: cfg.FX.DefaultRate(),
		Activity:    activityLog,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create exchange rate service", err)
		os.Exit(1)
	}

	walletService, err := wallets.NewService(wallets.Options{
		Repo:        wallets.NewRepository(conn),
		Tx:          dbClient,
		Locations:   catalogRepo,
		Outbox:      outboxService,
		RetryPolicy: retryPolicy,
		Activity:    activityLog,
		Metrics:     ledgerMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	stockLedger, err := stock.NewLedger(stock.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create stock ledger", err)
		os.Exit(1)
	}

	orderService, err := purchaseorders.NewService(purchaseorders.Options{
		Repo:        purchaseorders.NewRepository(conn),
		Tx:          dbClient,
		Wallets:     walletService,
		Rates:       rateService,
		Items:       catalogRepo,
		Locations:   catalogRepo,
		Suppliers:   catalogRepo,
		Stock:       stockLedger,
		Outbox:      outboxService,
		RetryPolicy: retryPolicy,
		Activity:    activityLog,
		Metrics:     ledgerMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Wallets:        walletService,
			PurchaseOrders: orderService,
			ExchangeRates:  rateService,
			Stock:          stockLedger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down")
}
