package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/retailops-backend/api/controllers"
	pocontrollers "github.com/angelmondragon/retailops-backend/api/controllers/purchaseorders"
	walletcontrollers "github.com/angelmondragon/retailops-backend/api/controllers/wallets"
	"github.com/angelmondragon/retailops-backend/api/middleware"
	"github.com/angelmondragon/retailops-backend/internal/exchangerates"
	"github.com/angelmondragon/retailops-backend/internal/purchaseorders"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/internal/wallets"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/redis"
)

// Cache is the redis surface the HTTP layer needs: idempotency records, rate
// limit counters and readiness.
type Cache interface {
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// Services are the domain services the routes dispatch to.
type Services struct {
	Wallets        wallets.Service
	PurchaseOrders purchaseorders.Service
	ExchangeRates  exchangerates.Service
	Stock          stock.Ledger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache Cache,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		rateStore        middleware.RateLimitStore
	)
	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["database"] = dbP
	}
	if cache != nil {
		idempotencyStore = cache
		rateStore = cache
		deps["redis"] = cache
	}
	writePolicy := middleware.NewRateLimitPolicy("writes", cfg.RateLimit.Window, cfg.RateLimit.Limit)
	managers := middleware.RequireRole(logg, enums.OperatorRoleManager, enums.OperatorRoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if cfg.FeatureFlags.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(writePolicy, rateStore, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/exchange-rates", func(r chi.Router) {
			r.Get("/", controllers.ExchangeRateHistory(svc.ExchangeRates, logg))
			r.Get("/current", controllers.CurrentExchangeRate(svc.ExchangeRates, logg))
			r.With(managers).Post("/", controllers.SetExchangeRate(svc.ExchangeRates, logg))
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", walletcontrollers.List(svc.Wallets, logg))
			r.Post("/", walletcontrollers.Create(svc.Wallets, logg))
			r.Route("/{walletId}", func(r chi.Router) {
				r.Get("/", walletcontrollers.Detail(svc.Wallets, logg))
				r.Get("/transactions", walletcontrollers.Transactions(svc.Wallets, logg))
				r.Post("/transactions", walletcontrollers.ManualTransaction(svc.Wallets, logg))
				r.With(managers).Get("/reconciliation", walletcontrollers.Reconcile(svc.Wallets, logg))
			})
		})
		r.Post("/transfers", walletcontrollers.Transfer(svc.Wallets, logg))

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", pocontrollers.List(svc.PurchaseOrders, logg))
			r.Post("/", pocontrollers.Create(svc.PurchaseOrders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", pocontrollers.Detail(svc.PurchaseOrders, logg))
				r.Put("/", pocontrollers.Edit(svc.PurchaseOrders, logg))
				r.Delete("/", pocontrollers.Delete(svc.PurchaseOrders, logg))
				r.Post("/status", pocontrollers.Advance(svc.PurchaseOrders, logg))
				r.Post("/receive", pocontrollers.Receive(svc.PurchaseOrders, logg))
				r.Post("/cancel", pocontrollers.Cancel(svc.PurchaseOrders, logg))
			})
		})

		r.Get("/locations/{locationId}/stock", controllers.LocationStock(svc.Stock, logg))
	})

	return r
}
