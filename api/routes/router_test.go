package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailops-backend/internal/exchangerates"
	"github.com/angelmondragon/retailops-backend/internal/purchaseorders"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/internal/wallets"
	pkgAuth "github.com/angelmondragon/retailops-backend/pkg/auth"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

// Embedded interfaces panic on any method a test does not override.
type stubRateService struct {
	exchangerates.Service
	current func(ctx context.Context) (exchangerates.Rate, error)
	set     func(ctx context.Context, input exchangerates.SetRateInput) (*models.ExchangeRate, error)
}

func (s stubRateService) Current(ctx context.Context) (exchangerates.Rate, error) {
	return s.current(ctx)
}

func (s stubRateService) Set(ctx context.Context, input exchangerates.SetRateInput) (*models.ExchangeRate, error) {
	return s.set(ctx, input)
}

type stubStockLedger struct {
	stock.Ledger
	levels []models.StockLevel
}

func (s stubStockLedger) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]models.StockLevel, error) {
	return s.levels, nil
}

type stubWalletService struct {
	wallets.Service
}

type stubOrderService struct {
	purchaseorders.Service
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		FeatureFlags: config.FeatureFlagsConfig{Metrics: true},
	}
}

func testServices() Services {
	return Services{
		Wallets:        stubWalletService{},
		PurchaseOrders: stubOrderService{},
		ExchangeRates: stubRateService{
			current: func(ctx context.Context) (exchangerates.Rate, error) {
				return exchangerates.Rate{SRDPerUSD: decimal.RequireFromString("36.5"), Source: "manual"}, nil
			},
			set: func(ctx context.Context, input exchangerates.SetRateInput) (*models.ExchangeRate, error) {
				return &models.ExchangeRate{
					ID:        uuid.New(),
					SRDPerUSD: input.SRDPerUSD,
					Source:    input.Source,
					CreatedAt: time.Now(),
				}, nil
			},
		},
		Stock: stubStockLedger{},
	}
}

func newTestRouter(cfg *config.Config, svc Services) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, nil, svc)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.OperatorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-RetailOps-Env"))
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	router := NewRouter(cfg, logg, stubPinger{err: context.DeadlineExceeded}, nil, testServices())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestMetricsEndpointDisabledByFlag(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags.Metrics = false
	router := newTestRouter(cfg, testServices())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/exchange-rates/current", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCurrentExchangeRateWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, testServices())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exchange-rates/current", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.OperatorRoleClerk))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Data struct {
			SRDPerUSD string `json:"srd_per_usd"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "36.5", body.Data.SRDPerUSD)
}

func TestSetExchangeRateRequiresManager(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, testServices())
	payload := `{"srd_per_usd":"37.25","source":"bank"}`

	clerk := httptest.NewRequest(http.MethodPost, "/api/v1/exchange-rates", strings.NewReader(payload))
	clerk.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.OperatorRoleClerk))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, clerk)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	manager := httptest.NewRequest(http.MethodPost, "/api/v1/exchange-rates", strings.NewReader(payload))
	manager.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.OperatorRoleManager))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, manager)
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestReconciliationRequiresManager(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, testServices())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+uuid.NewString()+"/reconciliation", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.OperatorRoleClerk))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestLocationStockRoute(t *testing.T) {
	cfg := testConfig()
	svc := testServices()
	locationID := uuid.New()
	svc.Stock = stubStockLedger{levels: []models.StockLevel{
		{ItemID: uuid.New(), LocationID: locationID, Quantity: 12},
	}}
	router := newTestRouter(cfg, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/"+locationID.String()+"/stock", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.OperatorRoleClerk))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUnknownRouteReturns404(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, testServices())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/does-not-exist", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.OperatorRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
