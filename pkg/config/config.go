package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "RETAILOPS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "RETAILOPS_APP_ENV"
	EnvPort               = "RETAILOPS_APP_PORT"
	EnvLogLevel           = "RETAILOPS_LOG_LEVEL"
	EnvServiceKind        = "RETAILOPS_SERVICE_KIND"
	EnvDBDSN              = "RETAILOPS_DB_DSN"
	EnvDBDriver           = "RETAILOPS_DB_DRIVER"
	EnvDBHost             = "RETAILOPS_DB_HOST"
	EnvDBUser             = "RETAILOPS_DB_USER"
	EnvDBName             = "RETAILOPS_DB_NAME"
	EnvRedisURL           = "RETAILOPS_REDIS_URL"
	EnvJWTSecret          = "RETAILOPS_JWT_SECRET"
	EnvJWTIssuer          = "RETAILOPS_JWT_ISSUER"
	EnvJWTExpMins         = "RETAILOPS_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID       = "RETAILOPS_GCP_PROJECT_ID"
	EnvPubSubWalletsTopic = "RETAILOPS_PUBSUB_WALLETS_TOPIC"
	EnvPubSubOrdersTopic  = "RETAILOPS_PUBSUB_PURCHASE_ORDERS_TOPIC"
	EnvLedgerMaxRetries   = "RETAILOPS_LEDGER_MAX_RETRIES"
	EnvFXDefaultRate      = "RETAILOPS_FX_DEFAULT_SRD_PER_USD"
	EnvCronInterval       = "RETAILOPS_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Ledger       LedgerConfig
	FX           FXConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.FX.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"RETAILOPS_APP_ENV" required:"true"`
	Port         string   `envconfig:"RETAILOPS_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"RETAILOPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RETAILOPS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"RETAILOPS_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RETAILOPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RETAILOPS_DB_DSN"`
	Driver string `envconfig:"RETAILOPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RETAILOPS_DB_HOST"`
	LegacyPort     int    `envconfig:"RETAILOPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RETAILOPS_DB_USER"`
	LegacyPassword string `envconfig:"RETAILOPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"RETAILOPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"RETAILOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RETAILOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RETAILOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RETAILOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RETAILOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite dialector was requested.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"RETAILOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RETAILOPS_REDIS_ADDR"`
	Password     string        `envconfig:"RETAILOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"RETAILOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RETAILOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RETAILOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RETAILOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RETAILOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RETAILOPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RETAILOPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RETAILOPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RETAILOPS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the configured access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RETAILOPS_AUTO_MIGRATE" default:"false"`
	Metrics     bool `envconfig:"RETAILOPS_FEATURE_METRICS" default:"true"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RETAILOPS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	WalletsTopic        string `envconfig:"RETAILOPS_PUBSUB_WALLETS_TOPIC" default:"ro-wallet-events"`
	PurchaseOrdersTopic string `envconfig:"RETAILOPS_PUBSUB_PURCHASE_ORDERS_TOPIC" default:"ro-purchase-order-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"RETAILOPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"RETAILOPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"RETAILOPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"RETAILOPS_OUTBOX_RETENTION" default:"720h"`
}

// LedgerConfig bounds the optimistic-conflict retry loop around ledger and
// purchase order transactions.
type LedgerConfig struct {
	MaxRetries     uint64        `envconfig:"RETAILOPS_LEDGER_MAX_RETRIES" default:"5"`
	RetryBaseDelay time.Duration `envconfig:"RETAILOPS_LEDGER_RETRY_BASE_DELAY" default:"20ms"`
}

type FXConfig struct {
	DefaultSRDPerUSD string        `envconfig:"RETAILOPS_FX_DEFAULT_SRD_PER_USD" default:"36.50"`
	CacheTTL         time.Duration `envconfig:"RETAILOPS_FX_CACHE_TTL" default:"5m"`
}

// DefaultRate parses the fallback SRD-per-USD rate.
func (f FXConfig) DefaultRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(f.DefaultSRDPerUSD))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (f FXConfig) validate() error {
	if !f.DefaultRate().IsPositive() {
		return fmt.Errorf("%s must be a positive decimal, got %q", EnvFXDefaultRate, f.DefaultSRDPerUSD)
	}
	return nil
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"RETAILOPS_CRON_INTERVAL" default:"1h"`
	ReconcileBatchSize  int           `envconfig:"RETAILOPS_CRON_RECONCILE_BATCH_SIZE" default:"200"`
	ReconcileDriftAlarm bool          `envconfig:"RETAILOPS_CRON_RECONCILE_FAIL_ON_DRIFT" default:"true"`
}

// RateLimitConfig throttles mutating API calls per operator.
type RateLimitConfig struct {
	Window time.Duration `envconfig:"RETAILOPS_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"RETAILOPS_RATE_LIMIT_WRITES" default:"120"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file::memory:?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
