package exchangerates

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/activity"
	"github.com/angelmondragon/retailops-backend/internal/currency"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
	"github.com/angelmondragon/retailops-backend/pkg/redis"
)

const (
	SourceRecorded = "recorded"
	SourceDefault  = "default"

	defaultSetSource = "manual"
)

// Rate is the SRD-per-USD rate in effect.
type Rate struct {
	ID         *uuid.UUID      `json:"id,omitempty"`
	SRDPerUSD  decimal.Decimal `json:"srd_per_usd"`
	Source     string          `json:"source"`
	RecordedAt *time.Time      `json:"recorded_at,omitempty"`
}

// SetRateInput records a new rate.
type SetRateInput struct {
	SRDPerUSD   decimal.Decimal
	Source      string
	ActorUserID *uuid.UUID
	ActorRole   string
}

// Provider is the read surface the purchase order engine depends on.
type Provider interface {
	Current(ctx context.Context) (Rate, error)
}

// Service manages the exchange rate history.
type Service interface {
	Provider
	Set(ctx context.Context, input SetRateInput) (*models.ExchangeRate, error)
	History(ctx context.Context, limit int) ([]models.ExchangeRate, error)
}

type rateCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ExchangeRateKey() string
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Options collects the service collaborators. Cache and Activity are optional.
type Options struct {
	Repo        Repository
	Tx          db.TxRunner
	Outbox      outboxEmitter
	Cache       rateCache
	CacheTTL    time.Duration
	DefaultRate decimal.Decimal
	Activity    activity.Recorder
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	tx          db.TxRunner
	outbox      outboxEmitter
	cache       rateCache
	cacheTTL    time.Duration
	defaultRate decimal.Decimal
	activity    activity.Recorder
	logg        *logger.Logger
}

// NewService wires the exchange rate service.
func NewService(opts Options) (Service, error) {
	if opts.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "exchange rate repository required")
	}
	if opts.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if opts.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	opts.DefaultRate = currency.RoundRate(opts.DefaultRate)
	if !opts.DefaultRate.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRate, "default exchange rate must be greater than zero")
	}
	if opts.Activity == nil {
		opts.Activity = activity.Nop{}
	}
	return &service{
		repo:        opts.Repo,
		tx:          opts.Tx,
		outbox:      opts.Outbox,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		defaultRate: opts.DefaultRate,
		activity:    opts.Activity,
		logg:        opts.Logger,
	}, nil
}

// Current returns the cached rate, then the newest recorded rate, then the
// configured default.
func (s *service) Current(ctx context.Context) (Rate, error) {
	if rate, ok := s.fromCache(ctx); ok {
		rate.SRDPerUSD = currency.RoundRate(rate.SRDPerUSD)
		return rate, nil
	}

	row, err := s.repo.Latest(ctx)
	if err != nil {
		return Rate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange rate")
	}
	rate := Rate{SRDPerUSD: s.defaultRate, Source: SourceDefault}
	if row != nil {
		rate = rateFromRow(row)
	}
	rate.SRDPerUSD = currency.RoundRate(rate.SRDPerUSD)
	s.storeCache(ctx, rate)
	return rate, nil
}

func (s *service) Set(ctx context.Context, input SetRateInput) (*models.ExchangeRate, error) {
	if !input.SRDPerUSD.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRate, "exchange rate must be greater than zero").
			WithDetails(map[string]any{"srd_per_usd": input.SRDPerUSD.String()})
	}
	if !currency.FitsStoredScale(input.SRDPerUSD) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRate, "exchange rate allows at most 4 decimal places").
			WithDetails(map[string]any{"srd_per_usd": input.SRDPerUSD.String()})
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = defaultSetSource
	}

	row := &models.ExchangeRate{
		SRDPerUSD:   input.SRDPerUSD,
		Source:      source,
		ActorUserID: input.ActorUserID,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record exchange rate")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExchangeRateChanged,
			AggregateType: enums.AggregateExchangeRate,
			AggregateID:   row.ID,
			Actor:         outbox.NewActorRef(input.ActorUserID, input.ActorRole),
			Data: payloads.ExchangeRateChangedEvent{
				RateID:    row.ID,
				SRDPerUSD: row.SRDPerUSD,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record exchange rate")
		}
		return nil, err
	}

	s.invalidateCache(ctx)
	s.activity.Record(ctx, activity.Entry{
		Action:     enums.ActivityUpdate,
		EntityType: enums.ActivityEntityExchangeRate,
		EntityID:   row.ID,
		EntityName: "SRD per USD",
		Details:    map[string]any{"srd_per_usd": row.SRDPerUSD.String(), "source": row.Source},
		UserID:     input.ActorUserID,
	})
	return row, nil
}

func (s *service) History(ctx context.Context, limit int) ([]models.ExchangeRate, error) {
	rows, err := s.repo.List(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchange rates")
	}
	return rows, nil
}

func rateFromRow(row *models.ExchangeRate) Rate {
	id := row.ID
	recorded := row.CreatedAt
	return Rate{
		ID:         &id,
		SRDPerUSD:  row.SRDPerUSD,
		Source:     SourceRecorded,
		RecordedAt: &recorded,
	}
}

func (s *service) fromCache(ctx context.Context) (Rate, bool) {
	if s.cache == nil {
		return Rate{}, false
	}
	raw, err := s.cache.Get(ctx, s.cache.ExchangeRateKey())
	if err != nil {
		if !redis.IsNil(err) {
			s.warn(ctx, "fx.cache.read_failed", err)
		}
		return Rate{}, false
	}
	var rate Rate
	if err := json.Unmarshal([]byte(raw), &rate); err != nil || !rate.SRDPerUSD.IsPositive() {
		return Rate{}, false
	}
	return rate, true
}

func (s *service) storeCache(ctx context.Context, rate Rate) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(rate)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.ExchangeRateKey(), string(raw), s.cacheTTL); err != nil {
		s.warn(ctx, "fx.cache.write_failed", err)
	}
}

func (s *service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.ExchangeRateKey()); err != nil {
		s.warn(ctx, "fx.cache.invalidate_failed", err)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
