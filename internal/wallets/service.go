package wallets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/activity"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/metrics"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
	"github.com/angelmondragon/retailops-backend/pkg/types"
)

type locationLookup interface {
	FindLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Posting is one debit or credit requested by another component inside its
// own transaction.
type Posting struct {
	WalletID      uuid.UUID
	Amount        decimal.Decimal
	ReferenceType enums.WalletReferenceType
	ReferenceID   *uuid.UUID
	Description   string
	ActorUserID   *uuid.UUID
}

// Ledger is the surface the purchase order engine uses. Every call runs on
// the caller's transaction and locks the wallet row it touches.
type Ledger interface {
	Lock(ctx context.Context, tx *gorm.DB, walletID uuid.UUID) (*models.Wallet, error)
	Debit(ctx context.Context, tx *gorm.DB, posting Posting) (*models.WalletTransaction, error)
	Credit(ctx context.Context, tx *gorm.DB, posting Posting) (*models.WalletTransaction, error)
}

// Service exposes wallet management and the ledger operations.
type Service interface {
	Ledger
	CreateWallet(ctx context.Context, input CreateWalletInput) (*models.Wallet, error)
	Get(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	List(ctx context.Context, filter ListFilter) ([]models.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*types.CursorPage[models.WalletTransaction], error)
	ManualTransaction(ctx context.Context, input ManualTransactionInput) (*ManualTransactionResult, error)
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	Reconcile(ctx context.Context, walletID uuid.UUID) (*Reconciliation, error)
	WalletIDs(ctx context.Context, after *uuid.UUID, limit int) ([]uuid.UUID, error)
}

// CreateWalletInput opens a wallet with its starting balance.
type CreateWalletInput struct {
	LocationID     uuid.UUID
	Name           string
	Type           enums.WalletType
	Currency       enums.Currency
	InitialBalance decimal.Decimal
	ActorUserID    *uuid.UUID
	ActorRole      string
}

// ManualTransactionInput is an operator add, remove or correct. For correct,
// Amount is the target balance.
type ManualTransactionInput struct {
	WalletID    uuid.UUID
	Kind        enums.ManualTransactionKind
	Amount      decimal.Decimal
	Description string
	ActorUserID *uuid.UUID
	ActorRole   string
}

// ManualTransactionResult carries the new balance. Transaction is nil when a
// correction matched the current balance.
type ManualTransactionResult struct {
	Wallet      *models.Wallet
	Transaction *models.WalletTransaction
}

// TransferInput moves Amount between two wallets of the same currency.
type TransferInput struct {
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       decimal.Decimal
	Description  string
	ActorUserID  *uuid.UUID
	ActorRole    string
}

// TransferResult holds both wallets after the transfer and the two legs.
type TransferResult struct {
	TransferID uuid.UUID
	From       *models.Wallet
	To         *models.Wallet
	Debit      *models.WalletTransaction
	Credit     *models.WalletTransaction
}

// Options collects the service collaborators. Activity, Metrics and Logger
// are optional.
type Options struct {
	Repo        Repository
	Tx          db.TxRunner
	Locations   locationLookup
	Outbox      outboxEmitter
	RetryPolicy db.RetryPolicy
	Activity    activity.Recorder
	Metrics     *metrics.LedgerMetrics
	Logger      *logger.Logger
}

type service struct {
	repo      Repository
	tx        db.TxRunner
	locations locationLookup
	outbox    outboxEmitter
	policy    db.RetryPolicy
	activity  activity.Recorder
	metrics   *metrics.LedgerMetrics
	logg      *logger.Logger
}

// NewService wires the wallet ledger.
func NewService(opts Options) (Service, error) {
	if opts.Repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if opts.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if opts.Locations == nil {
		return nil, fmt.Errorf("location catalog required")
	}
	if opts.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if opts.RetryPolicy.MaxRetries == 0 && opts.RetryPolicy.BaseDelay == 0 {
		opts.RetryPolicy = db.DefaultRetryPolicy()
	}
	if opts.Activity == nil {
		opts.Activity = activity.Nop{}
	}
	return &service{
		repo:      opts.Repo,
		tx:        opts.Tx,
		locations: opts.Locations,
		outbox:    opts.Outbox,
		policy:    opts.RetryPolicy,
		activity:  opts.Activity,
		metrics:   opts.Metrics,
		logg:      opts.Logger,
	}, nil
}

func (s *service) CreateWallet(ctx context.Context, input CreateWalletInput) (wallet *models.Wallet, err error) {
	defer func() { s.metrics.ObserveOperation("wallet.create", metrics.Outcome(err)) }()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location_id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet type")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if input.InitialBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial_balance cannot be negative")
	}

	location, err := s.locations.FindLocation(ctx, input.LocationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup location")
	}
	if location == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
	}

	wallet = &models.Wallet{
		LocationID:     input.LocationID,
		Name:           name,
		Type:           input.Type,
		Currency:       input.Currency,
		InitialBalance: input.InitialBalance,
		Balance:        input.InitialBalance,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, wallet); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletCreated,
			AggregateType: enums.AggregateWallet,
			AggregateID:   wallet.ID,
			Actor:         outbox.NewActorRef(input.ActorUserID, input.ActorRole),
			Data: payloads.WalletCreatedEvent{
				WalletID:       wallet.ID,
				LocationID:     wallet.LocationID,
				Type:           wallet.Type,
				Currency:       wallet.Currency,
				InitialBalance: wallet.InitialBalance,
			},
		})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "create wallet")
	}

	s.activity.Record(ctx, activity.Entry{
		Action:     enums.ActivityCreate,
		EntityType: enums.ActivityEntityWallet,
		EntityID:   wallet.ID,
		EntityName: wallet.Name,
		Details: map[string]any{
			"currency":        wallet.Currency,
			"initial_balance": wallet.InitialBalance.StringFixed(2),
		},
		UserID: input.ActorUserID,
	})
	return wallet, nil
}

func (s *service) Get(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id is required")
	}
	wallet, err := s.repo.FindByID(ctx, walletID)
	if err != nil {
		return nil, walletLookupError(err)
	}
	return wallet, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Wallet, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallets")
	}
	return rows, nil
}

func (s *service) WalletIDs(ctx context.Context, after *uuid.UUID, limit int) ([]uuid.UUID, error) {
	ids, err := s.repo.ListIDs(ctx, after, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet ids")
	}
	return ids, nil
}

func (s *service) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*types.CursorPage[models.WalletTransaction], error) {
	if _, err := s.Get(ctx, walletID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	rows, err := s.repo.ListTransactions(ctx, walletID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	items, next := pagination.NextCursor(rows, params.Limit, func(row models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	if items == nil {
		items = []models.WalletTransaction{}
	}
	return &types.CursorPage[models.WalletTransaction]{Items: items, NextCursor: next}, nil
}

func walletLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup wallet")
}
