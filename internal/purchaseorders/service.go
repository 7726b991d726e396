package purchaseorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/activity"
	"github.com/angelmondragon/retailops-backend/internal/catalog"
	"github.com/angelmondragon/retailops-backend/internal/exchangerates"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/internal/wallets"
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

// StockReferenceType tags stock movements booked by receiving.
const StockReferenceType = "purchase_order"

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the purchase order fulfillment engine.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Edit(ctx context.Context, input EditInput) (*models.PurchaseOrder, error)
	Advance(ctx context.Context, input AdvanceInput) (*models.PurchaseOrder, error)
	Receive(ctx context.Context, input ReceiveInput) (*ReceiveResult, error)
	Cancel(ctx context.Context, input ActionInput) (*RefundResult, error)
	Delete(ctx context.Context, input ActionInput) (*RefundResult, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*types.CursorPage[models.PurchaseOrder], error)
}

// LineInput is one requested order line.
type LineInput struct {
	ItemID   uuid.UUID
	Quantity int
	UnitCost decimal.Decimal
}

type CreateInput struct {
	WalletID        uuid.UUID
	LocationID      uuid.UUID
	SupplierID      *uuid.UUID
	Currency        enums.Currency
	Lines           []LineInput
	Notes           *string
	ExpectedArrival *time.Time
	ActorUserID     *uuid.UUID
	ActorRole       string
}

// EditInput replaces the lines of a pending order. Nil header fields keep
// their stored value.
type EditInput struct {
	OrderID         uuid.UUID
	Lines           []LineInput
	SupplierID      *uuid.UUID
	Notes           *string
	ExpectedArrival *time.Time
	ActorUserID     *uuid.UUID
	ActorRole       string
}

type AdvanceInput struct {
	OrderID     uuid.UUID
	Status      enums.PurchaseOrderStatus
	ActorUserID *uuid.UUID
	ActorRole   string
}

// ReceiveInput maps line ids to the quantity arriving now.
type ReceiveInput struct {
	OrderID     uuid.UUID
	Quantities  map[uuid.UUID]int
	ActorUserID *uuid.UUID
	ActorRole   string
}

// ActionInput identifies the order for cancel and delete.
type ActionInput struct {
	OrderID     uuid.UUID
	ActorUserID *uuid.UUID
	ActorRole   string
}

// ReceiveResult reports the order after receiving. Received is empty when the
// request carried only zero quantities.
type ReceiveResult struct {
	Order    *models.PurchaseOrder
	Received []payloads.ReceivedLine
}

// RefundResult is returned by Cancel and Delete. Transaction is nil when no
// refund was credited.
type RefundResult struct {
	Order          *models.PurchaseOrder
	PreviousStatus enums.PurchaseOrderStatus
	Refund         decimal.Decimal
	Transaction    *models.WalletTransaction
}

// OrderDetail is an order with its lines and display names.
type OrderDetail struct {
	Order        *models.PurchaseOrder
	LocationName string
	SupplierName string
}

// Options collects the engine collaborators. Activity, Metrics and Logger are
// optional.
type Options struct {
	Repo        Repository
	Tx          db.TxRunner
	Wallets     wallets.Ledger
	Rates       exchangerates.Provider
	Items       catalog.ItemCatalog
	Locations   catalog.LocationCatalog
	Suppliers   catalog.ClientDirectory
	Stock       stock.Ledger
	Outbox      outboxEmitter
	RetryPolicy db.RetryPolicy
	Activity    activity.Recorder
	Metrics     *metrics.LedgerMetrics
	Logger      *logger.Logger
}

type service struct {
	repo      Repository
	tx        db.TxRunner
	wallets   wallets.Ledger
	rates     exchangerates.Provider
	items     catalog.ItemCatalog
	locations catalog.LocationCatalog
	suppliers catalog.ClientDirectory
	stock     stock.Ledger
	outbox    outboxEmitter
	policy    db.RetryPolicy
	activity  activity.Recorder
	metrics   *metrics.LedgerMetrics
	logg      *logger.Logger
}

// NewService wires the fulfillment engine.
func NewService(opts Options) (Service, error) {
	switch {
	case opts.Repo == nil:
		return nil, fmt.Errorf("purchase order repository required")
	case opts.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case opts.Wallets == nil:
		return nil, fmt.Errorf("wallet ledger required")
	case opts.Rates == nil:
		return nil, fmt.Errorf("exchange rate provider required")
	case opts.Items == nil:
		return nil, fmt.Errorf("item catalog required")
	case opts.Locations == nil:
		return nil, fmt.Errorf("location catalog required")
	case opts.Suppliers == nil:
		return nil, fmt.Errorf("client directory required")
	case opts.Stock == nil:
		return nil, fmt.Errorf("stock ledger required")
	case opts.Outbox == nil:
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
		wallets:   opts.Wallets,
		rates:     opts.Rates,
		items:     opts.Items,
		locations: opts.Locations,
		suppliers: opts.Suppliers,
		stock:     opts.Stock,
		outbox:    opts.Outbox,
		policy:    opts.RetryPolicy,
		activity:  opts.Activity,
		metrics:   opts.Metrics,
		logg:      opts.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, orderLookupError(err)
	}

	detail := &OrderDetail{Order: order}
	location, err := s.locations.FindLocation(ctx, order.LocationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup location")
	}
	if location != nil {
		detail.LocationName = location.Name
	}
	if order.SupplierID != nil {
		supplier, err := s.suppliers.FindSupplier(ctx, *order.SupplierID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup supplier")
		}
		if supplier != nil {
			detail.SupplierName = supplier.Name
		}
	}
	return detail, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*types.CursorPage[models.PurchaseOrder], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}
	items, next := pagination.NextCursor(rows, params.Limit, func(row models.PurchaseOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	if items == nil {
		items = []models.PurchaseOrder{}
	}
	return &types.CursorPage[models.PurchaseOrder]{Items: items, NextCursor: next}, nil
}

// checkReferences validates the location and optional supplier before any
// transaction is opened.
func (s *service) checkReferences(ctx context.Context, locationID *uuid.UUID, supplierID *uuid.UUID) error {
	if locationID != nil {
		location, err := s.locations.FindLocation(ctx, *locationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup location")
		}
		if location == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
	}
	if supplierID != nil {
		supplier, err := s.suppliers.FindSupplier(ctx, *supplierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup supplier")
		}
		if supplier == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
	}
	return nil
}

// lockOrder loads the order under a row lock inside tx.
func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.repo.WithTx(tx).LockByID(ctx, orderID)
	if err != nil {
		return nil, orderLookupError(err)
	}
	return order, nil
}

// lockWallet locks the paying wallet. A wallet that no longer exists is
// reported as InvalidWallet.
func (s *service) lockWallet(ctx context.Context, tx *gorm.DB, walletID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.wallets.Lock(ctx, tx, walletID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidWallet, "wallet does not exist").
				WithDetails(map[string]any{"wallet_id": walletID.String()})
		}
		return nil, err
	}
	return wallet, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID uuid.UUID, userID *uuid.UUID, role string, data any) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   orderID,
		Actor:         outbox.NewActorRef(userID, role),
		Data:          data,
	})
}

func (s *service) record(ctx context.Context, action enums.ActivityAction, order *models.PurchaseOrder, userID *uuid.UUID, details map[string]any) {
	s.activity.Record(ctx, activity.Entry{
		Action:     action,
		EntityType: enums.ActivityEntityPurchaseOrder,
		EntityID:   order.ID,
		EntityName: OrderName(order.ID),
		Details:    details,
		UserID:     userID,
	})
}

func (s *service) logInfo(ctx context.Context, orderID uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	if len(fields) > 0 {
		ctx = s.logg.WithFields(ctx, fields)
	}
	s.logg.Info(ctx, msg)
}

func orderLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup purchase order")
}

// OrderName is the short display reference used in descriptions and the
// activity log.
func OrderName(id uuid.UUID) string {
	return "PO-" + id.String()[:8]
}

func invalidTransition(from, to enums.PurchaseOrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
		fmt.Sprintf("cannot move purchase order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}
