package purchaseorders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/activity"
	"github.com/angelmondragon/retailops-backend/internal/catalog"
	"github.com/angelmondragon/retailops-backend/internal/exchangerates"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/internal/wallets"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

type fixedRate struct {
	rate decimal.Decimal
}

func (f *fixedRate) Current(context.Context) (exchangerates.Rate, error) {
	return exchangerates.Rate{SRDPerUSD: f.rate, Source: exchangerates.SourceDefault}, nil
}

type engineFixture struct {
	conn     *gorm.DB
	svc      Service
	ledger   wallets.Service
	stock    stock.Repository
	rates    *fixedRate
	location models.Location
	supplier models.Supplier
	itemA    models.Item
	itemB    models.Item
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()

	f := &engineFixture{conn: conn, rates: &fixedRate{rate: decimal.NewFromInt(40)}}
	f.location = models.Location{Name: "Warehouse Noord"}
	f.supplier = models.Supplier{Name: "Kasimex"}
	f.itemA = models.Item{Name: "Rice 25kg"}
	f.itemB = models.Item{Name: "Cooking oil"}
	require.NoError(t, conn.Create(&f.location).Error)
	require.NoError(t, conn.Create(&f.supplier).Error)
	require.NoError(t, conn.Create(&f.itemA).Error)
	require.NoError(t, conn.Create(&f.itemB).Error)

	cat := catalog.NewRepository(conn)
	ob := outbox.NewService(outbox.NewRepository(conn), nil)
	policy := db.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}

	ledger, err := wallets.NewService(wallets.Options{
		Repo:        wallets.NewRepository(conn),
		Tx:          client,
		Locations:   cat,
		Outbox:      ob,
		RetryPolicy: policy,
	})
	require.NoError(t, err)
	f.ledger = ledger

	f.stock = stock.NewRepository(conn)
	stockLedger, err := stock.NewLedger(f.stock)
	require.NoError(t, err)

	svc, err := NewService(Options{
		Repo:        NewRepository(conn),
		Tx:          client,
		Wallets:     ledger,
		Rates:       f.rates,
		Items:       cat,
		Locations:   cat,
		Suppliers:   cat,
		Stock:       stockLedger,
		Outbox:      ob,
		RetryPolicy: policy,
		Activity:    activity.NewLog(activity.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *engineFixture) wallet(t *testing.T, cur enums.Currency, balance string) *models.Wallet {
	t.Helper()
	w, err := f.ledger.CreateWallet(context.Background(), wallets.CreateWalletInput{
		LocationID:     f.location.ID,
		Name:           "Purchasing " + string(cur),
		Type:           enums.WalletTypeBank,
		Currency:       cur,
		InitialBalance: decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return w
}

func (f *engineFixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := f.ledger.Get(context.Background(), id)
	require.NoError(t, err)
	return w.Balance
}

func (f *engineFixture) create(t *testing.T, walletID uuid.UUID, cur enums.Currency, lines ...LineInput) *models.PurchaseOrder {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateInput{
		WalletID:   walletID,
		LocationID: f.location.ID,
		SupplierID: &f.supplier.ID,
		Currency:   cur,
		Lines:      lines,
	})
	require.NoError(t, err)
	return order
}

func (f *engineFixture) stockOf(t *testing.T, itemID uuid.UUID) int {
	t.Helper()
	level, err := f.stock.Find(context.Background(), itemID, f.location.ID)
	if err != nil {
		return 0
	}
	return level.Quantity
}

func lineFor(t *testing.T, order *models.PurchaseOrder, itemID uuid.UUID) models.PurchaseOrderLine {
	t.Helper()
	for _, line := range order.Lines {
		if line.ItemID == itemID {
			return line
		}
	}
	t.Fatalf("no line for item %s", itemID)
	return models.PurchaseOrderLine{}
}

func line(itemID uuid.UUID, qty int, cost string) LineInput {
	return LineInput{ItemID: itemID, Quantity: qty, UnitCost: decimal.RequireFromString(cost)}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got)
}

func TestCreateDebitsWalletAtLockedRate(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencyUSD, "100")

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 10, "40"))

	assert.Equal(t, enums.PurchaseOrderStatusPending, order.Status)
	assertDecimal(t, "400", order.TotalAmount)
	assertDecimal(t, "40", order.ExchangeRate)
	assertDecimal(t, "10", order.WalletAmount)
	assertDecimal(t, "90", f.balance(t, wallet.ID))

	page, err := f.ledger.ListTransactions(context.Background(), wallet.ID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	debit := page.Items[0]
	assert.Equal(t, enums.WalletTransactionDebit, debit.Type)
	assert.Equal(t, enums.WalletReferenceOrder, debit.ReferenceType)
	require.NotNil(t, debit.ReferenceID)
	assert.Equal(t, order.ID, *debit.ReferenceID)

	var item models.Item
	require.NoError(t, f.conn.Where("id = ?", f.itemA.ID).Take(&item).Error)
	require.NotNil(t, item.LastUnitCost)
	assertDecimal(t, "40", *item.LastUnitCost)
	require.NotNil(t, item.LastCostCurrency)
	assert.Equal(t, enums.CurrencySRD, *item.LastCostCurrency)
	assertDecimal(t, "1", item.PurchasePriceUSD)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPurchaseOrderCreated).Count(&events).Error)
	assert.Equal(t, int64(1), events)

	var logs int64
	require.NoError(t, f.conn.Model(&models.ActivityLog{}).
		Where("entity_id = ? AND action = ?", order.ID, enums.ActivityCreate).Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestCreateValidation(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "1000")
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
		code  pkgerrors.Code
	}{
		{
			name:  "missing wallet id",
			input: CreateInput{LocationID: f.location.ID, Currency: enums.CurrencySRD, Lines: []LineInput{line(f.itemA.ID, 1, "1")}},
			code:  pkgerrors.CodeInvalidWallet,
		},
		{
			name:  "unknown wallet",
			input: CreateInput{WalletID: uuid.New(), LocationID: f.location.ID, Currency: enums.CurrencySRD, Lines: []LineInput{line(f.itemA.ID, 1, "1")}},
			code:  pkgerrors.CodeInvalidWallet,
		},
		{
			name:  "no lines",
			input: CreateInput{WalletID: wallet.ID, LocationID: f.location.ID, Currency: enums.CurrencySRD},
			code:  pkgerrors.CodeInvalidLineItems,
		},
		{
			name:  "zero quantity",
			input: CreateInput{WalletID: wallet.ID, LocationID: f.location.ID, Currency: enums.CurrencySRD, Lines: []LineInput{line(f.itemA.ID, 0, "1")}},
			code:  pkgerrors.CodeInvalidLineItems,
		},
		{
			name:  "missing item id",
			input: CreateInput{WalletID: wallet.ID, LocationID: f.location.ID, Currency: enums.CurrencySRD, Lines: []LineInput{line(uuid.Nil, 1, "1")}},
			code:  pkgerrors.CodeInvalidLineItems,
		},
		{
			name:  "unknown item",
			input: CreateInput{WalletID: wallet.ID, LocationID: f.location.ID, Currency: enums.CurrencySRD, Lines: []LineInput{line(uuid.New(), 1, "1")}},
			code:  pkgerrors.CodeInvalidLineItems,
		},
		{
			name:  "unit cost beyond stored scale",
			input: CreateInput{WalletID: wallet.ID, LocationID: f.location.ID, Currency: enums.CurrencySRD, Lines: []LineInput{line(f.itemA.ID, 3, "1.23456")}},
			code:  pkgerrors.CodeInvalidLineItems,
		},
		{
			name:  "unknown location",
			input: CreateInput{WalletID: wallet.ID, LocationID: uuid.New(), Currency: enums.CurrencySRD, Lines: []LineInput{line(f.itemA.ID, 1, "1")}},
			code:  pkgerrors.CodeNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}

	assertDecimal(t, "1000", f.balance(t, wallet.ID))
	var orders int64
	require.NoError(t, f.conn.Model(&models.PurchaseOrder{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestCreateInsufficientFundsWritesNothing(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencyUSD, "5")

	_, err := f.svc.Create(context.Background(), CreateInput{
		WalletID:   wallet.ID,
		LocationID: f.location.ID,
		Currency:   enums.CurrencySRD,
		Lines:      []LineInput{line(f.itemA.ID, 10, "40")},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	assertDecimal(t, "5", f.balance(t, wallet.ID))
	var orders, events int64
	require.NoError(t, f.conn.Model(&models.PurchaseOrder{}).Count(&orders).Error)
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("aggregate_type = ?", enums.AggregatePurchaseOrder).Count(&events).Error)
	assert.Zero(t, orders)
	assert.Zero(t, events)

	var item models.Item
	require.NoError(t, f.conn.Where("id = ?", f.itemA.ID).Take(&item).Error)
	assert.Nil(t, item.LastUnitCost)
}

func TestReceiveDrivesStatusAndStock(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "10000")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 10, "5"), line(f.itemB.ID, 5, "8"))
	lineA, lineB := lineFor(t, order, f.itemA.ID), lineFor(t, order, f.itemB.ID)

	res, err := f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineA.ID: 10}})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusPartiallyReceived, res.Order.Status)
	assert.Equal(t, 10, f.stockOf(t, f.itemA.ID))
	assert.Equal(t, 0, f.stockOf(t, f.itemB.ID))

	res, err = f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineB.ID: 5}})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusReceived, res.Order.Status)
	assert.Equal(t, 5, f.stockOf(t, f.itemB.ID))

	_, err = f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineB.ID: 0}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))

	movements, err := f.stock.ListMovements(ctx, f.itemA.ID, f.location.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, StockReferenceType, movements[0].ReferenceType)
	require.NotNil(t, movements[0].ReferenceID)
	assert.Equal(t, order.ID, *movements[0].ReferenceID)
}

func TestReceiveIsMonotonicAcrossCalls(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "1000")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 6, "1"))
	lineA := lineFor(t, order, f.itemA.ID)

	for _, qty := range []int{2, 3, 1} {
		_, err := f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineA.ID: qty}})
		require.NoError(t, err)
	}

	detail, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusReceived, detail.Order.Status)
	assert.Equal(t, 6, lineFor(t, detail.Order, f.itemA.ID).QuantityReceived)
	assert.Equal(t, 6, f.stockOf(t, f.itemA.ID))
}

func TestReceiveAllZeroIsNoop(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "1000")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 4, "2"))
	lineA := lineFor(t, order, f.itemA.ID)

	res, err := f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineA.ID: 0}})
	require.NoError(t, err)
	assert.Empty(t, res.Received)
	assert.Equal(t, enums.PurchaseOrderStatusPending, res.Order.Status)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPurchaseOrderReceived).Count(&events).Error)
	assert.Zero(t, events)
	assert.Equal(t, 0, f.stockOf(t, f.itemA.ID))
}

func TestReceiveRejectsWholeRequest(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "1000")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 10, "1"), line(f.itemB.ID, 5, "1"))
	lineA, lineB := lineFor(t, order, f.itemA.ID), lineFor(t, order, f.itemB.ID)

	_, err := f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineA.ID: 3, lineB.ID: 6}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOverReceipt))

	_, err = f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineA.ID: -1}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidLineItems))

	_, err = f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{uuid.New(): 1}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidLineItems))

	detail, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusPending, detail.Order.Status)
	assert.Equal(t, 0, lineFor(t, detail.Order, f.itemA.ID).QuantityReceived)
	assert.Equal(t, 0, f.stockOf(t, f.itemA.ID))
}

func TestCancelRefundsUnreceivedShareAtLockedRate(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencyUSD, "100")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 10, "40"))
	lineA := lineFor(t, order, f.itemA.ID)
	assertDecimal(t, "90", f.balance(t, wallet.ID))

	_, err := f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineA.ID: 5}})
	require.NoError(t, err)

	// A later rate change must not affect the refund.
	f.rates.rate = decimal.NewFromInt(80)

	res, err := f.svc.Cancel(ctx, ActionInput{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusPartiallyReceived, res.PreviousStatus)
	assert.Equal(t, enums.PurchaseOrderStatusCancelled, res.Order.Status)
	assertDecimal(t, "5", res.Refund)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, enums.WalletTransactionCredit, res.Transaction.Type)
	assert.Equal(t, enums.WalletReferenceOrder, res.Transaction.ReferenceType)
	assertDecimal(t, "95", f.balance(t, wallet.ID))

	_, err = f.svc.Cancel(ctx, ActionInput{OrderID: order.ID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
	assertDecimal(t, "95", f.balance(t, wallet.ID))
}

func TestDebitRefundRoundTrip(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "500")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencyUSD, line(f.itemA.ID, 3, "2.35"), line(f.itemB.ID, 1, "0.99"))
	// 8.04 USD at 40 SRD/USD
	assertDecimal(t, "321.6", order.WalletAmount)
	assertDecimal(t, "178.4", f.balance(t, wallet.ID))

	res, err := f.svc.Cancel(ctx, ActionInput{OrderID: order.ID})
	require.NoError(t, err)
	assertDecimal(t, "321.6", res.Refund)
	assertDecimal(t, "500", f.balance(t, wallet.ID))
}

func TestCancelReceivedOrderHasNoRefund(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "100")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 2, "10"))
	lineA := lineFor(t, order, f.itemA.ID)
	_, err := f.svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantities: map[uuid.UUID]int{lineA.ID: 2}})
	require.NoError(t, err)

	res, err := f.svc.Cancel(ctx, ActionInput{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusReceived, res.PreviousStatus)
	assert.True(t, res.Refund.IsZero())
	assert.Nil(t, res.Transaction)
	assertDecimal(t, "80", f.balance(t, wallet.ID))
}

func TestEditOnlyWhilePendingAndLeavesWallet(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "1000")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 10, "10"))
	assertDecimal(t, "900", f.balance(t, wallet.ID))

	notes := "split delivery"
	edited, err := f.svc.Edit(ctx, EditInput{
		OrderID: order.ID,
		Lines:   []LineInput{line(f.itemA.ID, 5, "12"), line(f.itemB.ID, 2, "7.5")},
		Notes:   &notes,
	})
	require.NoError(t, err)
	assertDecimal(t, "75", edited.TotalAmount)
	assert.Len(t, edited.Lines, 2)
	require.NotNil(t, edited.Notes)
	assert.Equal(t, notes, *edited.Notes)
	require.NotNil(t, edited.SupplierID)
	assert.Equal(t, f.supplier.ID, *edited.SupplierID)
	assertDecimal(t, "900", f.balance(t, wallet.ID))

	var item models.Item
	require.NoError(t, f.conn.Where("id = ?", f.itemA.ID).Take(&item).Error)
	require.NotNil(t, item.LastUnitCost)
	assertDecimal(t, "12", *item.LastUnitCost)
	assertDecimal(t, "0.3", item.PurchasePriceUSD)

	_, err = f.svc.Advance(ctx, AdvanceInput{OrderID: order.ID, Status: enums.PurchaseOrderStatusOrdered})
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, EditInput{OrderID: order.ID, Lines: []LineInput{line(f.itemA.ID, 1, "1")}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestAdvanceRules(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "1000")
	ctx := context.Background()

	order := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 1, "1"))

	_, err := f.svc.Advance(ctx, AdvanceInput{OrderID: order.ID, Status: enums.PurchaseOrderStatusShipped})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))

	_, err = f.svc.Advance(ctx, AdvanceInput{OrderID: order.ID, Status: enums.PurchaseOrderStatusReceived})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))

	advanced, err := f.svc.Advance(ctx, AdvanceInput{OrderID: order.ID, Status: enums.PurchaseOrderStatusOrdered})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusOrdered, advanced.Status)

	advanced, err = f.svc.Advance(ctx, AdvanceInput{OrderID: order.ID, Status: enums.PurchaseOrderStatusShipped})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusShipped, advanced.Status)

	_, err = f.svc.Advance(ctx, AdvanceInput{OrderID: order.ID, Status: enums.PurchaseOrderStatusOrdered})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))

	_, err = f.svc.Advance(ctx, AdvanceInput{OrderID: uuid.New(), Status: enums.PurchaseOrderStatusOrdered})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteRules(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "1000")
	ctx := context.Background()

	pending := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 10, "10"))
	assertDecimal(t, "900", f.balance(t, wallet.ID))

	res, err := f.svc.Delete(ctx, ActionInput{OrderID: pending.ID})
	require.NoError(t, err)
	assertDecimal(t, "100", res.Refund)
	assertDecimal(t, "1000", f.balance(t, wallet.ID))
	_, err = f.svc.Get(ctx, pending.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var lines int64
	require.NoError(t, f.conn.Model(&models.PurchaseOrderLine{}).Where("order_id = ?", pending.ID).Count(&lines).Error)
	assert.Zero(t, lines)

	ordered := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 1, "50"))
	_, err = f.svc.Advance(ctx, AdvanceInput{OrderID: ordered.ID, Status: enums.PurchaseOrderStatusOrdered})
	require.NoError(t, err)
	_, err = f.svc.Delete(ctx, ActionInput{OrderID: ordered.ID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))

	_, err = f.svc.Cancel(ctx, ActionInput{OrderID: ordered.ID})
	require.NoError(t, err)
	assertDecimal(t, "1000", f.balance(t, wallet.ID))

	res, err = f.svc.Delete(ctx, ActionInput{OrderID: ordered.ID})
	require.NoError(t, err)
	assert.True(t, res.Refund.IsZero())
	assertDecimal(t, "1000", f.balance(t, wallet.ID))
}

func TestGetAndList(t *testing.T) {
	f := newEngineFixture(t)
	wallet := f.wallet(t, enums.CurrencySRD, "1000")
	ctx := context.Background()

	first := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemA.ID, 1, "1"))
	second := f.create(t, wallet.ID, enums.CurrencySRD, line(f.itemB.ID, 1, "1"))
	_, err := f.svc.Advance(ctx, AdvanceInput{OrderID: second.ID, Status: enums.PurchaseOrderStatusOrdered})
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, f.location.Name, detail.LocationName)
	assert.Equal(t, f.supplier.Name, detail.SupplierName)
	require.Len(t, detail.Order.Lines, 1)
	assert.Equal(t, f.itemA.Name, detail.Order.Lines[0].ItemName)

	pending := enums.PurchaseOrderStatusPending
	page, err := f.svc.List(ctx, ListFilter{Status: &pending}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	page, err = f.svc.List(ctx, ListFilter{WalletID: &wallet.ID}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.List(ctx, ListFilter{WalletID: &wallet.ID}, pagination.Params{Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.NotEqual(t, page.Items[0].ID, next.Items[0].ID)
	assert.Empty(t, next.NextCursor)

	bogus := enums.PurchaseOrderStatus("lost")
	_, err = f.svc.List(ctx, ListFilter{Status: &bogus}, pagination.Params{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUnreceivedFractionIsAggregate(t *testing.T) {
	lines := []models.PurchaseOrderLine{
		{Quantity: 10, QuantityReceived: 10},
		{Quantity: 10, QuantityReceived: 0},
	}
	assertDecimal(t, "0.5", unreceivedFraction(lines))
	assertDecimal(t, "1", unreceivedFraction(nil))
}
