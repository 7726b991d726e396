package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// WalletCreatedEvent announces a new wallet and its opening balance.
type WalletCreatedEvent struct {
	WalletID       uuid.UUID        `json:"wallet_id"`
	LocationID     uuid.UUID        `json:"location_id"`
	Type           enums.WalletType `json:"type"`
	Currency       enums.Currency   `json:"currency"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
}

// WalletAdjustedEvent is emitted for manual add/remove/correct operations.
type WalletAdjustedEvent struct {
	WalletID      uuid.UUID                   `json:"wallet_id"`
	TransactionID uuid.UUID                   `json:"transaction_id"`
	Kind          enums.ManualTransactionKind `json:"kind"`
	Amount        decimal.Decimal             `json:"amount"`
	BalanceBefore decimal.Decimal             `json:"balance_before"`
	BalanceAfter  decimal.Decimal             `json:"balance_after"`
	Currency      enums.Currency              `json:"currency"`
}

// WalletTransferCompletedEvent covers both legs of a wallet-to-wallet transfer.
type WalletTransferCompletedEvent struct {
	TransferID   uuid.UUID       `json:"transfer_id"`
	FromWalletID uuid.UUID       `json:"from_wallet_id"`
	ToWalletID   uuid.UUID       `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     enums.Currency  `json:"currency"`
	FromBalance  decimal.Decimal `json:"from_balance"`
	ToBalance    decimal.Decimal `json:"to_balance"`
}

// PurchaseOrderCreatedEvent carries the locked rate and the wallet debit.
type PurchaseOrderCreatedEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	SupplierID   *uuid.UUID      `json:"supplier_id,omitempty"`
	Currency     enums.Currency  `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	WalletAmount decimal.Decimal `json:"wallet_amount"`
	LineCount    int             `json:"line_count"`
}

// PurchaseOrderUpdatedEvent is emitted after a pending order's lines are replaced.
type PurchaseOrderUpdatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

// PurchaseOrderStatusChangedEvent reports a manual status advance.
type PurchaseOrderStatusChangedEvent struct {
	OrderID uuid.UUID                 `json:"order_id"`
	From    enums.PurchaseOrderStatus `json:"from"`
	To      enums.PurchaseOrderStatus `json:"to"`
}

// ReceivedLine is one applied receipt within a PurchaseOrderReceivedEvent.
type ReceivedLine struct {
	LineID   uuid.UUID `json:"line_id"`
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// PurchaseOrderReceivedEvent lists the quantities booked into stock.
type PurchaseOrderReceivedEvent struct {
	OrderID    uuid.UUID                 `json:"order_id"`
	LocationID uuid.UUID                 `json:"location_id"`
	Status     enums.PurchaseOrderStatus `json:"status"`
	Lines      []ReceivedLine            `json:"lines"`
}

// PurchaseOrderCancelledEvent reports the refund credited back to the wallet.
type PurchaseOrderCancelledEvent struct {
	OrderID        uuid.UUID                 `json:"order_id"`
	WalletID       uuid.UUID                 `json:"wallet_id"`
	PreviousStatus enums.PurchaseOrderStatus `json:"previous_status"`
	RefundAmount   decimal.Decimal           `json:"refund_amount"`
	CancelledAt    time.Time                 `json:"cancelled_at"`
}

// PurchaseOrderDeletedEvent is emitted when an order and its lines are removed.
type PurchaseOrderDeletedEvent struct {
	OrderID        uuid.UUID                 `json:"order_id"`
	WalletID       uuid.UUID                 `json:"wallet_id"`
	PreviousStatus enums.PurchaseOrderStatus `json:"previous_status"`
	RefundAmount   decimal.Decimal           `json:"refund_amount"`
}

// ExchangeRateChangedEvent announces a newly recorded SRD-per-USD rate.
type ExchangeRateChangedEvent struct {
	RateID    uuid.UUID       `json:"rate_id"`
	SRDPerUSD decimal.Decimal `json:"srd_per_usd"`
}
