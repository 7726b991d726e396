package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// PurchaseOrder is a supplier order paid up front from a wallet.
// ExchangeRate is SRD per 1 USD, locked when the order was created.
type PurchaseOrder struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	WalletID        uuid.UUID                 `gorm:"column:wallet_id;type:uuid;not null"`
	LocationID      uuid.UUID                 `gorm:"column:location_id;type:uuid;not null"`
	SupplierID      *uuid.UUID                `gorm:"column:supplier_id;type:uuid"`
	Currency        enums.Currency            `gorm:"column:currency;type:text;not null"`
	ExchangeRate    decimal.Decimal           `gorm:"column:exchange_rate;type:numeric(18,4);not null"`
	TotalAmount     decimal.Decimal           `gorm:"column:total_amount;type:numeric(18,4);not null"`
	WalletAmount    decimal.Decimal           `gorm:"column:wallet_amount;type:numeric(18,4);not null"`
	Status          enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Notes           *string                   `gorm:"column:notes"`
	ExpectedArrival *time.Time                `gorm:"column:expected_arrival"`
	CreatedBy       *uuid.UUID                `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
	CancelledAt     *time.Time                `gorm:"column:cancelled_at"`

	Lines []PurchaseOrderLine `gorm:"foreignKey:OrderID;references:ID"`
}

func (o *PurchaseOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// PurchaseOrderLine is one ordered item. QuantityReceived never exceeds Quantity.
type PurchaseOrderLine struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ItemID           uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	ItemName         string          `gorm:"column:item_name;not null;default:''"`
	Quantity         int             `gorm:"column:quantity;not null"`
	UnitCost         decimal.Decimal `gorm:"column:unit_cost;type:numeric(18,4);not null"`
	Subtotal         decimal.Decimal `gorm:"column:subtotal;type:numeric(18,4);not null"`
	QuantityReceived int             `gorm:"column:quantity_received;not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *PurchaseOrderLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// Remaining is the quantity still expected from the supplier.
func (l PurchaseOrderLine) Remaining() int {
	return l.Quantity - l.QuantityReceived
}
