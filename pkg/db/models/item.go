package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// Item is a catalog entry. Purchase orders keep its master cost fields in sync
// with the latest unit cost paid.
type Item struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name             string           `gorm:"column:name;not null"`
	SKU              *string          `gorm:"column:sku"`
	PurchasePriceUSD decimal.Decimal  `gorm:"column:purchase_price_usd;type:numeric(18,4);not null;default:0"`
	LastUnitCost     *decimal.Decimal `gorm:"column:last_unit_cost;type:numeric(18,4)"`
	LastCostCurrency *enums.Currency  `gorm:"column:last_cost_currency;type:text"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
