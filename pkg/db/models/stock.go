package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockLevel is the on-hand quantity of one item at one location.
type StockLevel struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemID     uuid.UUID `gorm:"column:item_id;type:uuid;not null;uniqueIndex:stock_levels_item_location_key"`
	LocationID uuid.UUID `gorm:"column:location_id;type:uuid;not null;uniqueIndex:stock_levels_item_location_key"`
	Quantity   int       `gorm:"column:quantity;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *StockLevel) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// StockMovement records one increment applied to a StockLevel.
type StockMovement struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID  `gorm:"column:item_id;type:uuid;not null"`
	LocationID    uuid.UUID  `gorm:"column:location_id;type:uuid;not null"`
	Delta         int        `gorm:"column:delta;not null"`
	ReferenceType string     `gorm:"column:reference_type;not null"`
	ReferenceID   *uuid.UUID `gorm:"column:reference_id;type:uuid"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
