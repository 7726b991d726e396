package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExchangeRate is one recorded SRD-per-USD rate. The newest row is current.
type ExchangeRate struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SRDPerUSD   decimal.Decimal `gorm:"column:srd_per_usd;type:numeric(18,4);not null"`
	Source      string          `gorm:"column:source;not null;default:'manual'"`
	ActorUserID *uuid.UUID      `gorm:"column:actor_user_id;type:uuid"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *ExchangeRate) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
