package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// Wallet is a cash drawer or bank account attached to a location. Balance is
// only ever changed together with an appended WalletTransaction and a Version
// bump.
type Wallet struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	LocationID     uuid.UUID        `gorm:"column:location_id;type:uuid;not null"`
	Name           string           `gorm:"column:name;not null"`
	Type           enums.WalletType `gorm:"column:type;type:text;not null"`
	Currency       enums.Currency   `gorm:"column:currency;type:text;not null"`
	InitialBalance decimal.Decimal  `gorm:"column:initial_balance;type:numeric(18,4);not null;default:0"`
	Balance        decimal.Decimal  `gorm:"column:balance;type:numeric(18,4);not null;default:0"`
	Version        int64            `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WalletTransaction is one append-only ledger row.
type WalletTransaction struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	WalletID      uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null"`
	Type          enums.WalletTransactionType `gorm:"column:type;type:text;not null"`
	Amount        decimal.Decimal             `gorm:"column:amount;type:numeric(18,4);not null"`
	BalanceBefore decimal.Decimal             `gorm:"column:balance_before;type:numeric(18,4);not null"`
	BalanceAfter  decimal.Decimal             `gorm:"column:balance_after;type:numeric(18,4);not null"`
	Currency      enums.Currency              `gorm:"column:currency;type:text;not null"`
	Description   string                      `gorm:"column:description;not null;default:''"`
	ReferenceType enums.WalletReferenceType   `gorm:"column:reference_type;type:text;not null"`
	ReferenceID   *uuid.UUID                  `gorm:"column:reference_id;type:uuid"`
	TransferID    *uuid.UUID                  `gorm:"column:transfer_id;type:uuid"`
	ActorUserID   *uuid.UUID                  `gorm:"column:actor_user_id;type:uuid"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (t *WalletTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// SignedDelta is the balance change this row contributed.
func (t WalletTransaction) SignedDelta() decimal.Decimal {
	switch t.Type {
	case enums.WalletTransactionCredit:
		return t.Amount
	case enums.WalletTransactionDebit:
		return t.Amount.Neg()
	default:
		return t.BalanceAfter.Sub(t.BalanceBefore)
	}
}
