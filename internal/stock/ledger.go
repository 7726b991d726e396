package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// Reference tags the movement row written with every increment.
type Reference struct {
	Type string
	ID   *uuid.UUID
}

// Ledger is the stock write surface used by purchase order receiving.
type Ledger interface {
	Increment(ctx context.Context, tx *gorm.DB, itemID, locationID uuid.UUID, delta int, ref Reference) error
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]models.StockLevel, error)
}

type ledger struct {
	repo Repository
}

// NewLedger builds the stock ledger.
func NewLedger(repo Repository) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &ledger{repo: repo}, nil
}

// Increment adds delta to the (item, location) stock row inside tx, creating
// it at zero first when absent, and appends a movement row.
func (l *ledger) Increment(ctx context.Context, tx *gorm.DB, itemID, locationID uuid.UUID, delta int, ref Reference) error {
	if itemID == uuid.Nil || locationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item and location are required")
	}
	if delta == 0 {
		return nil
	}
	repo := l.repo.WithTx(tx)
	if err := repo.Upsert(ctx, itemID, locationID, delta); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert stock level")
	}
	refType := ref.Type
	if refType == "" {
		refType = "manual"
	}
	movement := &models.StockMovement{
		ItemID:        itemID,
		LocationID:    locationID,
		Delta:         delta,
		ReferenceType: refType,
		ReferenceID:   ref.ID,
	}
	if err := repo.InsertMovement(ctx, movement); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
	}
	return nil
}

func (l *ledger) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]models.StockLevel, error) {
	if locationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location_id is required")
	}
	rows, err := l.repo.ListByLocation(ctx, locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock levels")
	}
	return rows, nil
}
