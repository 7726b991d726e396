package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/repo"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// ItemCatalog reads items and keeps their master cost in sync with the
// latest purchase.
type ItemCatalog interface {
	WithTx(tx *gorm.DB) ItemCatalog
	FindItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Item, error)
	UpdateCost(ctx context.Context, itemID uuid.UUID, cost CostUpdate) error
}

// CostUpdate is the master cost written back after a purchase order create or edit.
type CostUpdate struct {
	UnitCost         decimal.Decimal
	Currency         enums.Currency
	PurchasePriceUSD decimal.Decimal
}

// LocationCatalog resolves destination locations.
type LocationCatalog interface {
	FindLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
}

// ClientDirectory resolves suppliers.
type ClientDirectory interface {
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

// Repository implements all three catalog surfaces over one connection.
type Repository struct {
	repo.Base
}

// NewRepository returns a catalog repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) ItemCatalog {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// FindItems returns the items that exist, keyed by id. Missing ids are absent
// from the map.
func (r *Repository) FindItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Item, error) {
	out := make(map[uuid.UUID]models.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Item
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) UpdateCost(ctx context.Context, itemID uuid.UUID, cost CostUpdate) error {
	return r.DB(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"last_unit_cost":     cost.UnitCost,
			"last_cost_currency": cost.Currency,
			"purchase_price_usd": cost.PurchasePriceUSD,
		}).Error
}

// FindLocation returns nil, nil when the location does not exist.
func (r *Repository) FindLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var row models.Location
	err := r.DB(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindSupplier returns nil, nil when the supplier does not exist.
func (r *Repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var row models.Supplier
	err := r.DB(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
