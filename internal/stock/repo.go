package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/retailops-backend/internal/repo"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
)

// Repository persists stock levels and their movement history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, itemID, locationID uuid.UUID, delta int) error
	InsertMovement(ctx context.Context, movement *models.StockMovement) error
	Find(ctx context.Context, itemID, locationID uuid.UUID) (*models.StockLevel, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]models.StockLevel, error)
	ListMovements(ctx context.Context, itemID, locationID uuid.UUID) ([]models.StockMovement, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a stock repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

// Upsert creates the (item, location) row at delta or adds delta to the
// existing quantity.
func (r *repository) Upsert(ctx context.Context, itemID, locationID uuid.UUID, delta int) error {
	row := &models.StockLevel{
		ItemID:     itemID,
		LocationID: locationID,
		Quantity:   delta,
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_id"}, {Name: "location_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("stock_levels.quantity + ?", delta),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(row).Error
}

func (r *repository) InsertMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.DB(ctx).Create(movement).Error
}

func (r *repository) Find(ctx context.Context, itemID, locationID uuid.UUID) (*models.StockLevel, error) {
	var row models.StockLevel
	if err := r.DB(ctx).Where("item_id = ? AND location_id = ?", itemID, locationID).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]models.StockLevel, error) {
	var rows []models.StockLevel
	if err := r.DB(ctx).Where("location_id = ?", locationID).Order("item_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListMovements(ctx context.Context, itemID, locationID uuid.UUID) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	if err := r.DB(ctx).
		Where("item_id = ? AND location_id = ?", itemID, locationID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
