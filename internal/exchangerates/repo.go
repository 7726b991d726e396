package exchangerates

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/repo"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
)

// Repository stores the SRD-per-USD rate history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Latest(ctx context.Context) (*models.ExchangeRate, error)
	Create(ctx context.Context, rate *models.ExchangeRate) error
	List(ctx context.Context, limit int) ([]models.ExchangeRate, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a rate repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

// Latest returns the newest recorded rate, or nil when none exists.
func (r *repository) Latest(ctx context.Context) (*models.ExchangeRate, error) {
	var row models.ExchangeRate
	err := r.DB(ctx).Order("created_at DESC").Order("id DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, rate *models.ExchangeRate) error {
	return r.DB(ctx).Create(rate).Error
}

func (r *repository) List(ctx context.Context, limit int) ([]models.ExchangeRate, error) {
	var rows []models.ExchangeRate
	if err := r.DB(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
