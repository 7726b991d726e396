package activity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/repo"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// Repository persists activity log rows.
type Repository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	ListForEntity(ctx context.Context, entityType enums.ActivityEntityType, entityID uuid.UUID, limit int) ([]models.ActivityLog, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an activity repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) ListForEntity(ctx context.Context, entityType enums.ActivityEntityType, entityID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	var rows []models.ActivityLog
	query := r.DB(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
