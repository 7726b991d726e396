package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

// ActivityLog is an operator-facing audit entry.
type ActivityLog struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Action     enums.ActivityAction     `gorm:"column:action;type:text;not null"`
	EntityType enums.ActivityEntityType `gorm:"column:entity_type;type:text;not null"`
	EntityID   uuid.UUID                `gorm:"column:entity_id;type:uuid;not null"`
	EntityName string                   `gorm:"column:entity_name;not null;default:''"`
	Details    json.RawMessage          `gorm:"column:details;type:jsonb"`
	UserID     *uuid.UUID               `gorm:"column:user_id;type:uuid"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (a *ActivityLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
