package outbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

const maxDLQErrorLen = 1024

// DLQRepository stores outbox rows the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx must run in the publisher transaction that marks the source row
// terminal.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncateDLQError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var dlq models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&dlq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dlq, nil
}

// CountByAggregate returns the dead-lettered backlog per aggregate type.
// Aggregate types with no rows are reported as zero.
func (r *DLQRepository) CountByAggregate(ctx context.Context) (map[enums.OutboxAggregateType]int64, error) {
	var rows []struct {
		AggregateType enums.OutboxAggregateType
		Total         int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.OutboxDLQ{}).
		Select("aggregate_type, COUNT(*) AS total").
		Group("aggregate_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.OutboxAggregateType]int64, len(enums.OutboxAggregateTypes()))
	for _, aggregate := range enums.OutboxAggregateTypes() {
		counts[aggregate] = 0
	}
	for _, row := range rows {
		counts[row.AggregateType] = row.Total
	}
	return counts, nil
}

func truncateDLQError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	return message[:maxDLQErrorLen]
}
