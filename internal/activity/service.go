package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

// Entry is one audit record handed to the log after a mutation commits.
type Entry struct {
	Action     enums.ActivityAction
	EntityType enums.ActivityEntityType
	EntityID   uuid.UUID
	EntityName string
	Details    map[string]any
	UserID     *uuid.UUID
}

// Recorder is the write surface services depend on.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Log writes activity entries. Failures are logged and swallowed so the
// caller's committed operation is never affected.
type Log struct {
	repo    Repository
	logg    *logger.Logger
	timeout time.Duration
}

// DefaultRecordTimeout bounds how long one audit write may hold up a response.
const DefaultRecordTimeout = 2 * time.Second

// NewLog wires the activity log.
func NewLog(repo Repository, logg *logger.Logger) *Log {
	return &Log{repo: repo, logg: logg, timeout: DefaultRecordTimeout}
}

// Record persists entry, best-effort. The write ignores cancellation of ctx
// and is cut off after the log's timeout.
func (l *Log) Record(ctx context.Context, entry Entry) {
	if l == nil || l.repo == nil {
		return
	}
	timeout := l.timeout
	if timeout <= 0 {
		timeout = DefaultRecordTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	row := &models.ActivityLog{
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		EntityName: entry.EntityName,
		UserID:     entry.UserID,
	}
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			l.warn(ctx, entry, err)
			return
		}
		row.Details = raw
	}
	if err := l.repo.Create(ctx, row); err != nil {
		l.warn(ctx, entry, err)
	}
}

func (l *Log) warn(ctx context.Context, entry Entry, err error) {
	if l.logg == nil {
		return
	}
	ctx = l.logg.WithFields(ctx, map[string]any{
		"action":      entry.Action,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID.String(),
		"error":       err.Error(),
	})
	l.logg.Warn(ctx, "activity.record.failed")
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
