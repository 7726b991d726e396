package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

type stubRepository struct {
	createFn func(ctx context.Context, entry *models.ActivityLog) error
}

func (s *stubRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if s.createFn != nil {
		return s.createFn(ctx, entry)
	}
	return nil
}

func (s *stubRepository) ListForEntity(context.Context, enums.ActivityEntityType, uuid.UUID, int) ([]models.ActivityLog, error) {
	return nil, nil
}

func TestRecordPersistsEntry(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	log := NewLog(repo, nil)

	orderID := uuid.New()
	userID := uuid.New()
	log.Record(context.Background(), Entry{
		Action:     enums.ActivityCancel,
		EntityType: enums.ActivityEntityPurchaseOrder,
		EntityID:   orderID,
		EntityName: "PO for Main Street",
		Details:    map[string]any{"refund": "5.00"},
		UserID:     &userID,
	})

	rows, err := repo.ListForEntity(context.Background(), enums.ActivityEntityPurchaseOrder, orderID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.ActivityCancel, rows[0].Action)
	assert.Equal(t, "PO for Main Street", rows[0].EntityName)
	require.NotNil(t, rows[0].UserID)
	assert.Equal(t, userID, *rows[0].UserID)

	var details map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Details, &details))
	assert.Equal(t, "5.00", details["refund"])
}

func TestRecordSwallowsFailures(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	repo := &stubRepository{createFn: func(context.Context, *models.ActivityLog) error {
		return errors.New("insert failed")
	}}

	NewLog(repo, logg).Record(context.Background(), Entry{
		Action:     enums.ActivityCreate,
		EntityType: enums.ActivityEntityWallet,
		EntityID:   uuid.New(),
	})

	assert.Contains(t, buf.String(), "activity.record.failed")
	assert.Contains(t, buf.String(), "insert failed")
}

func TestNilLogIsSafe(t *testing.T) {
	var log *Log
	log.Record(context.Background(), Entry{EntityID: uuid.New()})
	Nop{}.Record(context.Background(), Entry{})
}

func TestRecordSurvivesCancelledRequest(t *testing.T) {
	var seen error
	repo := &stubRepository{createFn: func(ctx context.Context, _ *models.ActivityLog) error {
		seen = ctx.Err()
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewLog(repo, nil).Record(ctx, Entry{Action: enums.ActivityCreate, EntityType: enums.ActivityEntityWallet, EntityID: uuid.New()})

	assert.NoError(t, seen)
}

func TestRecordGivesUpAfterTimeout(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	repo := &stubRepository{createFn: func(ctx context.Context, _ *models.ActivityLog) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	log := NewLog(repo, logg)
	log.timeout = 20 * time.Millisecond

	start := time.Now()
	log.Record(context.Background(), Entry{Action: enums.ActivityUpdate, EntityType: enums.ActivityEntityWallet, EntityID: uuid.New()})

	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, buf.String(), "context deadline exceeded")
}
