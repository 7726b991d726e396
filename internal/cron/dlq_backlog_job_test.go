package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
)

type stubDLQCounter struct {
	counts map[enums.OutboxAggregateType]int64
	err    error
}

func (s stubDLQCounter) CountByAggregate(context.Context) (map[enums.OutboxAggregateType]int64, error) {
	return s.counts, s.err
}

type recordingGauge struct {
	values map[string]int64
}

func (g *recordingGauge) SetDLQBacklog(aggregateType string, count int64) {
	if g.values == nil {
		g.values = map[string]int64{}
	}
	g.values[aggregateType] = count
}

func TestDLQBacklogJobExportsCounts(t *testing.T) {
	gauge := &recordingGauge{}
	job, err := NewDLQBacklogJob(DLQBacklogJobParams{
		Logger: testLogger(),
		Repository: stubDLQCounter{counts: map[enums.OutboxAggregateType]int64{
			enums.AggregateWallet:        3,
			enums.AggregatePurchaseOrder: 0,
		}},
		Metrics: gauge,
	})
	require.NoError(t, err)
	assert.Equal(t, "outbox-dlq-backlog", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, map[string]int64{"wallet": 3, "purchase_order": 0}, gauge.values)
}

func TestDLQBacklogJobWithoutMetrics(t *testing.T) {
	job, err := NewDLQBacklogJob(DLQBacklogJobParams{
		Logger:     testLogger(),
		Repository: stubDLQCounter{counts: map[enums.OutboxAggregateType]int64{}},
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
}

func TestDLQBacklogJobPropagatesCountError(t *testing.T) {
	job, err := NewDLQBacklogJob(DLQBacklogJobParams{
		Logger:     testLogger(),
		Repository: stubDLQCounter{err: errors.New("db down")},
	})
	require.NoError(t, err)
	require.ErrorContains(t, job.Run(context.Background()), "db down")
}

func TestNewDLQBacklogJobValidates(t *testing.T) {
	_, err := NewDLQBacklogJob(DLQBacklogJobParams{Repository: stubDLQCounter{}})
	require.Error(t, err)
	_, err = NewDLQBacklogJob(DLQBacklogJobParams{Logger: testLogger()})
	require.Error(t, err)
}
