package cron

import (
	"context"
	"fmt"
	"sort"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

type dlqCounter interface {
	CountByAggregate(ctx context.Context) (map[enums.OutboxAggregateType]int64, error)
}

type dlqGauge interface {
	SetDLQBacklog(aggregateType string, count int64)
}

type DLQBacklogJobParams struct {
	Logger     *logger.Logger
	Repository dlqCounter
	Metrics    dlqGauge
}

// NewDLQBacklogJob exports the dead-letter backlog so stuck wallet and
// purchase order events show up on dashboards.
func NewDLQBacklogJob(params DLQBacklogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	return &dlqBacklogJob{
		logg:    params.Logger,
		repo:    params.Repository,
		metrics: params.Metrics,
	}, nil
}

type dlqBacklogJob struct {
	logg    *logger.Logger
	repo    dlqCounter
	metrics dlqGauge
}

func (j *dlqBacklogJob) Name() string { return "outbox-dlq-backlog" }

func (j *dlqBacklogJob) Run(ctx context.Context) error {
	counts, err := j.repo.CountByAggregate(ctx)
	if err != nil {
		return fmt.Errorf("count dlq backlog: %w", err)
	}

	aggregates := make([]string, 0, len(counts))
	for aggregate := range counts {
		aggregates = append(aggregates, string(aggregate))
	}
	sort.Strings(aggregates)

	var total int64
	fields := make(map[string]any, len(counts)+1)
	for _, aggregate := range aggregates {
		count := counts[enums.OutboxAggregateType(aggregate)]
		total += count
		fields["dlq_"+aggregate] = count
		if j.metrics != nil {
			j.metrics.SetDLQBacklog(aggregate, count)
		}
	}
	fields["dlq_total"] = total

	logCtx := j.logg.WithFields(ctx, fields)
	if total > 0 {
		j.logg.Warn(logCtx, "outbox.dlq.backlog")
		return nil
	}
	j.logg.Info(logCtx, "outbox.dlq.empty")
	return nil
}
