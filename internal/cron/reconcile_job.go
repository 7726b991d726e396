package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/retailops-backend/internal/wallets"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

const defaultReconcileBatch = 200

type walletReconciler interface {
	WalletIDs(ctx context.Context, after *uuid.UUID, limit int) ([]uuid.UUID, error)
	Reconcile(ctx context.Context, walletID uuid.UUID) (*wallets.Reconciliation, error)
}

type ReconcileJobParams struct {
	Logger    *logger.Logger
	Wallets   walletReconciler
	BatchSize int
	// FailOnDrift makes a cycle with drifted wallets count as a failed run.
	FailOnDrift bool
}

// NewReconcileJob replays every wallet's transaction log against its stored
// balance.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet reconciler required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &reconcileJob{
		logg:        params.Logger,
		wallets:     params.Wallets,
		batch:       batch,
		failOnDrift: params.FailOnDrift,
	}, nil
}

type reconcileJob struct {
	logg        *logger.Logger
	wallets     walletReconciler
	batch       int
	failOnDrift bool
}

func (j *reconcileJob) Name() string { return "ledger-reconcile" }

// Run walks wallet ids in pages. A wallet that fails to load does not stop
// the walk; every failure is collected into the returned error.
func (j *reconcileJob) Run(ctx context.Context) error {
	var (
		errs    error
		after   *uuid.UUID
		checked int
		drifted []string
	)
	for {
		ids, err := j.wallets.WalletIDs(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list wallets: %w", err))
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return multierr.Append(errs, err)
			}
			result, err := j.wallets.Reconcile(ctx, id)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("reconcile wallet %s: %w", id, err))
				continue
			}
			checked++
			if !result.Consistent {
				drifted = append(drifted, id.String())
			}
		}
		if len(ids) < j.batch {
			break
		}
		last := ids[len(ids)-1]
		after = &last
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"wallets_checked": checked,
		"wallets_drifted": len(drifted),
	})
	j.logg.Info(logCtx, "ledger.reconcile.completed")

	if j.failOnDrift && len(drifted) > 0 {
		errs = multierr.Append(errs, fmt.Errorf("ledger drift detected in %d wallets: %v", len(drifted), drifted))
	}
	return errs
}
