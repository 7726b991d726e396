package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/retailops-backend/internal/wallets"
)

type stubReconciler struct {
	ids        []uuid.UUID
	drifted    map[uuid.UUID]bool
	failing    map[uuid.UUID]bool
	pageCalls  int
	reconciled []uuid.UUID
	listErr    error
}

func (s *stubReconciler) WalletIDs(_ context.Context, after *uuid.UUID, limit int) ([]uuid.UUID, error) {
	s.pageCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	start := 0
	if after != nil {
		for i, id := range s.ids {
			if id == *after {
				start = i + 1
			}
		}
	}
	end := start + limit
	if end > len(s.ids) {
		end = len(s.ids)
	}
	return s.ids[start:end], nil
}

func (s *stubReconciler) Reconcile(_ context.Context, walletID uuid.UUID) (*wallets.Reconciliation, error) {
	s.reconciled = append(s.reconciled, walletID)
	if s.failing[walletID] {
		return nil, errors.New("db down")
	}
	return &wallets.Reconciliation{WalletID: walletID, Consistent: !s.drifted[walletID]}, nil
}

func newStubReconciler(n int) *stubReconciler {
	s := &stubReconciler{drifted: map[uuid.UUID]bool{}, failing: map[uuid.UUID]bool{}}
	for i := 0; i < n; i++ {
		s.ids = append(s.ids, uuid.New())
	}
	return s
}

func newReconcileJob(t *testing.T, wallets walletReconciler, batch int, failOnDrift bool) Job {
	t.Helper()
	job, err := NewReconcileJob(ReconcileJobParams{
		Logger:      testLogger(),
		Wallets:     wallets,
		BatchSize:   batch,
		FailOnDrift: failOnDrift,
	})
	require.NoError(t, err)
	return job
}

func TestReconcileJobPagesThroughEveryWallet(t *testing.T) {
	stub := newStubReconciler(5)
	job := newReconcileJob(t, stub, 2, true)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, stub.ids, stub.reconciled)
	assert.Equal(t, 3, stub.pageCalls)
}

func TestReconcileJobCollectsFailuresAndDrift(t *testing.T) {
	stub := newStubReconciler(4)
	stub.failing[stub.ids[0]] = true
	stub.drifted[stub.ids[2]] = true
	job := newReconcileJob(t, stub, 10, true)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, stub.reconciled, 4)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), stub.ids[2].String())
}

func TestReconcileJobDriftOnlyLoggedWhenNotFailing(t *testing.T) {
	stub := newStubReconciler(2)
	stub.drifted[stub.ids[1]] = true
	job := newReconcileJob(t, stub, 10, false)

	assert.NoError(t, job.Run(context.Background()))
}

func TestReconcileJobStopsWhenListingFails(t *testing.T) {
	stub := newStubReconciler(0)
	stub.listErr = errors.New("timeout")
	job := newReconcileJob(t, stub, 10, false)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list wallets")
}
