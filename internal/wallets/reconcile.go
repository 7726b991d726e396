package wallets

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// Reconciliation compares a wallet's stored balance with its replayed log.
type Reconciliation struct {
	WalletID         uuid.UUID       `json:"wallet_id"`
	Currency         enums.Currency  `json:"currency"`
	InitialBalance   decimal.Decimal `json:"initial_balance"`
	StoredBalance    decimal.Decimal `json:"stored_balance"`
	ReplayedBalance  decimal.Decimal `json:"replayed_balance"`
	Drift            decimal.Decimal `json:"drift"`
	TransactionCount int             `json:"transaction_count"`
	ChainBreaks      int             `json:"chain_breaks"`
	Consistent       bool            `json:"consistent"`
}

// Reconcile replays the wallet's transaction log from its initial balance.
// A chain break is a row whose balance_before does not follow the previous
// row's balance_after, or whose amount disagrees with its own before/after.
func (s *service) Reconcile(ctx context.Context, walletID uuid.UUID) (*Reconciliation, error) {
	wallet, err := s.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.AllTransactions(ctx, walletID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet transactions")
	}

	result := Replay(wallet, rows)
	s.metrics.ObserveReconciliation(!result.Consistent)
	if !result.Consistent && s.logg != nil {
		logCtx := s.logg.WithWalletID(ctx, walletID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"stored_balance":   result.StoredBalance.String(),
			"replayed_balance": result.ReplayedBalance.String(),
			"chain_breaks":     result.ChainBreaks,
		})
		s.logg.Warn(logCtx, "wallet.reconcile.drift")
	}
	return result, nil
}

// Replay computes the reconciliation for wallet from rows ordered oldest first.
func Replay(wallet *models.Wallet, rows []models.WalletTransaction) *Reconciliation {
	replayed := wallet.InitialBalance
	running := wallet.InitialBalance
	breaks := 0
	for _, row := range rows {
		if !row.BalanceBefore.Equal(running) || !rowIsSelfConsistent(row) {
			breaks++
		}
		replayed = replayed.Add(row.SignedDelta())
		running = row.BalanceAfter
	}
	drift := wallet.Balance.Sub(replayed)
	return &Reconciliation{
		WalletID:         wallet.ID,
		Currency:         wallet.Currency,
		InitialBalance:   wallet.InitialBalance,
		StoredBalance:    wallet.Balance,
		ReplayedBalance:  replayed,
		Drift:            drift,
		TransactionCount: len(rows),
		ChainBreaks:      breaks,
		Consistent:       drift.IsZero() && breaks == 0,
	}
}

func rowIsSelfConsistent(row models.WalletTransaction) bool {
	switch row.Type {
	case enums.WalletTransactionCredit:
		return row.BalanceAfter.Equal(row.BalanceBefore.Add(row.Amount))
	case enums.WalletTransactionDebit:
		return row.BalanceAfter.Equal(row.BalanceBefore.Sub(row.Amount))
	case enums.WalletTransactionAdjustment:
		return row.Amount.Equal(row.BalanceAfter.Sub(row.BalanceBefore).Abs())
	default:
		return false
	}
}
