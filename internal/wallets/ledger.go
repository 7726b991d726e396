package wallets

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/activity"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/metrics"
	"github.com/angelmondragon/retailops-backend/pkg/outbox"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
)

// entry is one balance change applied to a locked wallet.
type entry struct {
	id            uuid.UUID
	txType        enums.WalletTransactionType
	amount        decimal.Decimal
	target        decimal.Decimal
	referenceType enums.WalletReferenceType
	referenceID   *uuid.UUID
	transferID    *uuid.UUID
	description   string
	actorUserID   *uuid.UUID
}

func (s *service) Lock(ctx context.Context, tx *gorm.DB, walletID uuid.UUID) (*models.Wallet, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	wallet, err := s.repo.WithTx(tx).LockByID(ctx, walletID)
	if err != nil {
		return nil, walletLookupError(err)
	}
	return wallet, nil
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, posting Posting) (*models.WalletTransaction, error) {
	return s.postExternal(ctx, tx, enums.WalletTransactionDebit, posting)
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, posting Posting) (*models.WalletTransaction, error) {
	return s.postExternal(ctx, tx, enums.WalletTransactionCredit, posting)
}

func (s *service) postExternal(ctx context.Context, tx *gorm.DB, txType enums.WalletTransactionType, posting Posting) (*models.WalletTransaction, error) {
	if !posting.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !posting.ReferenceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reference type")
	}
	wallet, err := s.Lock(ctx, tx, posting.WalletID)
	if err != nil {
		return nil, err
	}
	if txType == enums.WalletTransactionDebit && wallet.Balance.LessThan(posting.Amount) {
		return nil, insufficientBalance(wallet, posting.Amount)
	}
	return s.apply(ctx, s.repo.WithTx(tx), wallet, entry{
		txType:        txType,
		amount:        posting.Amount,
		referenceType: posting.ReferenceType,
		referenceID:   posting.ReferenceID,
		description:   posting.Description,
		actorUserID:   posting.ActorUserID,
	})
}

// apply writes the new balance with a version check and appends the ledger
// row. wallet is updated in place so later entries in the same transaction
// see the new balance and version.
func (s *service) apply(ctx context.Context, repo Repository, wallet *models.Wallet, e entry) (*models.WalletTransaction, error) {
	before := wallet.Balance
	var after decimal.Decimal
	amount := e.amount
	switch e.txType {
	case enums.WalletTransactionCredit:
		after = before.Add(e.amount)
	case enums.WalletTransactionDebit:
		after = before.Sub(e.amount)
	case enums.WalletTransactionAdjustment:
		after = e.target
		amount = after.Sub(before).Abs()
	default:
		return nil, fmt.Errorf("unknown wallet transaction type %q", e.txType)
	}
	if after.IsNegative() {
		return nil, insufficientBalance(wallet, amount)
	}

	if err := repo.UpdateBalance(ctx, wallet.ID, wallet.Version, after); err != nil {
		return nil, err
	}
	row := &models.WalletTransaction{
		ID:            e.id,
		WalletID:      wallet.ID,
		Type:          e.txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Currency:      wallet.Currency,
		Description:   e.description,
		ReferenceType: e.referenceType,
		ReferenceID:   e.referenceID,
		TransferID:    e.transferID,
		ActorUserID:   e.actorUserID,
	}
	if err := repo.InsertTransaction(ctx, row); err != nil {
		return nil, err
	}
	wallet.Balance = after
	wallet.Version++
	return row, nil
}

func (s *service) ManualTransaction(ctx context.Context, input ManualTransactionInput) (result *ManualTransactionResult, err error) {
	defer func() { s.metrics.ObserveOperation("wallet.manual_"+string(input.Kind), metrics.Outcome(err)) }()

	if input.WalletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id is required")
	}
	switch input.Kind {
	case enums.ManualTransactionAdd, enums.ManualTransactionRemove:
		if !input.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
		}
	case enums.ManualTransactionCorrect:
		if input.Amount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidCorrection, "corrected balance cannot be negative").
				WithDetails(map[string]any{"target": input.Amount.String()})
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction kind")
	}
	description := strings.TrimSpace(input.Description)

	err = db.RunWithRetry(ctx, s.tx, s.policy, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := s.Lock(ctx, tx, input.WalletID)
		if err != nil {
			return err
		}
		result = &ManualTransactionResult{Wallet: wallet}

		e := entry{description: description, actorUserID: input.ActorUserID}
		switch input.Kind {
		case enums.ManualTransactionAdd:
			e.txType = enums.WalletTransactionCredit
			e.amount = input.Amount
			e.referenceType = enums.WalletReferenceAdjustment
		case enums.ManualTransactionRemove:
			if wallet.Balance.LessThan(input.Amount) {
				return insufficientBalance(wallet, input.Amount)
			}
			e.txType = enums.WalletTransactionDebit
			e.amount = input.Amount
			e.referenceType = enums.WalletReferenceAdjustment
		case enums.ManualTransactionCorrect:
			if wallet.Balance.Equal(input.Amount) {
				return nil
			}
			e.txType = enums.WalletTransactionAdjustment
			e.target = input.Amount
			e.referenceType = enums.WalletReferenceCorrection
		}

		row, err := s.apply(ctx, repo, wallet, e)
		if err != nil {
			return err
		}
		result.Transaction = row

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletAdjusted,
			AggregateType: enums.AggregateWallet,
			AggregateID:   wallet.ID,
			Actor:         outbox.NewActorRef(input.ActorUserID, input.ActorRole),
			Data: payloads.WalletAdjustedEvent{
				WalletID:      wallet.ID,
				TransactionID: row.ID,
				Kind:          input.Kind,
				Amount:        row.Amount,
				BalanceBefore: row.BalanceBefore,
				BalanceAfter:  row.BalanceAfter,
				Currency:      wallet.Currency,
			},
		})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "manual wallet transaction")
	}

	if result.Transaction != nil {
		s.activity.Record(ctx, activity.Entry{
			Action:     enums.ActivityAdjust,
			EntityType: enums.ActivityEntityWallet,
			EntityID:   result.Wallet.ID,
			EntityName: result.Wallet.Name,
			Details: map[string]any{
				"kind":           input.Kind,
				"amount":         result.Transaction.Amount.StringFixed(2),
				"balance_before": result.Transaction.BalanceBefore.StringFixed(2),
				"balance_after":  result.Transaction.BalanceAfter.StringFixed(2),
				"description":    description,
			},
			UserID: input.ActorUserID,
		})
	}
	return result, nil
}

func (s *service) Transfer(ctx context.Context, input TransferInput) (result *TransferResult, err error) {
	defer func() { s.metrics.ObserveOperation("wallet.transfer", metrics.Outcome(err)) }()

	if input.FromWalletID == uuid.Nil || input.ToWalletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination wallets are required")
	}
	if input.FromWalletID == input.ToWalletID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer to the same wallet")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}

	err = db.RunWithRetry(ctx, s.tx, s.policy, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Lock in ascending id order so two opposite transfers cannot deadlock.
		locked := make(map[uuid.UUID]*models.Wallet, 2)
		for _, id := range lockOrder(input.FromWalletID, input.ToWalletID) {
			wallet, err := s.Lock(ctx, tx, id)
			if err != nil {
				return err
			}
			locked[id] = wallet
		}
		from, to := locked[input.FromWalletID], locked[input.ToWalletID]

		if from.Currency != to.Currency {
			return pkgerrors.New(pkgerrors.CodeCurrencyMismatch, "wallets must share a currency").
				WithDetails(map[string]any{"from_currency": from.Currency, "to_currency": to.Currency})
		}
		if from.Balance.LessThan(input.Amount) {
			return insufficientBalance(from, input.Amount)
		}

		transferID := uuid.New()
		debitID, creditID := uuid.New(), uuid.New()
		description := strings.TrimSpace(input.Description)

		debit, err := s.apply(ctx, repo, from, entry{
			id:            debitID,
			txType:        enums.WalletTransactionDebit,
			amount:        input.Amount,
			referenceType: enums.WalletReferenceTransfer,
			referenceID:   &creditID,
			transferID:    &transferID,
			description:   defaultDescription(description, "Transfer to "+to.Name),
			actorUserID:   input.ActorUserID,
		})
		if err != nil {
			return err
		}
		credit, err := s.apply(ctx, repo, to, entry{
			id:            creditID,
			txType:        enums.WalletTransactionCredit,
			amount:        input.Amount,
			referenceType: enums.WalletReferenceTransfer,
			referenceID:   &debitID,
			transferID:    &transferID,
			description:   defaultDescription(description, "Transfer from "+from.Name),
			actorUserID:   input.ActorUserID,
		})
		if err != nil {
			return err
		}

		result = &TransferResult{
			TransferID: transferID,
			From:       from,
			To:         to,
			Debit:      debit,
			Credit:     credit,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletTransferCompleted,
			AggregateType: enums.AggregateWallet,
			AggregateID:   from.ID,
			Actor:         outbox.NewActorRef(input.ActorUserID, input.ActorRole),
			Data: payloads.WalletTransferCompletedEvent{
				TransferID:   transferID,
				FromWalletID: from.ID,
				ToWalletID:   to.ID,
				Amount:       input.Amount,
				Currency:     from.Currency,
				FromBalance:  from.Balance,
				ToBalance:    to.Balance,
			},
		})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "transfer between wallets")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"transfer_id":    result.TransferID.String(),
			"from_wallet_id": result.From.ID.String(),
			"to_wallet_id":   result.To.ID.String(),
			"amount":         input.Amount.String(),
		})
		s.logg.Info(logCtx, "wallet.transfer.completed")
	}
	s.activity.Record(ctx, activity.Entry{
		Action:     enums.ActivityTransfer,
		EntityType: enums.ActivityEntityWallet,
		EntityID:   result.From.ID,
		EntityName: result.From.Name,
		Details: map[string]any{
			"transfer_id":  result.TransferID.String(),
			"to_wallet_id": result.To.ID.String(),
			"to_wallet":    result.To.Name,
			"amount":       input.Amount.StringFixed(2),
			"currency":     result.From.Currency,
		},
		UserID: input.ActorUserID,
	})
	return result, nil
}

// lockOrder returns the two ids sorted by their canonical string form.
func lockOrder(a, b uuid.UUID) []uuid.UUID {
	if strings.Compare(a.String(), b.String()) <= 0 {
		return []uuid.UUID{a, b}
	}
	return []uuid.UUID{b, a}
}

func defaultDescription(given, fallback string) string {
	if given != "" {
		return given
	}
	return fallback
}

func insufficientBalance(wallet *models.Wallet, amount decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient wallet balance").
		WithDetails(map[string]any{
			"wallet_id": wallet.ID.String(),
			"balance":   wallet.Balance.StringFixed(2),
			"requested": amount.StringFixed(2),
		})
}
