package purchaseorders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/currency"
	"github.com/angelmondragon/retailops-backend/internal/wallets"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/metrics"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
)

// Create places a pending order and pays for it up front. The wallet is
// debited the order total converted at the current rate, and that rate is
// locked on the order for every later refund.
func (s *service) Create(ctx context.Context, input CreateInput) (order *models.PurchaseOrder, err error) {
	defer func() { s.metrics.ObserveOperation("purchase_order.create", metrics.Outcome(err)) }()

	if input.WalletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidWallet, "wallet id is required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, &input.LocationID, input.SupplierID); err != nil {
		return nil, err
	}

	rate, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}

	err = db.RunWithRetry(ctx, s.tx, s.policy, func(tx *gorm.DB) error {
		wallet, err := s.lockWallet(ctx, tx, input.WalletID)
		if err != nil {
			return err
		}
		lines, total, err := buildLines(ctx, s.items.WithTx(tx), input.Lines)
		if err != nil {
			return err
		}
		walletAmount, err := currency.ConvertMoney(total, input.Currency, wallet.Currency, rate.SRDPerUSD)
		if err != nil {
			return err
		}
		if wallet.Balance.LessThan(walletAmount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance does not cover the order").
				WithDetails(map[string]any{
					"wallet_id": wallet.ID.String(),
					"balance":   wallet.Balance.StringFixed(2),
					"required":  walletAmount.StringFixed(2),
					"currency":  wallet.Currency,
				})
		}

		order = &models.PurchaseOrder{
			ID:              uuid.New(),
			WalletID:        wallet.ID,
			LocationID:      input.LocationID,
			SupplierID:      input.SupplierID,
			Currency:        input.Currency,
			ExchangeRate:    rate.SRDPerUSD,
			TotalAmount:     total,
			WalletAmount:    walletAmount,
			Status:          enums.PurchaseOrderStatusPending,
			Notes:           input.Notes,
			ExpectedArrival: input.ExpectedArrival,
			CreatedBy:       input.ActorUserID,
			Lines:           lines,
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}

		if walletAmount.IsPositive() {
			if _, err := s.wallets.Debit(ctx, tx, wallets.Posting{
				WalletID:      wallet.ID,
				Amount:        walletAmount,
				ReferenceType: enums.WalletReferenceOrder,
				ReferenceID:   &order.ID,
				Description:   "Payment for " + OrderName(order.ID),
				ActorUserID:   input.ActorUserID,
			}); err != nil {
				return err
			}
		}

		if err := syncItemCosts(ctx, s.items, tx, lines, input.Currency, rate.SRDPerUSD); err != nil {
			return err
		}

		return s.emit(ctx, tx, enums.EventPurchaseOrderCreated, order.ID, input.ActorUserID, input.ActorRole,
			payloads.PurchaseOrderCreatedEvent{
				OrderID:      order.ID,
				WalletID:     order.WalletID,
				LocationID:   order.LocationID,
				SupplierID:   order.SupplierID,
				Currency:     order.Currency,
				ExchangeRate: order.ExchangeRate,
				TotalAmount:  order.TotalAmount,
				WalletAmount: order.WalletAmount,
				LineCount:    len(order.Lines),
			})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "create purchase order")
	}

	s.logInfo(ctx, order.ID, "purchase_order.created", map[string]any{
		"wallet_id":     order.WalletID.String(),
		"wallet_amount": order.WalletAmount.String(),
		"exchange_rate": order.ExchangeRate.String(),
	})
	s.record(ctx, enums.ActivityCreate, order, input.ActorUserID, map[string]any{
		"total_amount":  order.TotalAmount.StringFixed(2),
		"currency":      order.Currency,
		"wallet_amount": order.WalletAmount.StringFixed(2),
		"exchange_rate": order.ExchangeRate.String(),
		"line_count":    len(order.Lines),
	})
	return order, nil
}

// Edit replaces the lines of a pending order and recomputes its total. The
// wallet debit taken at creation is left as it was.
func (s *service) Edit(ctx context.Context, input EditInput) (order *models.PurchaseOrder, err error) {
	defer func() { s.metrics.ObserveOperation("purchase_order.edit", metrics.Outcome(err)) }()

	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, nil, input.SupplierID); err != nil {
		return nil, err
	}

	var previousTotal decimal.Decimal
	err = db.RunWithRetry(ctx, s.tx, s.policy, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if current.Status != enums.PurchaseOrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "only pending orders can be edited").
				WithDetails(map[string]any{"status": current.Status})
		}
		previousTotal = current.TotalAmount

		lines, total, err := buildLines(ctx, s.items.WithTx(tx), input.Lines)
		if err != nil {
			return err
		}
		if err := repo.ReplaceLines(ctx, current.ID, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order lines")
		}

		details := DetailsUpdate{
			SupplierID:      current.SupplierID,
			TotalAmount:     total,
			Notes:           current.Notes,
			ExpectedArrival: current.ExpectedArrival,
		}
		if input.SupplierID != nil {
			details.SupplierID = input.SupplierID
		}
		if input.Notes != nil {
			details.Notes = input.Notes
		}
		if input.ExpectedArrival != nil {
			details.ExpectedArrival = input.ExpectedArrival
		}
		if err := repo.UpdateDetails(ctx, current.ID, details); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}

		if err := syncItemCosts(ctx, s.items, tx, lines, current.Currency, current.ExchangeRate); err != nil {
			return err
		}

		order, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return orderLookupError(err)
		}

		return s.emit(ctx, tx, enums.EventPurchaseOrderUpdated, order.ID, input.ActorUserID, input.ActorRole,
			payloads.PurchaseOrderUpdatedEvent{
				OrderID:     order.ID,
				TotalAmount: order.TotalAmount,
				LineCount:   len(order.Lines),
			})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "edit purchase order")
	}

	s.record(ctx, enums.ActivityUpdate, order, input.ActorUserID, map[string]any{
		"previous_total": previousTotal.StringFixed(2),
		"total_amount":   order.TotalAmount.StringFixed(2),
		"line_count":     len(order.Lines),
	})
	return order, nil
}
