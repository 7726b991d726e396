package purchaseorders

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/internal/wallets"
	"github.com/angelmondragon/retailops-backend/pkg/db"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/metrics"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
)

// manualAdvances are the only status changes an operator may request directly.
var manualAdvances = map[enums.PurchaseOrderStatus]enums.PurchaseOrderStatus{
	enums.PurchaseOrderStatusPending: enums.PurchaseOrderStatusOrdered,
	enums.PurchaseOrderStatusOrdered: enums.PurchaseOrderStatusShipped,
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (order *models.PurchaseOrder, err error) {
	defer func() { s.metrics.ObserveOperation("purchase_order.advance", metrics.Outcome(err)) }()

	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	var from enums.PurchaseOrderStatus
	err = db.RunWithRetry(ctx, s.tx, s.policy, func(tx *gorm.DB) error {
		current, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		from = current.Status
		if next, ok := manualAdvances[from]; !ok || next != input.Status || !from.CanTransitionTo(input.Status) {
			return invalidTransition(from, input.Status)
		}
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, current.ID, from, input.Status, nil); err != nil {
			return err
		}
		current.Status = input.Status
		order = current

		return s.emit(ctx, tx, enums.EventPurchaseOrderStatusChange, order.ID, input.ActorUserID, input.ActorRole,
			payloads.PurchaseOrderStatusChangedEvent{OrderID: order.ID, From: from, To: order.Status})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "advance purchase order")
	}

	s.metrics.ObserveTransition(from.String(), order.Status.String())
	s.record(ctx, enums.ActivityUpdate, order, input.ActorUserID, map[string]any{
		"from": from,
		"to":   order.Status,
	})
	return order, nil
}

// Receive books arriving quantities against the order lines and into stock.
// The request is all or nothing: one bad line rejects the whole call.
func (s *service) Receive(ctx context.Context, input ReceiveInput) (result *ReceiveResult, err error) {
	defer func() { s.metrics.ObserveOperation("purchase_order.receive", metrics.Outcome(err)) }()

	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var from enums.PurchaseOrderStatus
	err = db.RunWithRetry(ctx, s.tx, s.policy, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		from = order.Status
		result = &ReceiveResult{Order: order, Received: []payloads.ReceivedLine{}}

		if !order.Status.AcceptsReceipts() {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "order no longer accepts receipts").
				WithDetails(map[string]any{"status": order.Status})
		}
		if err := checkReceipt(order.Lines, input.Quantities); err != nil {
			return err
		}

		for i := range order.Lines {
			line := &order.Lines[i]
			qty := input.Quantities[line.ID]
			if qty == 0 {
				continue
			}
			if err := repo.IncrementReceived(ctx, line.ID, qty); err != nil {
				return err
			}
			if err := s.stock.Increment(ctx, tx, line.ItemID, order.LocationID, qty, stock.Reference{
				Type: StockReferenceType,
				ID:   &order.ID,
			}); err != nil {
				return err
			}
			line.QuantityReceived += qty
			result.Received = append(result.Received, payloads.ReceivedLine{
				LineID:   line.ID,
				ItemID:   line.ItemID,
				Quantity: qty,
			})
		}
		if len(result.Received) == 0 {
			return nil
		}

		next := receivedStatus(order)
		if next != order.Status {
			if !order.Status.CanTransitionTo(next) {
				return invalidTransition(order.Status, next)
			}
			if err := repo.UpdateStatus(ctx, order.ID, order.Status, next, nil); err != nil {
				return err
			}
			order.Status = next
		}

		return s.emit(ctx, tx, enums.EventPurchaseOrderReceived, order.ID, input.ActorUserID, input.ActorRole,
			payloads.PurchaseOrderReceivedEvent{
				OrderID:    order.ID,
				LocationID: order.LocationID,
				Status:     order.Status,
				Lines:      result.Received,
			})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "receive purchase order")
	}
	if len(result.Received) == 0 {
		return result, nil
	}

	order := result.Order
	if order.Status != from {
		s.metrics.ObserveTransition(from.String(), order.Status.String())
	}
	s.logInfo(ctx, order.ID, "purchase_order.received", map[string]any{
		"lines":  len(result.Received),
		"status": order.Status,
	})
	s.record(ctx, enums.ActivityReceive, order, input.ActorUserID, map[string]any{
		"lines":  result.Received,
		"status": order.Status,
	})
	return result, nil
}

// checkReceipt validates every requested quantity before anything is written.
func checkReceipt(lines []models.PurchaseOrderLine, quantities map[uuid.UUID]int) error {
	byID := make(map[uuid.UUID]models.PurchaseOrderLine, len(lines))
	for _, line := range lines {
		byID[line.ID] = line
	}

	var unknown, negative []string
	for lineID, qty := range quantities {
		if _, ok := byID[lineID]; !ok {
			unknown = append(unknown, lineID.String())
			continue
		}
		if qty < 0 {
			negative = append(negative, lineID.String())
		}
	}
	if len(unknown) > 0 || len(negative) > 0 {
		sort.Strings(unknown)
		sort.Strings(negative)
		return pkgerrors.New(pkgerrors.CodeInvalidLineItems, "receipt references unknown lines or negative quantities").
			WithDetails(map[string]any{"unknown_line_ids": unknown, "negative_line_ids": negative})
	}

	var over []map[string]any
	for _, line := range lines {
		qty := quantities[line.ID]
		if qty > line.Remaining() {
			over = append(over, map[string]any{
				"line_id":   line.ID.String(),
				"requested": qty,
				"remaining": line.Remaining(),
			})
		}
	}
	if len(over) > 0 {
		return pkgerrors.New(pkgerrors.CodeOverReceipt, "received quantity exceeds the remaining quantity").
			WithDetails(map[string]any{"lines": over})
	}
	return nil
}

// receivedStatus derives the status after a receipt from the line totals.
func receivedStatus(order *models.PurchaseOrder) enums.PurchaseOrderStatus {
	complete, started := true, false
	for _, line := range order.Lines {
		if line.QuantityReceived < line.Quantity {
			complete = false
		}
		if line.QuantityReceived > 0 {
			started = true
		}
	}
	switch {
	case complete:
		return enums.PurchaseOrderStatusReceived
	case started:
		return enums.PurchaseOrderStatusPartiallyReceived
	default:
		return order.Status
	}
}

// Cancel closes the order and refunds the unreceived share of its total. A
// fully received order is cancelled without a refund.
func (s *service) Cancel(ctx context.Context, input ActionInput) (result *RefundResult, err error) {
	defer func() { s.metrics.ObserveOperation("purchase_order.cancel", metrics.Outcome(err)) }()

	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	err = db.RunWithRetry(ctx, s.tx, s.policy, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(enums.PurchaseOrderStatusCancelled) {
			return invalidTransition(order.Status, enums.PurchaseOrderStatusCancelled)
		}
		result = &RefundResult{Order: order, PreviousStatus: order.Status, Refund: decimal.Zero}

		if order.Status != enums.PurchaseOrderStatusReceived {
			txn, refund, err := s.refund(ctx, tx, order, input)
			if err != nil {
				return err
			}
			result.Refund, result.Transaction = refund, txn
		}

		now := time.Now().UTC()
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, order.Status, enums.PurchaseOrderStatusCancelled, &now); err != nil {
			return err
		}
		order.Status = enums.PurchaseOrderStatusCancelled
		order.CancelledAt = &now

		return s.emit(ctx, tx, enums.EventPurchaseOrderCancelled, order.ID, input.ActorUserID, input.ActorRole,
			payloads.PurchaseOrderCancelledEvent{
				OrderID:        order.ID,
				WalletID:       order.WalletID,
				PreviousStatus: result.PreviousStatus,
				RefundAmount:   result.Refund,
				CancelledAt:    now,
			})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "cancel purchase order")
	}

	s.metrics.ObserveTransition(result.PreviousStatus.String(), enums.PurchaseOrderStatusCancelled.String())
	s.logInfo(ctx, result.Order.ID, "purchase_order.cancelled", map[string]any{
		"previous_status": result.PreviousStatus,
		"refund":          result.Refund.String(),
	})
	s.record(ctx, enums.ActivityCancel, result.Order, input.ActorUserID, map[string]any{
		"previous_status": result.PreviousStatus,
		"refund_amount":   result.Refund.StringFixed(2),
	})
	return result, nil
}

// Delete removes a pending or cancelled order. A pending order is refunded in
// full first; a cancelled one was already settled.
func (s *service) Delete(ctx context.Context, input ActionInput) (result *RefundResult, err error) {
	defer func() { s.metrics.ObserveOperation("purchase_order.delete", metrics.Outcome(err)) }()

	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	err = db.RunWithRetry(ctx, s.tx, s.policy, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		result = &RefundResult{Order: order, PreviousStatus: order.Status, Refund: decimal.Zero}

		switch order.Status {
		case enums.PurchaseOrderStatusPending:
			txn, refund, err := s.refund(ctx, tx, order, input)
			if err != nil {
				return err
			}
			result.Refund, result.Transaction = refund, txn
		case enums.PurchaseOrderStatusCancelled:
		default:
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "only pending or cancelled orders can be deleted").
				WithDetails(map[string]any{"status": order.Status})
		}

		if err := s.repo.WithTx(tx).Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase order")
		}

		return s.emit(ctx, tx, enums.EventPurchaseOrderDeleted, order.ID, input.ActorUserID, input.ActorRole,
			payloads.PurchaseOrderDeletedEvent{
				OrderID:        order.ID,
				WalletID:       order.WalletID,
				PreviousStatus: result.PreviousStatus,
				RefundAmount:   result.Refund,
			})
	})
	if err != nil {
		return nil, db.TranslateTxError(err, "delete purchase order")
	}

	s.record(ctx, enums.ActivityDelete, result.Order, input.ActorUserID, map[string]any{
		"previous_status": result.PreviousStatus,
		"refund_amount":   result.Refund.StringFixed(2),
	})
	return result, nil
}

// refund credits the unreceived share of the order back to its wallet at the
// locked rate. Nothing is written when the amount rounds to zero.
func (s *service) refund(ctx context.Context, tx *gorm.DB, order *models.PurchaseOrder, input ActionInput) (*models.WalletTransaction, decimal.Decimal, error) {
	wallet, err := s.lockWallet(ctx, tx, order.WalletID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	amount, err := refundAmount(order, wallet.Currency)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !amount.IsPositive() {
		return nil, decimal.Zero, nil
	}
	txn, err := s.wallets.Credit(ctx, tx, wallets.Posting{
		WalletID:      wallet.ID,
		Amount:        amount,
		ReferenceType: enums.WalletReferenceOrder,
		ReferenceID:   &order.ID,
		Description:   "Refund for " + OrderName(order.ID),
		ActorUserID:   input.ActorUserID,
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return txn, amount, nil
}
