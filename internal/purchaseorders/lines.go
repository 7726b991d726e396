package purchaseorders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/internal/catalog"
	"github.com/angelmondragon/retailops-backend/internal/currency"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// validateLines checks the request shape. Catalog existence is checked later
// inside the transaction.
func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidLineItems, "at least one line item is required")
	}
	for i, line := range lines {
		var problem string
		switch {
		case line.ItemID == uuid.Nil:
			problem = "item_id is required"
		case line.Quantity <= 0:
			problem = "quantity must be greater than zero"
		case line.UnitCost.IsNegative():
			problem = "unit_cost cannot be negative"
		case !currency.FitsStoredScale(line.UnitCost):
			problem = "unit_cost allows at most 4 decimal places"
		}
		if problem != "" {
			return pkgerrors.New(pkgerrors.CodeInvalidLineItems, fmt.Sprintf("line %d: %s", i, problem)).
				WithDetails(map[string]any{"line": i, "reason": problem})
		}
	}
	return nil
}

// buildLines resolves every line against the catalog and returns the rows to
// insert together with the order total.
func buildLines(ctx context.Context, items catalog.ItemCatalog, input []LineInput) ([]models.PurchaseOrderLine, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(input))
	for _, line := range input {
		ids = append(ids, line.ItemID)
	}
	found, err := items.FindItems(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup items")
	}

	var missing []string
	lines := make([]models.PurchaseOrderLine, 0, len(input))
	total := decimal.Zero
	for _, line := range input {
		item, ok := found[line.ItemID]
		if !ok {
			missing = append(missing, line.ItemID.String())
			continue
		}
		subtotal := line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(subtotal)
		lines = append(lines, models.PurchaseOrderLine{
			ItemID:   line.ItemID,
			ItemName: item.Name,
			Quantity: line.Quantity,
			UnitCost: line.UnitCost,
			Subtotal: subtotal,
		})
	}
	if len(missing) > 0 {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeInvalidLineItems, "unknown items in order").
			WithDetails(map[string]any{"missing_item_ids": missing})
	}
	return lines, total, nil
}

// syncItemCosts writes each line's unit cost back as the item's master cost.
// The USD purchase price uses the order's locked rate.
func syncItemCosts(ctx context.Context, items catalog.ItemCatalog, tx *gorm.DB, lines []models.PurchaseOrderLine, cur enums.Currency, rate decimal.Decimal) error {
	scoped := items.WithTx(tx)
	for _, line := range lines {
		usd, err := currency.ConvertMoney(line.UnitCost, cur, enums.CurrencyUSD, rate)
		if err != nil {
			return err
		}
		if err := scoped.UpdateCost(ctx, line.ItemID, catalog.CostUpdate{
			UnitCost:         line.UnitCost,
			Currency:         cur,
			PurchasePriceUSD: usd,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync item cost")
		}
	}
	return nil
}

// unreceivedFraction is the share of ordered units not yet received, taken
// across all lines at once.
func unreceivedFraction(lines []models.PurchaseOrderLine) decimal.Decimal {
	ordered, received := 0, 0
	for _, line := range lines {
		ordered += line.Quantity
		received += line.QuantityReceived
	}
	if ordered == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(ordered - received)).Div(decimal.NewFromInt(int64(ordered)))
}

// refundAmount converts the unreceived share of the order total into the
// wallet currency at the rate locked on the order.
func refundAmount(order *models.PurchaseOrder, walletCurrency enums.Currency) (decimal.Decimal, error) {
	base := order.TotalAmount.Mul(unreceivedFraction(order.Lines))
	return currency.ConvertMoney(base, order.Currency, walletCurrency, order.ExchangeRate)
}
