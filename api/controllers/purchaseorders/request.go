package purchaseorders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalpo "github.com/angelmondragon/retailops-backend/internal/purchaseorders"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// Line fields are checked by the engine so that bad lines surface as
// INVALID_LINE_ITEMS rather than a generic validation error.
type lineRequest struct {
	ItemID   string          `json:"item_id" validate:"omitempty,uuid"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type createOrderRequest struct {
	WalletID        string        `json:"wallet_id" validate:"required,uuid"`
	LocationID      string        `json:"location_id" validate:"required,uuid"`
	SupplierID      *string       `json:"supplier_id" validate:"omitempty,uuid"`
	Currency        string        `json:"currency" validate:"required,currency"`
	Lines           []lineRequest `json:"lines" validate:"dive"`
	Notes           *string       `json:"notes" validate:"omitempty,max=2000"`
	ExpectedArrival *time.Time    `json:"expected_arrival"`
}

type editOrderRequest struct {
	SupplierID      *string       `json:"supplier_id" validate:"omitempty,uuid"`
	Lines           []lineRequest `json:"lines" validate:"dive"`
	Notes           *string       `json:"notes" validate:"omitempty,max=2000"`
	ExpectedArrival *time.Time    `json:"expected_arrival"`
}

type advanceRequest struct {
	Status string `json:"status" validate:"required"`
}

type receiveLineRequest struct {
	LineID   string `json:"line_id" validate:"required,uuid"`
	Quantity int    `json:"quantity"`
}

type receiveRequest struct {
	Lines []receiveLineRequest `json:"lines" validate:"required,dive"`
}

func (r lineRequest) toInput() internalpo.LineInput {
	var itemID uuid.UUID
	if r.ItemID != "" {
		itemID = uuid.MustParse(r.ItemID)
	}
	return internalpo.LineInput{
		ItemID:   itemID,
		Quantity: r.Quantity,
		UnitCost: r.UnitCost,
	}
}

func toLineInputs(lines []lineRequest) []internalpo.LineInput {
	out := make([]internalpo.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.toInput())
	}
	return out
}

func optionalUUID(raw *string) *uuid.UUID {
	if raw == nil || *raw == "" {
		return nil
	}
	id := uuid.MustParse(*raw)
	return &id
}

// quantities folds the receive lines into the engine's map. A line listed
// twice is rejected instead of silently summed.
func (r receiveRequest) quantities() (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(r.Lines))
	for _, line := range r.Lines {
		id := uuid.MustParse(line.LineID)
		if _, dup := out[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line listed more than once").
				WithDetails(map[string]any{"line_id": id.String()})
		}
		out[id] = line.Quantity
	}
	return out, nil
}
