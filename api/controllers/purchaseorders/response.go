package purchaseorders

import (
	"time"

	"github.com/google/uuid"

	internalpo "github.com/angelmondragon/retailops-backend/internal/purchaseorders"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/retailops-backend/pkg/types"
)

type lineResponse struct {
	ID               uuid.UUID `json:"id"`
	ItemID           uuid.UUID `json:"item_id"`
	ItemName         string    `json:"item_name"`
	Quantity         int       `json:"quantity"`
	QuantityReceived int       `json:"quantity_received"`
	Remaining        int       `json:"remaining"`
	UnitCost         string    `json:"unit_cost"`
	Subtotal         string    `json:"subtotal"`
}

type orderResponse struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	WalletID        uuid.UUID      `json:"wallet_id"`
	LocationID      uuid.UUID      `json:"location_id"`
	LocationName    string         `json:"location_name,omitempty"`
	SupplierID      *uuid.UUID     `json:"supplier_id,omitempty"`
	SupplierName    string         `json:"supplier_name,omitempty"`
	Currency        string         `json:"currency"`
	ExchangeRate    string         `json:"exchange_rate"`
	TotalAmount     string         `json:"total_amount"`
	WalletAmount    string         `json:"wallet_amount"`
	Status          string         `json:"status"`
	Notes           *string        `json:"notes,omitempty"`
	ExpectedArrival *time.Time     `json:"expected_arrival,omitempty"`
	CreatedBy       *uuid.UUID     `json:"created_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
	Lines           []lineResponse `json:"lines,omitempty"`
}

type receiveResponse struct {
	Order    orderResponse           `json:"order"`
	Received []payloads.ReceivedLine `json:"received"`
}

type refundResponse struct {
	Order          orderResponse `json:"order"`
	PreviousStatus string        `json:"previous_status"`
	Refund         string        `json:"refund"`
	TransactionID  *uuid.UUID    `json:"transaction_id,omitempty"`
}

func toOrderResponse(o *models.PurchaseOrder) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		Name:            internalpo.OrderName(o.ID),
		WalletID:        o.WalletID,
		LocationID:      o.LocationID,
		SupplierID:      o.SupplierID,
		Currency:        string(o.Currency),
		ExchangeRate:    o.ExchangeRate.String(),
		TotalAmount:     o.TotalAmount.StringFixed(2),
		WalletAmount:    o.WalletAmount.StringFixed(2),
		Status:          string(o.Status),
		Notes:           o.Notes,
		ExpectedArrival: o.ExpectedArrival,
		CreatedBy:       o.CreatedBy,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CancelledAt:     o.CancelledAt,
	}
	for _, line := range o.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:               line.ID,
			ItemID:           line.ItemID,
			ItemName:         line.ItemName,
			Quantity:         line.Quantity,
			QuantityReceived: line.QuantityReceived,
			Remaining:        line.Remaining(),
			UnitCost:         line.UnitCost.StringFixed(2),
			Subtotal:         line.Subtotal.StringFixed(2),
		})
	}
	return resp
}

func toDetailResponse(detail *internalpo.OrderDetail) orderResponse {
	resp := toOrderResponse(detail.Order)
	resp.LocationName = detail.LocationName
	resp.SupplierName = detail.SupplierName
	return resp
}

func toOrderPage(page *types.CursorPage[models.PurchaseOrder]) types.CursorPage[orderResponse] {
	out := types.CursorPage[orderResponse]{
		Items:      make([]orderResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Items {
		out.Items = append(out.Items, toOrderResponse(&page.Items[i]))
	}
	return out
}

func toRefundResponse(result *internalpo.RefundResult) refundResponse {
	resp := refundResponse{
		Order:          toOrderResponse(result.Order),
		PreviousStatus: string(result.PreviousStatus),
		Refund:         result.Refund.StringFixed(2),
	}
	if result.Transaction != nil {
		resp.TransactionID = &result.Transaction.ID
	}
	return resp
}
