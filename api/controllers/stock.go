package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/api/responses"
	"github.com/angelmondragon/retailops-backend/api/validators"
	"github.com/angelmondragon/retailops-backend/internal/stock"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

type stockLevelResponse struct {
	ItemID    uuid.UUID `json:"item_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationStock lists on-hand quantities at a location.
func LocationStock(ledger stock.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := validators.ParseUUIDParam(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := ledger.ListByLocation(r.Context(), locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]stockLevelResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, stockLevelResponse{
				ItemID:    row.ItemID,
				Quantity:  row.Quantity,
				UpdatedAt: row.UpdatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
