package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailops-backend/api/middleware"
	"github.com/angelmondragon/retailops-backend/api/responses"
	"github.com/angelmondragon/retailops-backend/api/validators"
	"github.com/angelmondragon/retailops-backend/internal/exchangerates"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

type setRateRequest struct {
	SRDPerUSD decimal.Decimal `json:"srd_per_usd"`
	Source    string          `json:"source" validate:"max=64"`
}

type rateResponse struct {
	ID          uuid.UUID  `json:"id"`
	SRDPerUSD   string     `json:"srd_per_usd"`
	Source      string     `json:"source"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toRateResponse(row *models.ExchangeRate) rateResponse {
	return rateResponse{
		ID:          row.ID,
		SRDPerUSD:   row.SRDPerUSD.String(),
		Source:      row.Source,
		ActorUserID: row.ActorUserID,
		CreatedAt:   row.CreatedAt,
	}
}

// CurrentExchangeRate returns the rate new purchase orders will lock.
func CurrentExchangeRate(svc exchangerates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rate, err := svc.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rate)
	}
}

func ExchangeRateHistory(svc exchangerates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.History(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]rateResponse, 0, len(rows))
		for i := range rows {
			out = append(out, toRateResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// SetExchangeRate records a new SRD-per-USD rate. Existing orders keep the
// rate they locked.
func SetExchangeRate(svc exchangerates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setRateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Set(r.Context(), exchangerates.SetRateInput{
			SRDPerUSD:   req.SRDPerUSD,
			Source:      validators.SanitizeString(req.Source, 64),
			ActorUserID: middleware.ActorFromContext(r.Context()),
			ActorRole:   middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toRateResponse(row))
	}
}
