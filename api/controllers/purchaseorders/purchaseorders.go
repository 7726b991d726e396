package purchaseorders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailops-backend/api/middleware"
	"github.com/angelmondragon/retailops-backend/api/responses"
	"github.com/angelmondragon/retailops-backend/api/validators"
	internalpo "github.com/angelmondragon/retailops-backend/internal/purchaseorders"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

// Create places an order and debits its wallet.
func Create(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), internalpo.CreateInput{
			WalletID:        uuid.MustParse(req.WalletID),
			LocationID:      uuid.MustParse(req.LocationID),
			SupplierID:      optionalUUID(req.SupplierID),
			Currency:        enums.Currency(req.Currency),
			Lines:           toLineInputs(req.Lines),
			Notes:           validators.SanitizeOptional(req.Notes, 2000),
			ExpectedArrival: req.ExpectedArrival,
			ActorUserID:     middleware.ActorFromContext(r.Context()),
			ActorRole:       middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}

// List pages through orders, newest first.
func List(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderPage(page))
	}
}

func Detail(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDetailResponse(detail))
	}
}

// Edit replaces the lines of a pending order.
func Edit(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req editOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Edit(r.Context(), internalpo.EditInput{
			OrderID:         orderID,
			Lines:           toLineInputs(req.Lines),
			SupplierID:      optionalUUID(req.SupplierID),
			Notes:           validators.SanitizeOptional(req.Notes, 2000),
			ExpectedArrival: req.ExpectedArrival,
			ActorUserID:     middleware.ActorFromContext(r.Context()),
			ActorRole:       middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// Advance moves an order through the manual steps pending to ordered to
// shipped.
func Advance(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req advanceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePurchaseOrderStatus(strings.TrimSpace(req.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.Advance(r.Context(), internalpo.AdvanceInput{
			OrderID:     orderID,
			Status:      status,
			ActorUserID: middleware.ActorFromContext(r.Context()),
			ActorRole:   middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// Receive books arriving quantities into stock.
func Receive(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req receiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantities, err := req.quantities()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Receive(r.Context(), internalpo.ReceiveInput{
			OrderID:     orderID,
			Quantities:  quantities,
			ActorUserID: middleware.ActorFromContext(r.Context()),
			ActorRole:   middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receiveResponse{
			Order:    toOrderResponse(result.Order),
			Received: result.Received,
		})
	}
}

// Cancel cancels an order and refunds its unreceived share.
func Cancel(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := actionInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Cancel(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRefundResponse(result))
	}
}

// Delete removes a pending or cancelled order.
func Delete(svc internalpo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := actionInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Delete(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRefundResponse(result))
	}
}

func actionInput(r *http.Request) (internalpo.ActionInput, error) {
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return internalpo.ActionInput{}, err
	}
	return internalpo.ActionInput{
		OrderID:     orderID,
		ActorUserID: middleware.ActorFromContext(r.Context()),
		ActorRole:   middleware.RoleFromContext(r.Context()),
	}, nil
}

func parseListFilter(r *http.Request) (internalpo.ListFilter, error) {
	var filter internalpo.ListFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParsePurchaseOrderStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &status
	}
	var err error
	if filter.LocationID, err = validators.ParseQueryUUID(r, "location_id"); err != nil {
		return filter, err
	}
	if filter.SupplierID, err = validators.ParseQueryUUID(r, "supplier_id"); err != nil {
		return filter, err
	}
	if filter.WalletID, err = validators.ParseQueryUUID(r, "wallet_id"); err != nil {
		return filter, err
	}
	return filter, nil
}
