package wallets

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailops-backend/api/middleware"
	"github.com/angelmondragon/retailops-backend/api/responses"
	"github.com/angelmondragon/retailops-backend/api/validators"
	internalwallets "github.com/angelmondragon/retailops-backend/internal/wallets"
	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

type createWalletRequest struct {
	LocationID     string          `json:"location_id" validate:"required,uuid"`
	Name           string          `json:"name" validate:"required,max=120"`
	Type           string          `json:"type" validate:"required,oneof=cash bank"`
	Currency       string          `json:"currency" validate:"required,currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type manualTransactionRequest struct {
	Type        string          `json:"type" validate:"required,oneof=add remove correct"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

type transferRequest struct {
	FromWalletID string          `json:"from_wallet_id" validate:"required,uuid"`
	ToWalletID   string          `json:"to_wallet_id" validate:"required,uuid"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description" validate:"max=500"`
}

// Create opens a wallet for a location.
func Create(svc internalwallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createWalletRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := svc.CreateWallet(r.Context(), internalwallets.CreateWalletInput{
			LocationID:     uuid.MustParse(req.LocationID),
			Name:           validators.SanitizeString(req.Name, 120),
			Type:           enums.WalletType(req.Type),
			Currency:       enums.Currency(req.Currency),
			InitialBalance: req.InitialBalance,
			ActorUserID:    middleware.ActorFromContext(r.Context()),
			ActorRole:      middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toWalletResponse(wallet))
	}
}

// List returns wallets, optionally filtered by location and currency.
func List(svc internalwallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locationID, err := validators.ParseQueryUUID(r, "location_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := internalwallets.ListFilter{LocationID: locationID}
		if raw := strings.TrimSpace(r.URL.Query().Get("currency")); raw != "" {
			cur, err := enums.ParseCurrency(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency filter"))
				return
			}
			filter.Currency = &cur
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWalletResponses(list))
	}
}

func Detail(svc internalwallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID, err := validators.ParseUUIDParam(r, "walletId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.Get(r.Context(), walletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWalletResponse(wallet))
	}
}

// Transactions pages through a wallet's history, newest first.
func Transactions(svc internalwallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID, err := validators.ParseUUIDParam(r, "walletId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListTransactions(r.Context(), walletID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTransactionPage(page))
	}
}

// ManualTransaction applies an operator add, remove or correct. Corrections
// need a manager or admin.
func ManualTransaction(svc internalwallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID, err := validators.ParseUUIDParam(r, "walletId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req manualTransactionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind := enums.ManualTransactionKind(req.Type)
		role := middleware.RoleFromContext(r.Context())
		if kind == enums.ManualTransactionCorrect && !canCorrect(role) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "balance corrections require a manager or admin"))
			return
		}

		result, err := svc.ManualTransaction(r.Context(), internalwallets.ManualTransactionInput{
			WalletID:    walletID,
			Kind:        kind,
			Amount:      req.Amount,
			Description: validators.SanitizeString(req.Description, 500),
			ActorUserID: middleware.ActorFromContext(r.Context()),
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Transaction == nil {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, toManualTransactionResponse(result))
	}
}

// Transfer moves money between two wallets of the same currency.
func Transfer(svc internalwallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Transfer(r.Context(), internalwallets.TransferInput{
			FromWalletID: uuid.MustParse(req.FromWalletID),
			ToWalletID:   uuid.MustParse(req.ToWalletID),
			Amount:       req.Amount,
			Description:  validators.SanitizeString(req.Description, 500),
			ActorUserID:  middleware.ActorFromContext(r.Context()),
			ActorRole:    middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toTransferResponse(result))
	}
}

// Reconcile replays one wallet's log against its stored balance.
func Reconcile(svc internalwallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID, err := validators.ParseUUIDParam(r, "walletId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Reconcile(r.Context(), walletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func canCorrect(role string) bool {
	return role == string(enums.OperatorRoleManager) || role == string(enums.OperatorRoleAdmin)
}
