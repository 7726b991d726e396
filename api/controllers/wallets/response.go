package wallets

import (
	"time"

	"github.com/google/uuid"

	internalwallets "github.com/angelmondragon/retailops-backend/internal/wallets"
	"github.com/angelmondragon/retailops-backend/pkg/db/models"
	"github.com/angelmondragon/retailops-backend/pkg/types"
)

type walletResponse struct {
	ID             uuid.UUID `json:"id"`
	LocationID     uuid.UUID `json:"location_id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Currency       string    `json:"currency"`
	InitialBalance string    `json:"initial_balance"`
	Balance        string    `json:"balance"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type transactionResponse struct {
	ID            uuid.UUID  `json:"id"`
	WalletID      uuid.UUID  `json:"wallet_id"`
	Type          string     `json:"type"`
	Amount        string     `json:"amount"`
	BalanceBefore string     `json:"balance_before"`
	BalanceAfter  string     `json:"balance_after"`
	Currency      string     `json:"currency"`
	Description   string     `json:"description"`
	ReferenceType string     `json:"reference_type"`
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty"`
	TransferID    *uuid.UUID `json:"transfer_id,omitempty"`
	ActorUserID   *uuid.UUID `json:"actor_user_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type manualTransactionResponse struct {
	Wallet      walletResponse       `json:"wallet"`
	Transaction *transactionResponse `json:"transaction"`
}

type transferResponse struct {
	TransferID uuid.UUID           `json:"transfer_id"`
	From       walletResponse      `json:"from"`
	To         walletResponse      `json:"to"`
	Debit      transactionResponse `json:"debit"`
	Credit     transactionResponse `json:"credit"`
}

func toWalletResponse(w *models.Wallet) walletResponse {
	return walletResponse{
		ID:             w.ID,
		LocationID:     w.LocationID,
		Name:           w.Name,
		Type:           string(w.Type),
		Currency:       string(w.Currency),
		InitialBalance: w.InitialBalance.StringFixed(2),
		Balance:        w.Balance.StringFixed(2),
		Version:        w.Version,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

func toWalletResponses(list []models.Wallet) []walletResponse {
	out := make([]walletResponse, 0, len(list))
	for i := range list {
		out = append(out, toWalletResponse(&list[i]))
	}
	return out
}

func toTransactionResponse(t *models.WalletTransaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		WalletID:      t.WalletID,
		Type:          string(t.Type),
		Amount:        t.Amount.StringFixed(2),
		BalanceBefore: t.BalanceBefore.StringFixed(2),
		BalanceAfter:  t.BalanceAfter.StringFixed(2),
		Currency:      string(t.Currency),
		Description:   t.Description,
		ReferenceType: string(t.ReferenceType),
		ReferenceID:   t.ReferenceID,
		TransferID:    t.TransferID,
		ActorUserID:   t.ActorUserID,
		CreatedAt:     t.CreatedAt,
	}
}

func toTransactionPage(page *types.CursorPage[models.WalletTransaction]) types.CursorPage[transactionResponse] {
	out := types.CursorPage[transactionResponse]{
		Items:      make([]transactionResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Items {
		out.Items = append(out.Items, toTransactionResponse(&page.Items[i]))
	}
	return out
}

func toManualTransactionResponse(result *internalwallets.ManualTransactionResult) manualTransactionResponse {
	resp := manualTransactionResponse{Wallet: toWalletResponse(result.Wallet)}
	if result.Transaction != nil {
		txn := toTransactionResponse(result.Transaction)
		resp.Transaction = &txn
	}
	return resp
}

func toTransferResponse(result *internalwallets.TransferResult) transferResponse {
	return transferResponse{
		TransferID: result.TransferID,
		From:       toWalletResponse(result.From),
		To:         toWalletResponse(result.To),
		Debit:      toTransactionResponse(result.Debit),
		Credit:     toTransactionResponse(result.Credit),
	}
}
