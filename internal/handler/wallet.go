package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/service"
	"github.com/ridemarket/backend/internal/service/settlement"
)

type walletService interface {
	GetOrCreateWallet(ctx context.Context, kind domain.OwnerKind, ownerRefID string) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, page, size int) (*service.Page[domain.Transaction], error)
}

type walletSettlement interface {
	Topup(ctx context.Context, req settlement.TopupRequest) (*settlement.TransferResult, error)
	Withdraw(ctx context.Context, req settlement.WithdrawRequest) (*settlement.TransferResult, error)
}

type WalletHandler struct {
	wallets     walletService
	settlements walletSettlement
}

func NewWalletHandler(wallets walletService, settlements walletSettlement) *WalletHandler {
	return &WalletHandler{wallets: wallets, settlements: settlements}
}

type WalletResponse struct {
	ID                  uuid.UUID `json:"id"`
	OwnerKind           string    `json:"owner_kind"`
	OwnerRefID          string    `json:"owner_ref_id"`
	BalanceCents        int64     `json:"balance_cents"`
	Balance             string    `json:"balance"`
	LowBalanceThreshold int64     `json:"low_balance_threshold"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:                  w.ID,
		OwnerKind:           string(w.OwnerKind),
		OwnerRefID:          w.OwnerRefID,
		BalanceCents:        w.BalanceCents,
		Balance:             domain.Cents(w.BalanceCents).String(),
		LowBalanceThreshold: w.LowBalanceThreshold,
		UpdatedAt:           w.UpdatedAt,
	}
}

type TransferResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amount_cents"`
	Amount        string    `json:"amount"`
	FromBalance   *int64    `json:"from_balance_cents,omitempty"`
	ToBalance     *int64    `json:"to_balance_cents,omitempty"`
	Replayed      bool      `json:"replayed"`
}

func toTransferResponse(res *settlement.TransferResult) TransferResponse {
	return TransferResponse{
		TransactionID: res.Transaction.ID,
		Type:          string(res.Transaction.Type),
		AmountCents:   res.Transaction.AmountCents,
		Amount:        domain.Cents(res.Transaction.AmountCents).String(),
		FromBalance:   res.FromBalance,
		ToBalance:     res.ToBalance,
		Replayed:      res.Replayed,
	}
}

// GetOrCreate handles GET /api/v1/wallets/{kind}/{ownerID}.
func (h *WalletHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	kind := domain.OwnerKind(r.PathValue("kind"))
	ownerID := r.PathValue("ownerID")

	wallet, err := h.wallets.GetOrCreateWallet(r.Context(), kind, ownerID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toWalletResponse(wallet))
}

type moveMoneyRequest struct {
	AmountCents    int64   `json:"amount_cents"`
	IdempotencyKey *string `json:"idempotency_key"`
}

func (req *moveMoneyRequest) validate() []FieldError {
	var errs []FieldError
	if req.AmountCents <= 0 {
		errs = append(errs, FieldError{Field: "amount_cents", Message: "must be greater than zero"})
	}
	return errs
}

// Topup handles POST /api/v1/wallets/{kind}/{ownerID}/topup.
func (h *WalletHandler) Topup(w http.ResponseWriter, r *http.Request) {
	var req moveMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	res, err := h.settlements.Topup(r.Context(), settlement.TopupRequest{
		OwnerKind:      domain.OwnerKind(r.PathValue("kind")),
		OwnerRefID:     r.PathValue("ownerID"),
		AmountCents:    req.AmountCents,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toTransferResponse(res))
}

// Withdraw handles POST /api/v1/wallets/{kind}/{ownerID}/withdraw.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req moveMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	res, err := h.settlements.Withdraw(r.Context(), settlement.WithdrawRequest{
		OwnerKind:      domain.OwnerKind(r.PathValue("kind")),
		OwnerRefID:     r.PathValue("ownerID"),
		AmountCents:    req.AmountCents,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toTransferResponse(res))
}

// ListTransactions handles GET /api/v1/wallets/{walletID}/transactions.
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	walletID, err := uuid.Parse(r.PathValue("walletID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "walletID", Message: "must be a UUID"}})
		return
	}

	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 10)

	result, err := h.wallets.ListTransactions(r.Context(), walletID, page, size)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, result)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
