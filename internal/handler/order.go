package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/service/settlement"
)

type orderSettlement interface {
	ConfirmOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID) (*settlement.OrderCompletionResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

type OrderHandler struct {
	settlements orderSettlement
}

func NewOrderHandler(settlements orderSettlement) *OrderHandler {
	return &OrderHandler{settlements: settlements}
}

type OrderResponse struct {
	ID          uuid.UUID `json:"id"`
	RiderUserID uuid.UUID `json:"rider_user_id"`
	CompanyID   uuid.UUID `json:"company_id"`
	PriceCents  int64     `json:"price_cents"`
	Price       string    `json:"price"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		RiderUserID: o.RiderUserID,
		CompanyID:   o.CompanyID,
		PriceCents:  o.PriceCents,
		Price:       domain.Cents(o.PriceCents).String(),
		Status:      string(o.Status),
		UpdatedAt:   o.UpdatedAt,
	}
}

type OrderCompletionResponse struct {
	Order            OrderResponse `json:"order"`
	TransactionID    uuid.UUID     `json:"transaction_id"`
	RiderBalance     *int64        `json:"rider_balance_cents,omitempty"`
	CompanyBalance   *int64        `json:"company_balance_cents,omitempty"`
	AlreadyCompleted bool          `json:"already_completed"`
}

func orderIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "orderID", Message: "must be a UUID"}})
		return uuid.Nil, false
	}
	return id, true
}

// Confirm handles POST /api/v1/orders/{orderID}/confirm.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	order, err := h.settlements.ConfirmOrder(r.Context(), orderID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toOrderResponse(order))
}

// Complete handles POST /api/v1/orders/{orderID}/complete.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	res, err := h.settlements.CompleteOrder(r.Context(), orderID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, OrderCompletionResponse{
		Order:            toOrderResponse(res.Order),
		TransactionID:    res.Transaction.ID,
		RiderBalance:     res.RiderBalance,
		CompanyBalance:   res.CompanyBalance,
		AlreadyCompleted: res.AlreadyCompleted,
	})
}

// Cancel handles POST /api/v1/orders/{orderID}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	order, err := h.settlements.CancelOrder(r.Context(), orderID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toOrderResponse(order))
}
