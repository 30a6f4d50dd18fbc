package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/service/settlement"
)

type mockOrderSettlement struct {
	confirmFn  func(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	completeFn func(ctx context.Context, orderID uuid.UUID) (*settlement.OrderCompletionResult, error)
	cancelFn   func(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

func (m *mockOrderSettlement) ConfirmOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return m.confirmFn(ctx, orderID)
}

func (m *mockOrderSettlement) CompleteOrder(ctx context.Context, orderID uuid.UUID) (*settlement.OrderCompletionResult, error) {
	return m.completeFn(ctx, orderID)
}

func (m *mockOrderSettlement) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return m.cancelFn(ctx, orderID)
}

func testOrder(id uuid.UUID, status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:          id,
		RiderUserID: uuid.New(),
		CompanyID:   uuid.New(),
		PriceCents:  5000,
		Status:      status,
		UpdatedAt:   time.Now(),
	}
}

func doOrderRequest(h http.HandlerFunc, orderID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/x", orderID), nil)
	req.SetPathValue("orderID", orderID)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestOrderComplete_Success(t *testing.T) {
	orderID := uuid.New()
	txID := uuid.New()
	riderBalance := int64(5000)
	companyBalance := int64(5000)

	h := NewOrderHandler(&mockOrderSettlement{
		completeFn: func(_ context.Context, id uuid.UUID) (*settlement.OrderCompletionResult, error) {
			assert.Equal(t, orderID, id)
			return &settlement.OrderCompletionResult{
				Order:          testOrder(id, domain.OrderStatusCompleted),
				Transaction:    &domain.Transaction{ID: txID},
				RiderBalance:   &riderBalance,
				CompanyBalance: &companyBalance,
			}, nil
		},
	})

	rec := doOrderRequest(h.Complete, orderID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	require.Nil(t, resp.Error)

	data := resp.Data.(map[string]any)
	assert.Equal(t, txID.String(), data["transaction_id"])
	assert.Equal(t, false, data["already_completed"])
	assert.Equal(t, float64(5000), data["rider_balance_cents"])

	order := data["order"].(map[string]any)
	assert.Equal(t, "completed", order["status"])
	assert.Equal(t, "50.00", order["price"])
}

func TestOrderComplete_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"cancelled order", fmt.Errorf("completeOrderOnce: %w", domain.ErrOrderCancelled), http.StatusConflict, "ORDER_CANCELLED"},
		{"unknown order", domain.ErrNotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewOrderHandler(&mockOrderSettlement{
				completeFn: func(context.Context, uuid.UUID) (*settlement.OrderCompletionResult, error) {
					return nil, tc.err
				},
			})

			rec := doOrderRequest(h.Complete, uuid.NewString())
			require.Equal(t, tc.wantStatus, rec.Code)

			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestOrderConfirm_Success(t *testing.T) {
	orderID := uuid.New()
	h := NewOrderHandler(&mockOrderSettlement{
		confirmFn: func(_ context.Context, id uuid.UUID) (*domain.Order, error) {
			return testOrder(id, domain.OrderStatusInProgress), nil
		},
	})

	rec := doOrderRequest(h.Confirm, orderID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "in_progress", data["status"])
}

func TestOrderCancel_AlreadyCompleted(t *testing.T) {
	h := NewOrderHandler(&mockOrderSettlement{
		cancelFn: func(context.Context, uuid.UUID) (*domain.Order, error) {
			return nil, fmt.Errorf("CancelOrder: %w", domain.ErrOrderCompleted)
		},
	})

	rec := doOrderRequest(h.Cancel, uuid.NewString())
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ORDER_COMPLETED", decodeResponse(t, rec).Error.Code)
}

func TestOrderHandlers_InvalidID(t *testing.T) {
	h := NewOrderHandler(&mockOrderSettlement{})

	for name, fn := range map[string]http.HandlerFunc{
		"confirm":  h.Confirm,
		"complete": h.Complete,
		"cancel":   h.Cancel,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doOrderRequest(fn, "not-a-uuid")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_FAILED", decodeResponse(t, rec).Error.Code)
		})
	}
}
