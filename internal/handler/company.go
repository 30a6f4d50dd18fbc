package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/service/settlement"
)

type companySettlement interface {
	PaySalary(ctx context.Context, req settlement.PaySalaryRequest) (*settlement.TransferResult, error)
	PayMembership(ctx context.Context, req settlement.PayMembershipRequest) (*settlement.TransferResult, error)
}

type CompanyHandler struct {
	settlements companySettlement
}

func NewCompanyHandler(settlements companySettlement) *CompanyHandler {
	return &CompanyHandler{settlements: settlements}
}

type paySalaryRequest struct {
	DriverUserID   string  `json:"driver_user_id"`
	AmountCents    int64   `json:"amount_cents"`
	Period         string  `json:"period"`
	IdempotencyKey *string `json:"idempotency_key"`
}

// PaySalary handles POST /api/v1/companies/{companyID}/pay-salary.
func (h *CompanyHandler) PaySalary(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(r.PathValue("companyID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "companyID", Message: "must be a UUID"}})
		return
	}

	var req paySalaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var errs []FieldError
	driverUserID, err := uuid.Parse(req.DriverUserID)
	if err != nil {
		errs = append(errs, FieldError{Field: "driver_user_id", Message: "must be a UUID"})
	}
	if req.AmountCents <= 0 {
		errs = append(errs, FieldError{Field: "amount_cents", Message: "must be greater than zero"})
	}
	if req.Period == "" {
		errs = append(errs, FieldError{Field: "period", Message: "required"})
	}
	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	res, err := h.settlements.PaySalary(r.Context(), settlement.PaySalaryRequest{
		CompanyID:      companyID,
		DriverUserID:   driverUserID,
		AmountCents:    req.AmountCents,
		Period:         req.Period,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toTransferResponse(res))
}

type payMembershipRequest struct {
	Plan           string  `json:"plan"`
	AmountCents    int64   `json:"amount_cents"`
	IdempotencyKey *string `json:"idempotency_key"`
}

// PayMembership handles POST /api/v1/companies/{companyID}/pay-membership.
func (h *CompanyHandler) PayMembership(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(r.PathValue("companyID"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "companyID", Message: "must be a UUID"}})
		return
	}

	var req payMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var errs []FieldError
	if req.Plan == "" {
		errs = append(errs, FieldError{Field: "plan", Message: "required"})
	}
	if req.AmountCents <= 0 {
		errs = append(errs, FieldError{Field: "amount_cents", Message: "must be greater than zero"})
	}
	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	res, err := h.settlements.PayMembership(r.Context(), settlement.PayMembershipRequest{
		CompanyID:      companyID,
		Plan:           domain.MembershipPlan(req.Plan),
		AmountCents:    req.AmountCents,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toTransferResponse(res))
}
