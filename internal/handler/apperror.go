package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrForbidden        = &AppError{http.StatusForbidden, "FORBIDDEN", "Not allowed for this account"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount    = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidOwnerKind = &AppError{http.StatusBadRequest, "INVALID_OWNER_KIND", "Unknown wallet owner kind"}
	ErrInvalidPlan      = &AppError{http.StatusBadRequest, "INVALID_PLAN", "Unknown membership plan"}

	ErrInsufficientFunds = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrNotEmployed       = &AppError{http.StatusUnprocessableEntity, "NOT_EMPLOYED", "Driver is not employed by this company"}

	ErrOrderCompleted = &AppError{http.StatusConflict, "ORDER_COMPLETED", "Order already completed"}
	ErrOrderCancelled = &AppError{http.StatusConflict, "ORDER_CANCELLED", "Order already cancelled"}
	ErrInvalidState   = &AppError{http.StatusConflict, "INVALID_STATE", "Order transition not permitted from current state"}

	ErrVersionConflict = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
)
