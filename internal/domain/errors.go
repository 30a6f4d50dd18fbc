package domain

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInvalidOwnerKind        = errors.New("invalid wallet owner kind")
	ErrInvalidTransfer         = errors.New("invalid transfer endpoints")
	ErrNotEmployed             = errors.New("driver is not employed by this company")
	ErrInvalidPlan             = errors.New("invalid membership plan")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrVersionConflict         = errors.New("optimistic lock conflict")
	ErrInvalidRequest          = errors.New("invalid request")
)

// Order state machine errors. The terminal-state errors wrap
// ErrInvalidState so callers can match either the broad class or the
// specific reason.
var (
	ErrInvalidState   = errors.New("order transition not permitted from current state")
	ErrOrderCompleted = wrapped{msg: "order already completed", base: ErrInvalidState}
	ErrOrderCancelled = wrapped{msg: "order already cancelled", base: ErrInvalidState}
)

type wrapped struct {
	msg  string
	base error
}

func (w wrapped) Error() string { return w.msg }
func (w wrapped) Unwrap() error { return w.base }
