package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TxType string

const (
	TxTypeTopup         TxType = "topup"
	TxTypeWithdraw      TxType = "withdraw"
	TxTypePaySalary     TxType = "pay_salary"
	TxTypePayMembership TxType = "pay_membership"
	TxTypeOrderPayment  TxType = "order_payment"
)

type TxStatus string

const (
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
)

// Transaction is one immutable ledger entry. At least one of FromWalletID
// and ToWalletID is set: a pure topup has no source, a pure withdrawal has
// no destination, a transfer has both. Entries are never updated or
// deleted after insert.
type Transaction struct {
	ID             uuid.UUID
	FromWalletID   *uuid.UUID
	ToWalletID     *uuid.UUID
	AmountCents    int64
	Status         TxStatus
	Type           TxType
	IdempotencyKey *string
	RefID          *string
	Metadata       json.RawMessage

	// Balances of the involved wallets as of this entry's commit, kept so
	// an idempotent replay can return the originally recorded result.
	FromBalanceAfter *int64
	ToBalanceAfter   *int64

	CreatedAt time.Time
}
