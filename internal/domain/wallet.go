package domain

import (
	"time"

	"github.com/google/uuid"
)

type OwnerKind string

const (
	OwnerKindCompany  OwnerKind = "company"
	OwnerKindDriver   OwnerKind = "driver"
	OwnerKindRider    OwnerKind = "rider"
	OwnerKindPlatform OwnerKind = "platform"
)

func (k OwnerKind) IsValid() bool {
	switch k {
	case OwnerKindCompany, OwnerKindDriver, OwnerKindRider, OwnerKindPlatform:
		return true
	}
	return false
}

// DefaultLowBalanceThreshold is the threshold assigned to lazily created
// wallets, in cents.
const DefaultLowBalanceThreshold int64 = 10000

// Wallet holds the balance for one owner. There is exactly one wallet per
// (OwnerKind, OwnerRefID) pair and its balance never goes below zero.
// Balances are mutated only by the settlement engine.
type Wallet struct {
	ID                  uuid.UUID
	OwnerKind           OwnerKind
	OwnerRefID          string
	BalanceCents        int64
	LowBalanceThreshold int64
	Version             int64
	UpdatedAt           time.Time
}

// BelowThreshold reports whether the balance has dropped under the
// configured low-balance mark.
func (w *Wallet) BelowThreshold() bool {
	return w.BalanceCents < w.LowBalanceThreshold
}
