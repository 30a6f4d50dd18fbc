package domain

import (
	"time"

	"github.com/google/uuid"
)

type MembershipPlan string

const (
	MembershipFree    MembershipPlan = "free"
	MembershipBasic   MembershipPlan = "basic"
	MembershipPremium MembershipPlan = "premium"
)

func (p MembershipPlan) IsValid() bool {
	switch p {
	case MembershipFree, MembershipBasic, MembershipPremium:
		return true
	}
	return false
}

// MembershipExtension is how much one paid renewal adds to a company's
// membership expiry.
const MembershipExtension = 30 * 24 * time.Hour

type Company struct {
	ID                  uuid.UUID
	OwnerUserID         uuid.UUID
	Name                string
	Membership          MembershipPlan
	MembershipExpiresAt *time.Time
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NextMembershipExpiry stacks a renewal on top of the current expiry:
// sequential renewals extend rather than overlap-reset. An expired or
// unset expiry extends from now.
func (c *Company) NextMembershipExpiry(now time.Time) time.Time {
	base := now
	if c.MembershipExpiresAt != nil && c.MembershipExpiresAt.After(now) {
		base = *c.MembershipExpiresAt
	}
	return base.Add(MembershipExtension)
}

// EmploymentRelation links a driver to a company. Created by the
// invitation/application workflow, consumed here by payroll.
type EmploymentRelation struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	DriverUserID    uuid.UUID
	BaseSalaryCents int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
