package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextMembershipExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unset expiry extends from now", func(t *testing.T) {
		c := &Company{}
		assert.Equal(t, now.Add(MembershipExtension), c.NextMembershipExpiry(now))
	})

	t.Run("expired membership extends from now", func(t *testing.T) {
		past := now.Add(-24 * time.Hour)
		c := &Company{MembershipExpiresAt: &past}
		assert.Equal(t, now.Add(MembershipExtension), c.NextMembershipExpiry(now))
	})

	t.Run("active membership stacks on current expiry", func(t *testing.T) {
		future := now.Add(10 * 24 * time.Hour)
		c := &Company{MembershipExpiresAt: &future}
		assert.Equal(t, future.Add(MembershipExtension), c.NextMembershipExpiry(now))
	})
}

func TestMembershipPlanIsValid(t *testing.T) {
	assert.True(t, MembershipBasic.IsValid())
	assert.True(t, MembershipPremium.IsValid())
	assert.False(t, MembershipPlan("gold").IsValid())
	assert.False(t, MembershipPlan("").IsValid())
}

func TestCentsString(t *testing.T) {
	assert.Equal(t, "50.00", Cents(5000).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-1.25", Cents(-125).String())
	assert.Equal(t, "0.00", Cents(0).String())
}
