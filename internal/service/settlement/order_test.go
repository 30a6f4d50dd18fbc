package settlement_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/service/settlement"
	"github.com/ridemarket/backend/internal/testutil"
)

type orderFixture struct {
	company       *domain.Company
	rider         uuid.UUID
	riderWallet   *domain.Wallet
	companyWallet *domain.Wallet
}

func seedOrderParties(t *testing.T, db *sql.DB, riderBalance int64) orderFixture {
	t.Helper()
	owner := testutil.SeedUser(t, db, "owner@test.com", "company")
	rider := testutil.SeedUser(t, db, "rider@test.com", "rider")
	company := testutil.SeedCompany(t, db, owner, "Acme Fleet")
	return orderFixture{
		company:       company,
		rider:         rider,
		riderWallet:   testutil.SeedWallet(t, db, domain.OwnerKindRider, rider.String(), riderBalance),
		companyWallet: testutil.SeedWallet(t, db, domain.OwnerKindCompany, company.ID.String(), 0),
	}
}

func TestConfirmOrder_FromPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 0)
	order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, domain.OrderStatusPending)

	updated, err := svc.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInProgress, updated.Status)
	assert.Equal(t, domain.OrderStatusInProgress, testutil.GetOrderStatus(t, db, order.ID))
}

func TestConfirmOrder_InvalidStates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 0)

	tests := []struct {
		name      string
		status    domain.OrderStatus
		wantErrIs error
	}{
		{"already completed", domain.OrderStatusCompleted, domain.ErrOrderCompleted},
		{"already cancelled", domain.OrderStatusCancelled, domain.ErrOrderCancelled},
		{"already in progress", domain.OrderStatusInProgress, domain.ErrInvalidState},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, tc.status)
			_, err := svc.ConfirmOrder(ctx, order.ID)
			require.ErrorIs(t, err, tc.wantErrIs)
			assert.Equal(t, tc.status, testutil.GetOrderStatus(t, db, order.ID))
		})
	}
}

func TestConfirmOrder_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)

	_, err := svc.ConfirmOrder(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteOrder_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 10000)
	order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, domain.OrderStatusInProgress)

	res, err := svc.CompleteOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyCompleted)
	assert.Equal(t, domain.OrderStatusCompleted, res.Order.Status)
	require.NotNil(t, res.RiderBalance)
	require.NotNil(t, res.CompanyBalance)
	assert.Equal(t, int64(5000), *res.RiderBalance)
	assert.Equal(t, int64(5000), *res.CompanyBalance)

	assert.Equal(t, int64(5000), testutil.GetWalletBalance(t, db, fx.riderWallet.ID))
	assert.Equal(t, int64(5000), testutil.GetWalletBalance(t, db, fx.companyWallet.ID))
	assert.Equal(t, domain.OrderStatusCompleted, testutil.GetOrderStatus(t, db, order.ID))

	assert.Equal(t, domain.TxTypeOrderPayment, res.Transaction.Type)
	require.NotNil(t, res.Transaction.RefID)
	assert.Equal(t, order.ID.String(), *res.Transaction.RefID)
	require.NotNil(t, res.Transaction.IdempotencyKey)
	assert.Equal(t, settlement.OrderPaymentKey(order.ID), *res.Transaction.IdempotencyKey)
	assert.Equal(t, 1, testutil.CountTransactions(t, db, fx.riderWallet.ID))
}

func TestCompleteOrder_FromPendingDirectly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 10000)
	order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 4000, domain.OrderStatusPending)

	res, err := svc.CompleteOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, res.Order.Status)
	assert.Equal(t, int64(6000), testutil.GetWalletBalance(t, db, fx.riderWallet.ID))
}

func TestCompleteOrder_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 0)
	order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, domain.OrderStatusInProgress)

	_, err := svc.CompleteOrder(ctx, order.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// No partial transition, no ledger entry.
	assert.Equal(t, domain.OrderStatusInProgress, testutil.GetOrderStatus(t, db, order.ID))
	assert.Equal(t, int64(0), testutil.GetWalletBalance(t, db, fx.riderWallet.ID))
	assert.Equal(t, int64(0), testutil.GetWalletBalance(t, db, fx.companyWallet.ID))
	assert.Equal(t, 0, testutil.CountTransactions(t, db, fx.riderWallet.ID))
}

func TestCompleteOrder_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 10000)
	order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, domain.OrderStatusInProgress)

	first, err := svc.CompleteOrder(ctx, order.ID)
	require.NoError(t, err)

	second, err := svc.CompleteOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)

	// No second charge.
	assert.Equal(t, int64(5000), testutil.GetWalletBalance(t, db, fx.riderWallet.ID))
	assert.Equal(t, int64(5000), testutil.GetWalletBalance(t, db, fx.companyWallet.ID))
	assert.Equal(t, 1, testutil.CountTransactions(t, db, fx.riderWallet.ID))
}

func TestCompleteOrder_Cancelled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 10000)
	order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, domain.OrderStatusCancelled)

	_, err := svc.CompleteOrder(ctx, order.ID)
	require.ErrorIs(t, err, domain.ErrOrderCancelled)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 0, testutil.CountTransactions(t, db, fx.riderWallet.ID))
}

func TestCompleteOrder_ConcurrentCompletions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 10000)
	order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, domain.OrderStatusInProgress)

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.CompleteOrder(ctx, order.ID)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(5000), testutil.GetWalletBalance(t, db, fx.riderWallet.ID))
	assert.Equal(t, 1, testutil.CountTransactions(t, db, fx.riderWallet.ID))
}

func TestCancelOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupSettlementService(t, db)
	ctx := context.Background()

	fx := seedOrderParties(t, db, 10000)

	order := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, domain.OrderStatusPending)
	cancelled, err := svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 0, testutil.CountTransactions(t, db, fx.riderWallet.ID))

	completed := testutil.SeedOrder(t, db, fx.rider, fx.company.ID, 5000, domain.OrderStatusCompleted)
	_, err = svc.CancelOrder(ctx, completed.ID)
	require.ErrorIs(t, err, domain.ErrOrderCompleted)

	_, err = svc.CancelOrder(ctx, order.ID)
	require.ErrorIs(t, err, domain.ErrOrderCancelled)
}
