package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/repository"
	"github.com/ridemarket/backend/internal/service"
	"github.com/ridemarket/backend/internal/testutil"
)

func setupWalletService(t *testing.T, db *sql.DB) *service.WalletService {
	t.Helper()
	return service.NewWalletService(
		repository.NewWalletRepository(db),
		repository.NewTransactionRepository(db),
	)
}

func TestGetOrCreateWallet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	ownerID := uuid.New().String()

	w, err := svc.GetOrCreateWallet(ctx, domain.OwnerKindDriver, ownerID)
	require.NoError(t, err)
	assert.Equal(t, domain.OwnerKindDriver, w.OwnerKind)
	assert.Equal(t, ownerID, w.OwnerRefID)
	assert.Equal(t, int64(0), w.BalanceCents)

	// Second call returns the same wallet, not a new one.
	again, err := svc.GetOrCreateWallet(ctx, domain.OwnerKindDriver, ownerID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)
}

func TestGetOrCreateWallet_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	_, err := svc.GetOrCreateWallet(ctx, domain.OwnerKind("merchant"), uuid.New().String())
	require.ErrorIs(t, err, domain.ErrInvalidOwnerKind)

	_, err = svc.GetOrCreateWallet(ctx, domain.OwnerKindRider, "")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestGetOrCreateWallet_ConcurrentFirstReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	ownerID := uuid.New().String()

	const workers = 8
	var wg sync.WaitGroup
	wallets := make([]*domain.Wallet, workers)
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wallets[i], errs[i] = svc.GetOrCreateWallet(ctx, domain.OwnerKindCompany, ownerID)
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, wallets[0].ID, wallets[i].ID)
	}

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM wallets WHERE owner_kind = $1 AND owner_ref_id = $2`,
		domain.OwnerKindCompany, ownerID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetWallet_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)

	_, err := svc.GetWallet(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTransactions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()
	ledger := repository.NewTransactionRepository(db)

	wallet := testutil.SeedWallet(t, db, domain.OwnerKindRider, uuid.New().String(), 0)

	base := time.Now().Add(-time.Hour)
	for i := range 25 {
		tx, err := db.Begin()
		require.NoError(t, err)
		err = ledger.Append(ctx, tx, &domain.Transaction{
			ID:          uuid.New(),
			ToWalletID:  &wallet.ID,
			AmountCents: int64(100 * (i + 1)),
			Type:        domain.TxTypeTopup,
			Status:      domain.TxStatusCompleted,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	}

	page, err := svc.ListTransactions(ctx, wallet.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Size)
	assert.Equal(t, 25, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
	require.Len(t, page.Items, 10)

	// Newest first.
	assert.Equal(t, int64(2500), page.Items[0].AmountCents)

	last, err := svc.ListTransactions(ctx, wallet.ID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestListTransactions_Defaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)
	ctx := context.Background()

	wallet := testutil.SeedWallet(t, db, domain.OwnerKindRider, uuid.New().String(), 0)

	page, err := svc.ListTransactions(ctx, wallet.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Size)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)

	clamped, err := svc.ListTransactions(ctx, wallet.ID, 1, 5000)
	require.NoError(t, err)
	assert.Equal(t, 100, clamped.Size)
}

func TestListTransactions_UnknownWallet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupWalletService(t, db)

	_, err := svc.ListTransactions(context.Background(), uuid.New(), 1, 10)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
