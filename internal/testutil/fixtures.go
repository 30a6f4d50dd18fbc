package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func SeedUser(t *testing.T, db *sql.DB, email, role string) uuid.UUID {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	id := uuid.New()
	_, err = db.Exec(
		`INSERT INTO users (id, email, password_hash, role, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)`,
		id, email, string(hash), role,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return id
}

func SeedCompany(t *testing.T, db *sql.DB, ownerUserID uuid.UUID, name string) *domain.Company {
	t.Helper()

	c := &domain.Company{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Name:        name,
		Membership:  domain.MembershipFree,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO companies (id, owner_user_id, name, membership, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.OwnerUserID, c.Name, c.Membership, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed company %s: %v", name, err)
	}
	return c
}

func SeedEmployment(t *testing.T, db *sql.DB, companyID, driverUserID uuid.UUID, baseSalaryCents int64) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO company_driver_relations (id, company_id, driver_user_id, base_salary_cents)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), companyID, driverUserID, baseSalaryCents,
	)
	if err != nil {
		t.Fatalf("seed employment: %v", err)
	}
}

func SeedWallet(t *testing.T, db *sql.DB, kind domain.OwnerKind, ownerRefID string, balanceCents int64) *domain.Wallet {
	t.Helper()

	w := &domain.Wallet{
		ID:                  uuid.New(),
		OwnerKind:           kind,
		OwnerRefID:          ownerRefID,
		BalanceCents:        balanceCents,
		LowBalanceThreshold: domain.DefaultLowBalanceThreshold,
		Version:             1,
		UpdatedAt:           time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO wallets (id, owner_kind, owner_ref_id, balance_cents, low_balance_threshold, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.OwnerKind, w.OwnerRefID, w.BalanceCents, w.LowBalanceThreshold, w.Version, w.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed wallet %s/%s: %v", kind, ownerRefID, err)
	}
	return w
}

func SeedOrder(t *testing.T, db *sql.DB, riderUserID, companyID uuid.UUID, priceCents int64, status domain.OrderStatus) *domain.Order {
	t.Helper()

	o := &domain.Order{
		ID:          uuid.New(),
		RiderUserID: riderUserID,
		CompanyID:   companyID,
		PriceCents:  priceCents,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO orders (id, rider_user_id, company_id, price_cents, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.RiderUserID, o.CompanyID, o.PriceCents, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func GetWalletBalance(t *testing.T, db *sql.DB, walletID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance_cents FROM wallets WHERE id = $1`, walletID).Scan(&balance)
	if err != nil {
		t.Fatalf("get wallet balance: %v", err)
	}
	return balance
}

func CountTransactions(t *testing.T, db *sql.DB, walletID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE from_wallet_id = $1 OR to_wallet_id = $1`,
		walletID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return count
}

func GetOrderStatus(t *testing.T, db *sql.DB, orderID uuid.UUID) domain.OrderStatus {
	t.Helper()

	var status domain.OrderStatus
	err := db.QueryRow(`SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if err != nil {
		t.Fatalf("get order status: %v", err)
	}
	return status
}
