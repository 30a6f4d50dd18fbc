package settlement

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
)

const defaultMaxAttempts = 3

type walletRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetOrCreateTx(ctx context.Context, tx *sql.Tx, kind domain.OwnerKind, ownerRefID string) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, newVersion int64) error
}

type ledgerRepo interface {
	Append(ctx context.Context, tx *sql.Tx, entry *domain.Transaction) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
}

type orderRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to domain.OrderStatus) error
}

type companyRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Company, error)
	SetMembership(ctx context.Context, tx *sql.Tx, id uuid.UUID, plan domain.MembershipPlan, expiresAt time.Time) error
	IsEmployed(ctx context.Context, companyID, driverUserID uuid.UUID) (bool, error)
}

// Service owns every balance-affecting operation. All mutations funnel
// through the transfer engine in transfer.go; the named policies and the
// order state machine are wrappers that add their own validation and, where
// needed, extra writes inside the same database transaction.
type Service struct {
	wallets   walletRepo
	ledger    ledgerRepo
	orders    orderRepo
	companies companyRepo
	db        *sql.DB

	platformWalletRef string
	maxAttempts       int
}

type Option func(*Service)

// WithPlatformWalletRef overrides the owner ref of the platform revenue
// wallet credited by membership payments.
func WithPlatformWalletRef(ref string) Option {
	return func(s *Service) { s.platformWalletRef = ref }
}

// WithMaxAttempts bounds the retry loop around transient commit conflicts.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(
	wallets walletRepo,
	ledger ledgerRepo,
	orders orderRepo,
	companies companyRepo,
	db *sql.DB,
	opts ...Option,
) *Service {
	s := &Service{
		wallets:           wallets,
		ledger:            ledger,
		orders:            orders,
		companies:         companies,
		db:                db,
		platformWalletRef: "platform",
		maxAttempts:       defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
