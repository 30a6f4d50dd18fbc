package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/logging"
)

type walletRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetOrCreate(ctx context.Context, kind domain.OwnerKind, ownerRefID string) (*domain.Wallet, error)
}

type transactionRepo interface {
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error)
}

// Page is the envelope for paginated listings.
type Page[T any] struct {
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
	Items      []T  `json:"items"`
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type WalletService struct {
	wallets      walletRepo
	transactions transactionRepo
}

func NewWalletService(wallets walletRepo, transactions transactionRepo) *WalletService {
	return &WalletService{wallets: wallets, transactions: transactions}
}

// GetOrCreateWallet returns the owner's wallet, creating it with a zero
// balance on first reference. Concurrent first references converge on one
// row; the storage layer's unique constraint is the arbiter.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, kind domain.OwnerKind, ownerRefID string) (*domain.Wallet, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("GetOrCreateWallet: %w", domain.ErrInvalidOwnerKind)
	}
	if ownerRefID == "" {
		return nil, fmt.Errorf("GetOrCreateWallet: empty owner ref: %w", domain.ErrInvalidRequest)
	}

	w, err := s.wallets.GetOrCreate(ctx, kind, ownerRefID)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreateWallet: %w", err)
	}

	if w.BelowThreshold() {
		logging.FromContext(ctx).Warn("wallet below low-balance threshold",
			"wallet_id", w.ID,
			"balance_cents", w.BalanceCents,
			"threshold", w.LowBalanceThreshold,
		)
	}
	return w, nil
}

func (s *WalletService) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("GetWallet: %w", err)
	}
	return w, nil
}

// ListTransactions pages through the wallet's ledger history newest-first.
func (s *WalletService) ListTransactions(ctx context.Context, walletID uuid.UUID, page, size int) (*Page[domain.Transaction], error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	// The wallet must exist; an unknown id is NotFound, not an empty page.
	if _, err := s.wallets.GetByID(ctx, walletID); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	entries, total, err := s.transactions.ListByWallet(ctx, walletID, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	if entries == nil {
		entries = []domain.Transaction{}
	}

	totalPages := int(math.Ceil(float64(total) / float64(size)))
	return &Page[domain.Transaction]{
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    page*size < total,
		HasPrev:    page > 1,
		Items:      entries,
	}, nil
}
