package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
)

const walletColumns = `id, owner_kind, owner_ref_id, balance_cents,
	low_balance_threshold, version, updated_at`

type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) GetByOwner(ctx context.Context, kind domain.OwnerKind, ownerRefID string) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_kind = $1 AND owner_ref_id = $2`,
		kind, ownerRefID,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByOwner: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByOwner: %w", err)
	}
	return w, nil
}

// GetOrCreate resolves concurrent creation races at the storage layer: the
// insert is ON CONFLICT DO NOTHING against the (owner_kind, owner_ref_id)
// unique constraint, and the loser re-reads the winner's row.
func (r *WalletRepository) GetOrCreate(ctx context.Context, kind domain.OwnerKind, ownerRefID string) (*domain.Wallet, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (id, owner_kind, owner_ref_id, balance_cents, low_balance_threshold, version, updated_at)
		VALUES ($1, $2, $3, 0, $4, 1, $5)
		ON CONFLICT (owner_kind, owner_ref_id) DO NOTHING`,
		uuid.New(), kind, ownerRefID, domain.DefaultLowBalanceThreshold, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreate: insert: %w", err)
	}
	w, err := r.GetByOwner(ctx, kind, ownerRefID)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreate: %w", err)
	}
	return w, nil
}

// GetOrCreateTx is GetOrCreate inside a caller-owned transaction, used by
// the settlement engine so lazy creation commits atomically with the
// balance movement that triggered it.
func (r *WalletRepository) GetOrCreateTx(ctx context.Context, tx *sql.Tx, kind domain.OwnerKind, ownerRefID string) (*domain.Wallet, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (id, owner_kind, owner_ref_id, balance_cents, low_balance_threshold, version, updated_at)
		VALUES ($1, $2, $3, 0, $4, 1, $5)
		ON CONFLICT (owner_kind, owner_ref_id) DO NOTHING`,
		uuid.New(), kind, ownerRefID, domain.DefaultLowBalanceThreshold, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreateTx: insert: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_kind = $1 AND owner_ref_id = $2`,
		kind, ownerRefID,
	)
	w, err := scanWallet(row)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreateTx: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Wallet, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return w, nil
}

// UpdateBalance applies a new balance under an optimistic version check on
// top of the row lock, so a lost update can never slip through.
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = $1, version = $2, updated_at = now()
		WHERE id = $3 AND version = $4`,
		newBalance, newVersion, id, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanWallet(s scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.Scan(
		&w.ID, &w.OwnerKind, &w.OwnerRefID, &w.BalanceCents,
		&w.LowBalanceThreshold, &w.Version, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
