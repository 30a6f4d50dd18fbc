package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ridemarket/backend/internal/domain"
)

const txColumns = `id, from_wallet_id, to_wallet_id, amount_cents, status, tx_type,
	idempotency_key, ref_id, metadata, from_balance_after, to_balance_after, created_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append inserts one ledger entry inside the caller's transaction. A
// violation of the completed-entries idempotency-key index surfaces as
// domain.ErrDuplicateIdempotencyKey; the storage layer is the arbiter, not
// a check-then-insert from the caller.
func (r *TransactionRepository) Append(ctx context.Context, tx *sql.Tx, entry *domain.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, from_wallet_id, to_wallet_id, amount_cents, status, tx_type,
			idempotency_key, ref_id, metadata, from_balance_after, to_balance_after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID, entry.FromWalletID, entry.ToWalletID, entry.AmountCents,
		entry.Status, entry.Type, entry.IdempotencyKey, entry.RefID,
		nullableJSON(entry.Metadata), entry.FromBalanceAfter, entry.ToBalanceAfter,
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Append: %w", domain.ErrDuplicateIdempotencyKey)
		}
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		WHERE idempotency_key = $1 AND status = 'completed'`, key,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIdempotencyKey: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByIdempotencyKey: %w", err)
	}
	return t, nil
}

// ListByWallet returns entries touching the wallet on either side, newest
// first, plus the total count for page envelopes.
func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE from_wallet_id = $1 OR to_wallet_id = $1`,
		walletID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		walletID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: %w", err)
	}
	defer rows.Close()

	var entries []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByWallet: scan: %w", err)
		}
		entries = append(entries, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: rows: %w", err)
	}
	return entries, total, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var metadata []byte
	err := s.Scan(
		&t.ID, &t.FromWalletID, &t.ToWalletID, &t.AmountCents,
		&t.Status, &t.Type, &t.IdempotencyKey, &t.RefID,
		&metadata, &t.FromBalanceAfter, &t.ToBalanceAfter, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Metadata = metadata
	return &t, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
