package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/logging"
)

// WalletRef names a wallet by its owner identity. The wallet row is created
// lazily inside the transfer transaction if it does not exist yet.
type WalletRef struct {
	Kind       domain.OwnerKind
	OwnerRefID string
}

type TransferRequest struct {
	From           *WalletRef
	To             *WalletRef
	AmountCents    int64
	Type           domain.TxType
	IdempotencyKey *string
	RefID          *string
	Metadata       json.RawMessage
}

type TransferResult struct {
	Transaction *domain.Transaction
	FromBalance *int64
	ToBalance   *int64

	// Replayed is true when the idempotency key matched an already
	// committed entry and no new balance change was applied.
	Replayed bool
}

// Transfer debits req.From and/or credits req.To and appends exactly one
// ledger entry, all inside a single database transaction. A retried call
// carrying the same idempotency key returns the recorded result of the
// first commit instead of moving money again. Transient commit conflicts
// (row version races, serialization failures, deadlocks) are retried a
// bounded number of times.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := validateTransferRequest(req); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	var lastErr error
	for range s.maxAttempts {
		res, err := s.transferOnce(ctx, req)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) && req.IdempotencyKey != nil {
			// A concurrent retry won the insert race; its committed entry
			// is the result of this logical operation.
			return s.replay(ctx, *req.IdempotencyKey)
		}
		if !isRetryableConflict(err) {
			return nil, fmt.Errorf("Transfer: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("Transfer: retries exhausted: %w", lastErr)
}

func validateTransferRequest(req TransferRequest) error {
	if req.From == nil && req.To == nil {
		return fmt.Errorf("no source or destination: %w", domain.ErrInvalidTransfer)
	}
	if req.From != nil && !req.From.Kind.IsValid() {
		return fmt.Errorf("from: %w", domain.ErrInvalidOwnerKind)
	}
	if req.To != nil && !req.To.Kind.IsValid() {
		return fmt.Errorf("to: %w", domain.ErrInvalidOwnerKind)
	}
	if req.From != nil && req.To != nil && *req.From == *req.To {
		return fmt.Errorf("source and destination are the same wallet: %w", domain.ErrInvalidTransfer)
	}
	if req.AmountCents <= 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

func (s *Service) transferOnce(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.IdempotencyKey != nil {
		existing, err := s.ledger.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err == nil {
			return resultFromEntry(existing, true), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("transferOnce: replay check: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("transferOnce: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := s.executeTransfer(ctx, tx, req)
	if err != nil {
		return nil, fmt.Errorf("transferOnce: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("transferOnce: commit: %w", err)
	}

	log := logging.FromContext(ctx)
	log.Info("transfer completed",
		"transaction_id", res.Transaction.ID,
		"type", req.Type,
		"amount_cents", req.AmountCents,
	)
	return res, nil
}

// executeTransfer runs the resolve/lock/mutate/append sequence inside the
// caller's transaction. The order state machine and the membership policy
// call it directly so their extra writes share the same commit.
func (s *Service) executeTransfer(ctx context.Context, tx *sql.Tx, req TransferRequest) (*TransferResult, error) {
	var fromWallet, toWallet *domain.Wallet
	var err error

	if req.From != nil {
		fromWallet, err = s.wallets.GetOrCreateTx(ctx, tx, req.From.Kind, req.From.OwnerRefID)
		if err != nil {
			return nil, fmt.Errorf("executeTransfer: from wallet: %w", err)
		}
	}
	if req.To != nil {
		toWallet, err = s.wallets.GetOrCreateTx(ctx, tx, req.To.Kind, req.To.OwnerRefID)
		if err != nil {
			return nil, fmt.Errorf("executeTransfer: to wallet: %w", err)
		}
	}

	locked, err := s.lockWalletsInOrder(ctx, tx, fromWallet, toWallet)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	if fromWallet != nil {
		fromWallet = locked[fromWallet.ID]
	}
	if toWallet != nil {
		toWallet = locked[toWallet.ID]
	}

	if fromWallet != nil && fromWallet.BalanceCents < req.AmountCents {
		return nil, fmt.Errorf("executeTransfer: %w", domain.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	entry := &domain.Transaction{
		ID:             uuid.New(),
		AmountCents:    req.AmountCents,
		Status:         domain.TxStatusCompleted,
		Type:           req.Type,
		IdempotencyKey: req.IdempotencyKey,
		RefID:          req.RefID,
		Metadata:       req.Metadata,
		CreatedAt:      now,
	}

	if fromWallet != nil {
		newBalance := fromWallet.BalanceCents - req.AmountCents
		if err := s.wallets.UpdateBalance(ctx, tx, fromWallet.ID, newBalance, fromWallet.Version+1); err != nil {
			return nil, fmt.Errorf("executeTransfer: debit: %w", err)
		}
		entry.FromWalletID = &fromWallet.ID
		entry.FromBalanceAfter = &newBalance
	}
	if toWallet != nil {
		newBalance := toWallet.BalanceCents + req.AmountCents
		if err := s.wallets.UpdateBalance(ctx, tx, toWallet.ID, newBalance, toWallet.Version+1); err != nil {
			return nil, fmt.Errorf("executeTransfer: credit: %w", err)
		}
		entry.ToWalletID = &toWallet.ID
		entry.ToBalanceAfter = &newBalance
	}

	if err := s.ledger.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	return resultFromEntry(entry, false), nil
}

// lockWalletsInOrder takes FOR UPDATE locks in ascending id order so two
// transfers touching the same pair of wallets cannot deadlock.
func (s *Service) lockWalletsInOrder(ctx context.Context, tx *sql.Tx, wallets ...*domain.Wallet) (map[uuid.UUID]*domain.Wallet, error) {
	var ids []uuid.UUID
	for _, w := range wallets {
		if w != nil {
			ids = append(ids, w.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	locked := make(map[uuid.UUID]*domain.Wallet, len(ids))
	for _, id := range ids {
		w, err := s.wallets.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockWalletsInOrder: %w", err)
		}
		locked[id] = w
	}
	return locked, nil
}

func (s *Service) replay(ctx context.Context, key string) (*TransferResult, error) {
	entry, err := s.ledger.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return resultFromEntry(entry, true), nil
}

func resultFromEntry(entry *domain.Transaction, replayed bool) *TransferResult {
	return &TransferResult{
		Transaction: entry,
		FromBalance: entry.FromBalanceAfter,
		ToBalance:   entry.ToBalanceAfter,
		Replayed:    replayed,
	}
}

func isRetryableConflict(err error) bool {
	if errors.Is(err, domain.ErrVersionConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
