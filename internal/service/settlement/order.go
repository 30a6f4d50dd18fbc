package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/logging"
)

// OrderPaymentKey is the deterministic idempotency key for an order's
// settlement. Completing the same order twice can therefore never charge
// the rider twice.
func OrderPaymentKey(orderID uuid.UUID) string {
	return fmt.Sprintf("complete-order-%s", orderID)
}

type OrderCompletionResult struct {
	Order            *domain.Order
	Transaction      *domain.Transaction
	RiderBalance     *int64
	CompanyBalance   *int64
	AlreadyCompleted bool
}

// ConfirmOrder moves a pending order to in-progress. Any other starting
// state is rejected, with the terminal states reported distinctly.
func (s *Service) ConfirmOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ConfirmOrder: begin tx: %w", err)
	}
	defer tx.Rollback()

	order, err := s.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ConfirmOrder: %w", err)
	}

	switch order.Status {
	case domain.OrderStatusPending:
	case domain.OrderStatusCompleted:
		return nil, fmt.Errorf("ConfirmOrder: %w", domain.ErrOrderCompleted)
	case domain.OrderStatusCancelled:
		return nil, fmt.Errorf("ConfirmOrder: %w", domain.ErrOrderCancelled)
	default:
		return nil, fmt.Errorf("ConfirmOrder: from %s: %w", order.Status, domain.ErrInvalidState)
	}

	if err := s.orders.UpdateStatus(ctx, tx, orderID, domain.OrderStatusPending, domain.OrderStatusInProgress); err != nil {
		return nil, fmt.Errorf("ConfirmOrder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ConfirmOrder: commit: %w", err)
	}

	order.Status = domain.OrderStatusInProgress
	logging.FromContext(ctx).Info("order confirmed", "order_id", orderID)
	return order, nil
}

// CompleteOrder settles an order: the rider's wallet pays the owning
// company and the order becomes completed, committed as one unit. A
// pending order may be completed directly, covering orders that skipped
// confirmation. Completing an already-completed order is an idempotent
// success; the recorded payment is returned and nothing is charged again.
func (s *Service) CompleteOrder(ctx context.Context, orderID uuid.UUID) (*OrderCompletionResult, error) {
	var lastErr error
	for range s.maxAttempts {
		res, err := s.completeOrderOnce(ctx, orderID)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			// Lost the settlement race to a concurrent completion of the
			// same order; surface its committed result.
			return s.replayCompletion(ctx, orderID)
		}
		if !isRetryableConflict(err) {
			return nil, fmt.Errorf("CompleteOrder: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("CompleteOrder: retries exhausted: %w", lastErr)
}

func (s *Service) completeOrderOnce(ctx context.Context, orderID uuid.UUID) (*OrderCompletionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("completeOrderOnce: begin tx: %w", err)
	}
	defer tx.Rollback()

	order, err := s.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("completeOrderOnce: %w", err)
	}

	switch order.Status {
	case domain.OrderStatusCancelled:
		return nil, fmt.Errorf("completeOrderOnce: %w", domain.ErrOrderCancelled)
	case domain.OrderStatusCompleted:
		return s.replayCompletion(ctx, orderID)
	case domain.OrderStatusPending, domain.OrderStatusInProgress:
	default:
		return nil, fmt.Errorf("completeOrderOnce: from %s: %w", order.Status, domain.ErrInvalidState)
	}

	key := OrderPaymentKey(orderID)
	refID := orderID.String()
	transfer, err := s.executeTransfer(ctx, tx, TransferRequest{
		From:           &WalletRef{Kind: domain.OwnerKindRider, OwnerRefID: order.RiderUserID.String()},
		To:             &WalletRef{Kind: domain.OwnerKindCompany, OwnerRefID: order.CompanyID.String()},
		AmountCents:    order.PriceCents,
		Type:           domain.TxTypeOrderPayment,
		IdempotencyKey: &key,
		RefID:          &refID,
	})
	if err != nil {
		return nil, fmt.Errorf("completeOrderOnce: %w", err)
	}

	if err := s.orders.UpdateStatus(ctx, tx, orderID, order.Status, domain.OrderStatusCompleted); err != nil {
		return nil, fmt.Errorf("completeOrderOnce: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("completeOrderOnce: commit: %w", err)
	}

	order.Status = domain.OrderStatusCompleted
	logging.FromContext(ctx).Info("order completed",
		"order_id", orderID,
		"transaction_id", transfer.Transaction.ID,
		"amount_cents", order.PriceCents,
	)
	return &OrderCompletionResult{
		Order:          order,
		Transaction:    transfer.Transaction,
		RiderBalance:   transfer.FromBalance,
		CompanyBalance: transfer.ToBalance,
	}, nil
}

// replayCompletion resolves an already-completed order to its recorded
// settlement. The order status and the ledger must agree: a completed
// order without its payment entry means the store is corrupt, not that a
// second charge is due.
func (s *Service) replayCompletion(ctx context.Context, orderID uuid.UUID) (*OrderCompletionResult, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("replayCompletion: %w", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		return nil, fmt.Errorf("replayCompletion: order %s is %s: %w", orderID, order.Status, domain.ErrInvalidState)
	}

	entry, err := s.ledger.GetByIdempotencyKey(ctx, OrderPaymentKey(orderID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("replayCompletion: completed order %s has no settlement entry", orderID)
		}
		return nil, fmt.Errorf("replayCompletion: %w", err)
	}

	return &OrderCompletionResult{
		Order:            order,
		Transaction:      entry,
		RiderBalance:     entry.FromBalanceAfter,
		CompanyBalance:   entry.ToBalanceAfter,
		AlreadyCompleted: true,
	}, nil
}

// CancelOrder aborts an order before settlement. No money moves; completed
// orders cannot be cancelled.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CancelOrder: begin tx: %w", err)
	}
	defer tx.Rollback()

	order, err := s.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("CancelOrder: %w", err)
	}

	switch order.Status {
	case domain.OrderStatusPending, domain.OrderStatusInProgress:
	case domain.OrderStatusCompleted:
		return nil, fmt.Errorf("CancelOrder: %w", domain.ErrOrderCompleted)
	case domain.OrderStatusCancelled:
		return nil, fmt.Errorf("CancelOrder: %w", domain.ErrOrderCancelled)
	default:
		return nil, fmt.Errorf("CancelOrder: from %s: %w", order.Status, domain.ErrInvalidState)
	}

	if err := s.orders.UpdateStatus(ctx, tx, orderID, order.Status, domain.OrderStatusCancelled); err != nil {
		return nil, fmt.Errorf("CancelOrder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CancelOrder: commit: %w", err)
	}

	order.Status = domain.OrderStatusCancelled
	logging.FromContext(ctx).Info("order cancelled", "order_id", orderID)
	return order, nil
}
