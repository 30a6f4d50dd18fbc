package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ridemarket/backend/internal/domain"
	"github.com/ridemarket/backend/internal/logging"
)

type TopupRequest struct {
	OwnerKind      domain.OwnerKind
	OwnerRefID     string
	AmountCents    int64
	IdempotencyKey *string
}

// Topup credits an owner's wallet from the outside world (mock payment; no
// gateway is involved).
func (s *Service) Topup(ctx context.Context, req TopupRequest) (*TransferResult, error) {
	res, err := s.Transfer(ctx, TransferRequest{
		To:             &WalletRef{Kind: req.OwnerKind, OwnerRefID: req.OwnerRefID},
		AmountCents:    req.AmountCents,
		Type:           domain.TxTypeTopup,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("Topup: %w", err)
	}
	return res, nil
}

type WithdrawRequest struct {
	OwnerKind      domain.OwnerKind
	OwnerRefID     string
	AmountCents    int64
	IdempotencyKey *string
}

// Withdraw debits an owner's wallet out to the external world. The engine
// rejects the debit when the balance is insufficient.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (*TransferResult, error) {
	res, err := s.Transfer(ctx, TransferRequest{
		From:           &WalletRef{Kind: req.OwnerKind, OwnerRefID: req.OwnerRefID},
		AmountCents:    req.AmountCents,
		Type:           domain.TxTypeWithdraw,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	return res, nil
}

type PaySalaryRequest struct {
	CompanyID      uuid.UUID
	DriverUserID   uuid.UUID
	AmountCents    int64
	Period         string
	IdempotencyKey *string
}

// SalaryIdempotencyKey is the deterministic key used when the caller
// supplies none: the same payroll run for the same period cannot pay twice
// even if the caller forgot its own key.
func SalaryIdempotencyKey(companyID, driverUserID uuid.UUID, period string, amountCents int64) string {
	return fmt.Sprintf("salary-%s-%s-%s-%d", companyID, driverUserID, period, amountCents)
}

func (s *Service) PaySalary(ctx context.Context, req PaySalaryRequest) (*TransferResult, error) {
	employed, err := s.companies.IsEmployed(ctx, req.CompanyID, req.DriverUserID)
	if err != nil {
		return nil, fmt.Errorf("PaySalary: %w", err)
	}
	if !employed {
		return nil, fmt.Errorf("PaySalary: %w", domain.ErrNotEmployed)
	}

	key := req.IdempotencyKey
	if key == nil || *key == "" {
		derived := SalaryIdempotencyKey(req.CompanyID, req.DriverUserID, req.Period, req.AmountCents)
		key = &derived
	}

	metadata, err := json.Marshal(map[string]string{"period": req.Period})
	if err != nil {
		return nil, fmt.Errorf("PaySalary: metadata: %w", err)
	}

	refID := req.DriverUserID.String()
	res, err := s.Transfer(ctx, TransferRequest{
		From:           &WalletRef{Kind: domain.OwnerKindCompany, OwnerRefID: req.CompanyID.String()},
		To:             &WalletRef{Kind: domain.OwnerKindDriver, OwnerRefID: req.DriverUserID.String()},
		AmountCents:    req.AmountCents,
		Type:           domain.TxTypePaySalary,
		IdempotencyKey: key,
		RefID:          &refID,
		Metadata:       metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("PaySalary: %w", err)
	}

	if res.Replayed {
		logging.FromContext(ctx).Info("salary payment replayed",
			"company_id", req.CompanyID,
			"driver_user_id", req.DriverUserID,
			"period", req.Period,
		)
	}
	return res, nil
}

type PayMembershipRequest struct {
	CompanyID      uuid.UUID
	Plan           domain.MembershipPlan
	AmountCents    int64
	IdempotencyKey *string
}

type MembershipResult struct {
	Transfer  *TransferResult
	Plan      domain.MembershipPlan
	ExpiresAt *string
}

// PayMembership charges a company's wallet into the platform revenue
// wallet and extends the membership expiry by a fixed increment from the
// later of now and the current expiry, both in one transaction. A replayed
// call does not extend the membership a second time.
func (s *Service) PayMembership(ctx context.Context, req PayMembershipRequest) (*TransferResult, error) {
	if !req.Plan.IsValid() {
		return nil, fmt.Errorf("PayMembership: %w", domain.ErrInvalidPlan)
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("PayMembership: %w", domain.ErrInvalidAmount)
	}

	metadata, err := json.Marshal(map[string]string{"plan": string(req.Plan)})
	if err != nil {
		return nil, fmt.Errorf("PayMembership: metadata: %w", err)
	}
	refID := req.CompanyID.String()

	var lastErr error
	for range s.maxAttempts {
		res, err := s.payMembershipOnce(ctx, req, metadata, refID)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) && req.IdempotencyKey != nil {
			replayed, rerr := s.replay(ctx, *req.IdempotencyKey)
			if rerr != nil {
				return nil, fmt.Errorf("PayMembership: %w", rerr)
			}
			return replayed, nil
		}
		if !isRetryableConflict(err) {
			return nil, fmt.Errorf("PayMembership: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("PayMembership: retries exhausted: %w", lastErr)
}

func (s *Service) payMembershipOnce(ctx context.Context, req PayMembershipRequest, metadata json.RawMessage, refID string) (*TransferResult, error) {
	if req.IdempotencyKey != nil {
		existing, err := s.ledger.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err == nil {
			return resultFromEntry(existing, true), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("payMembershipOnce: replay check: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payMembershipOnce: begin tx: %w", err)
	}
	defer tx.Rollback()

	company, err := s.companies.GetForUpdate(ctx, tx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("payMembershipOnce: %w", err)
	}

	res, err := s.executeTransfer(ctx, tx, TransferRequest{
		From:           &WalletRef{Kind: domain.OwnerKindCompany, OwnerRefID: req.CompanyID.String()},
		To:             &WalletRef{Kind: domain.OwnerKindPlatform, OwnerRefID: s.platformWalletRef},
		AmountCents:    req.AmountCents,
		Type:           domain.TxTypePayMembership,
		IdempotencyKey: req.IdempotencyKey,
		RefID:          &refID,
		Metadata:       metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("payMembershipOnce: %w", err)
	}

	expiresAt := company.NextMembershipExpiry(res.Transaction.CreatedAt)
	if err := s.companies.SetMembership(ctx, tx, company.ID, req.Plan, expiresAt); err != nil {
		return nil, fmt.Errorf("payMembershipOnce: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("payMembershipOnce: commit: %w", err)
	}

	logging.FromContext(ctx).Info("membership paid",
		"company_id", company.ID,
		"plan", req.Plan,
		"expires_at", expiresAt,
	)
	return res, nil
}
