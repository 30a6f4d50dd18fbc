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

const companyColumns = `id, owner_user_id, name, membership, membership_expires_at,
	is_active, created_at, updated_at`

type CompanyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id,
	)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

func (r *CompanyRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Company, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1 FOR UPDATE`, id,
	)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return c, nil
}

// SetMembership records a paid plan and its new expiry. Runs inside the
// settlement transaction so the membership change and the charge commit
// together.
func (r *CompanyRepository) SetMembership(ctx context.Context, tx *sql.Tx, id uuid.UUID, plan domain.MembershipPlan, expiresAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE companies SET membership = $1, membership_expires_at = $2, updated_at = now()
		WHERE id = $3`,
		plan, expiresAt, id,
	)
	if err != nil {
		return fmt.Errorf("SetMembership: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetMembership: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetMembership: %w", domain.ErrNotFound)
	}
	return nil
}

// IsEmployed reports whether an active employment relation links the
// driver to the company.
func (r *CompanyRepository) IsEmployed(ctx context.Context, companyID, driverUserID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM company_driver_relations
			WHERE company_id = $1 AND driver_user_id = $2
		)`,
		companyID, driverUserID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("IsEmployed: %w", err)
	}
	return exists, nil
}

func scanCompany(s scanner) (*domain.Company, error) {
	var c domain.Company
	err := s.Scan(
		&c.ID, &c.OwnerUserID, &c.Name, &c.Membership, &c.MembershipExpiresAt,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
