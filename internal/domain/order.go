package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type Order struct {
	ID          uuid.UUID
	RiderUserID uuid.UUID
	CompanyID   uuid.UUID
	ServiceID   *uuid.UUID
	PriceCents  int64
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
