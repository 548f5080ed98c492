package repository

import (
	"context"

	"vipps/internal/domain"
)

// OrderRepository defines the order-store collaborator operations the
// reconciliation logic depends on.
type OrderRepository interface {
	// GetByIncrementID retrieves an order by its increment id (the reserved
	// order id). Returns ErrNotFound when no order has been placed yet.
	GetByIncrementID(ctx context.Context, incrementID string) (*domain.Order, error)

	// Save persists order state and payment record changes.
	Save(ctx context.Context, order *domain.Order) error

	// Cancel cancels the order. Only orders in NEW are cancelled directly;
	// an order in PAYMENT_REVIEW is first transitioned back to NEW inside a
	// transaction, then cancelled. Orders in any other state are left
	// untouched.
	Cancel(ctx context.Context, orderID string) error

	// Notify marks the buyer order-confirmation as sent.
	Notify(ctx context.Context, orderID string) error
}
