package repository

import (
	"context"

	"vipps/internal/domain"
)

// CartRepository defines the cart-store collaborator operations.
type CartRepository interface {
	// Get retrieves a cart by ID.
	Get(ctx context.Context, cartID string) (*domain.Cart, error)

	// Save persists cart changes.
	Save(ctx context.Context, cart *domain.Cart) error

	// ReserveOrderID assigns and returns a fresh reserved order id for the
	// cart, or returns the existing one.
	ReserveOrderID(ctx context.Context, cartID string) (string, error)

	// PlaceOrder converts the cart into a committed order in a single
	// transaction and returns it.
	PlaceOrder(ctx context.Context, cartID string) (*domain.Order, error)
}
