package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vipps/internal/domain"
	"vipps/internal/repository"
)

// CartRepository is a PostgreSQL implementation of repository.CartRepository.
type CartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new PostgreSQL cart repository.
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

const cartColumns = `id, store_id, reserved_order_id, active, express_checkout, customer_email,
	subtotal, shipping_amount, grand_total, shipping_method, created_at, updated_at`

// Get retrieves a cart by ID.
func (r *CartRepository) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE id = $1`

	var (
		cart       domain.Cart
		reservedID sql.NullString
		method     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, cartID).Scan(
		&cart.ID,
		&cart.StoreID,
		&reservedID,
		&cart.Active,
		&cart.ExpressCheckout,
		&cart.CustomerEmail,
		&cart.Subtotal,
		&cart.ShippingAmount,
		&cart.GrandTotal,
		&method,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	cart.ReservedOrderID = reservedID.String
	cart.ShippingMethod = method.String
	return &cart, nil
}

// Save persists cart changes.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	query := `
		UPDATE carts
		SET reserved_order_id = $1,
		    active = $2,
		    subtotal = $3,
		    shipping_amount = $4,
		    grand_total = $5,
		    shipping_method = $6,
		    updated_at = $7
		WHERE id = $8
	`

	cart.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		nullString(cart.ReservedOrderID),
		cart.Active,
		cart.Subtotal,
		cart.ShippingAmount,
		cart.GrandTotal,
		nullString(cart.ShippingMethod),
		cart.UpdatedAt,
		cart.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ReserveOrderID assigns and returns a fresh reserved order id for the cart,
// or returns the existing one.
func (r *CartRepository) ReserveOrderID(ctx context.Context, cartID string) (string, error) {
	cart, err := r.Get(ctx, cartID)
	if err != nil {
		return "", err
	}
	if cart.ReservedOrderID != "" {
		return cart.ReservedOrderID, nil
	}

	var seq int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('order_increment_seq')`).Scan(&seq); err != nil {
		return "", err
	}

	reserved := fmt.Sprintf("%09d", seq)
	_, err = r.db.ExecContext(ctx,
		`UPDATE carts SET reserved_order_id = $1, updated_at = $2 WHERE id = $3`,
		reserved, time.Now(), cartID,
	)
	if err != nil {
		return "", err
	}
	return reserved, nil
}

// PlaceOrder converts the cart into a committed order in a single
// transaction and returns it.
func (r *CartRepository) PlaceOrder(ctx context.Context, cartID string) (*domain.Order, error) {
	cart, err := r.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.ReservedOrderID == "" {
		return nil, fmt.Errorf("cart %s has no reserved order id", cartID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:          uuid.New().String(),
		IncrementID: cart.ReservedOrderID,
		StoreID:     cart.StoreID,
		State:       domain.OrderStateNew,
		TotalDue:    cart.GrandTotal,
		GrandTotal:  cart.GrandTotal,
		CreatedAt:   time.Now(),
		Payment: domain.PaymentRecord{
			AmountAuthorized: decimal.Zero,
			AmountPaid:       decimal.Zero,
		},
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, increment_id, store_id, state, total_due, grand_total, email_sent,
			amount_authorized, amount_paid, payment_closed, capture_registered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8, FALSE, FALSE, $9)
	`,
		order.ID,
		order.IncrementID,
		order.StoreID,
		order.State,
		order.TotalDue,
		order.GrandTotal,
		order.Payment.AmountAuthorized,
		order.Payment.AmountPaid,
		order.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}
