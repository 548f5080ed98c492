package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vipps/internal/domain"
	"vipps/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	db *sql.DB // nil when transaction-scoped
	q  Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `id, increment_id, store_id, state, total_due, grand_total, email_sent,
	txn_id, amount_authorized, amount_paid, payment_closed, capture_registered, raw_details, created_at`

// GetByIncrementID retrieves an order by its increment id.
func (r *OrderRepository) GetByIncrementID(ctx context.Context, incrementID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE increment_id = $1`

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, incrementID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// Save persists order state and payment record changes.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET state = $1,
		    total_due = $2,
		    email_sent = $3,
		    txn_id = $4,
		    amount_authorized = $5,
		    amount_paid = $6,
		    payment_closed = $7,
		    capture_registered = $8,
		    raw_details = $9
		WHERE id = $10
	`

	result, err := r.q.ExecContext(ctx, query,
		order.State,
		order.TotalDue,
		order.EmailSent,
		order.Payment.TransactionID,
		order.Payment.AmountAuthorized,
		order.Payment.AmountPaid,
		order.Payment.Closed,
		order.Payment.CaptureRegistered,
		order.Payment.RawDetails,
		order.ID,
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

// Cancel cancels the order. The underlying cancel only accepts orders in NEW,
// so an order in PAYMENT_REVIEW is transitioned back to NEW first, inside the
// same transaction.
func (r *OrderRepository) Cancel(ctx context.Context, orderID string) error {
	if r.db == nil {
		return cancelOrder(ctx, r.q, orderID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := cancelOrder(ctx, tx, orderID); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func cancelOrder(ctx context.Context, q Querier, orderID string) error {
	var state domain.OrderState
	err := q.QueryRowContext(ctx, `SELECT state FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	if state == domain.OrderStatePaymentReview {
		if _, err := q.ExecContext(ctx, `UPDATE orders SET state = $1 WHERE id = $2`, domain.OrderStateNew, orderID); err != nil {
			return err
		}
		state = domain.OrderStateNew
	}

	if state != domain.OrderStateNew {
		// Already past the point of cancellation; leave untouched.
		return nil
	}

	_, err = q.ExecContext(ctx, `UPDATE orders SET state = $1 WHERE id = $2`, domain.OrderStateCanceled, orderID)
	return err
}

// Notify marks the buyer order-confirmation as sent.
func (r *OrderRepository) Notify(ctx context.Context, orderID string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE orders SET email_sent = TRUE WHERE id = $1`, orderID)
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

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order      domain.Order
		txnID      sql.NullString
		rawDetails sql.NullString
	)
	err := row.Scan(
		&order.ID,
		&order.IncrementID,
		&order.StoreID,
		&order.State,
		&order.TotalDue,
		&order.GrandTotal,
		&order.EmailSent,
		&txnID,
		&order.Payment.AmountAuthorized,
		&order.Payment.AmountPaid,
		&order.Payment.Closed,
		&order.Payment.CaptureRegistered,
		&rawDetails,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Payment.TransactionID = txnID.String
	order.Payment.RawDetails = rawDetails.String
	return &order, nil
}
