package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"vipps/internal/domain"
	"vipps/internal/repository"
)

// ReservationRepository is a PostgreSQL implementation of
// repository.ReservationRepository.
type ReservationRepository struct {
	q Querier
}

// NewReservationRepository creates a new PostgreSQL reservation repository.
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{q: db}
}

// NewReservationRepositoryWithTx creates a reservation repository using a transaction.
func NewReservationRepositoryWithTx(tx *sql.Tx) *ReservationRepository {
	return &ReservationRepository{q: tx}
}

const reservationColumns = `id, cart_id, reserved_order_id, order_id, store_id, auth_token, attempt_count, status, created_at, updated_at`

// Create persists a new reservation record.
func (r *ReservationRepository) Create(ctx context.Context, record *domain.ReservationRecord) error {
	query := `
		INSERT INTO vipps_reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, query,
		record.ID,
		record.CartID,
		record.ReservedOrderID,
		nullString(record.OrderID),
		record.StoreID,
		record.AuthToken,
		record.AttemptCount,
		record.Status,
		record.CreatedAt,
		record.UpdatedAt,
	)

	return err
}

// GetByID retrieves a record by ID.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.ReservationRecord, error) {
	query := `SELECT ` + reservationColumns + ` FROM vipps_reservations WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// GetByReservedOrderID retrieves the record by its reserved order id.
func (r *ReservationRepository) GetByReservedOrderID(ctx context.Context, reservedOrderID string) (*domain.ReservationRecord, error) {
	query := `SELECT ` + reservationColumns + ` FROM vipps_reservations WHERE reserved_order_id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, reservedOrderID))
}

// Update updates an existing record. The local order id never reverts to
// empty once set.
func (r *ReservationRepository) Update(ctx context.Context, record *domain.ReservationRecord) error {
	query := `
		UPDATE vipps_reservations
		SET order_id = COALESCE(NULLIF($1, ''), order_id),
		    attempt_count = $2,
		    status = $3,
		    updated_at = $4
		WHERE id = $5
	`

	record.UpdatedAt = time.Now()

	result, err := r.q.ExecContext(ctx, query,
		record.OrderID,
		record.AttemptCount,
		record.Status,
		record.UpdatedAt,
		record.ID,
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

// ListProcessable retrieves records awaiting reconciliation, oldest first.
func (r *ReservationRepository) ListProcessable(ctx context.Context, statuses []domain.RecordStatus, maxAttempts, limit int) ([]*domain.ReservationRecord, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM vipps_reservations
		WHERE status = ANY($1) AND attempt_count < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.q.QueryContext(ctx, query, pq.Array(names), maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ReservationRecord
	for rows.Next() {
		record, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// SaveAttempt records one failed reconciliation attempt.
func (r *ReservationRepository) SaveAttempt(ctx context.Context, attempt *domain.ReservationAttempt) error {
	query := `
		INSERT INTO vipps_reservation_attempts (id, record_id, message, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.ExecContext(ctx, query,
		attempt.ID,
		attempt.RecordID,
		attempt.Message,
		attempt.CreatedAt,
	)

	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ReservationRepository) scanOne(row *sql.Row) (*domain.ReservationRecord, error) {
	record, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func scanReservation(row rowScanner) (*domain.ReservationRecord, error) {
	var (
		record  domain.ReservationRecord
		orderID sql.NullString
	)
	err := row.Scan(
		&record.ID,
		&record.CartID,
		&record.ReservedOrderID,
		&orderID,
		&record.StoreID,
		&record.AuthToken,
		&record.AttemptCount,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.OrderID = orderID.String
	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
