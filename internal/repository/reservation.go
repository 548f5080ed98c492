package repository

import (
	"context"

	"vipps/internal/domain"
)

// ReservationRepository defines the persistence operations for reservation
// records and their attempt sub-records.
type ReservationRepository interface {
	// Create persists a new reservation record.
	Create(ctx context.Context, record *domain.ReservationRecord) error

	// GetByID retrieves a record by ID.
	GetByID(ctx context.Context, id string) (*domain.ReservationRecord, error)

	// GetByReservedOrderID retrieves the record joined to the external
	// payment by its reserved order id.
	GetByReservedOrderID(ctx context.Context, reservedOrderID string) (*domain.ReservationRecord, error)

	// Update updates an existing record.
	Update(ctx context.Context, record *domain.ReservationRecord) error

	// ListProcessable retrieves up to limit records in the given statuses
	// with fewer than maxAttempts reconciliation attempts, oldest first.
	ListProcessable(ctx context.Context, statuses []domain.RecordStatus, maxAttempts, limit int) ([]*domain.ReservationRecord, error)

	// SaveAttempt records one failed reconciliation attempt.
	SaveAttempt(ctx context.Context, attempt *domain.ReservationAttempt) error
}
