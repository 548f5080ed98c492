package domain

import "time"

// RecordStatus is the lifecycle status of a reservation record.
type RecordStatus string

const (
	RecordStatusNew          RecordStatus = "NEW"
	RecordStatusPending      RecordStatus = "PENDING"
	RecordStatusReserved     RecordStatus = "RESERVED"
	RecordStatusCanceled     RecordStatus = "CANCELED"
	RecordStatusCancelFailed RecordStatus = "CANCEL_FAILED"
	RecordStatusExpired      RecordStatus = "EXPIRED"
)

// Terminal reports whether the record has reached a final status for this
// payment attempt. A fresh checkout creates a new record rather than
// resurrecting a terminal one.
func (s RecordStatus) Terminal() bool {
	switch s {
	case RecordStatusReserved, RecordStatusCanceled, RecordStatusExpired:
		return true
	}
	return false
}

// ReservationRecord correlates a local cart with its external payment
// attempt. ReservedOrderID is unique and is the join key to
// PaymentState.OrderReference. Once OrderID is set it never reverts to empty.
type ReservationRecord struct {
	ID              string
	CartID          string
	ReservedOrderID string
	OrderID         string // empty until an order is placed
	StoreID         string
	AuthToken       string // shared secret the webhook caller must present
	AttemptCount    int
	Status          RecordStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReservationAttempt records one failed reconciliation attempt for a record.
type ReservationAttempt struct {
	ID        string
	RecordID  string
	Message   string
	CreatedAt time.Time
}
