package service

import "errors"

var (
	// ErrAcquireLockFailed is returned when the per-order lock could not be
	// obtained after bounded retries. Distinct from payment and validation
	// failures: the order is still being processed elsewhere.
	ErrAcquireLockFailed = errors.New("could not acquire order lock")

	// ErrWrongAmount is returned when the local cart total and the
	// provider-reported amount disagree. Always fatal to placement; the
	// design does not guess which side is correct.
	ErrWrongAmount = errors.New("cart amount does not match provider amount")

	// ErrCartMismatch is returned when a cart's reserved order id still
	// disagrees with the expected id after reconciliation, indicating a
	// corrupted or reused cart.
	ErrCartMismatch = errors.New("cart reserved order id mismatch")

	// ErrInvalidAuthToken is returned when a caller presents an auth token
	// that does not match the reservation record's stored token.
	ErrInvalidAuthToken = errors.New("invalid auth token")

	// ErrRecordNotProcessable is returned by the fallback handler's optional
	// status check when the record is already terminal.
	ErrRecordNotProcessable = errors.New("reservation record not processable")

	// ErrInvalidCartID is returned when a cart ID is empty.
	ErrInvalidCartID = errors.New("invalid cart id")
)
