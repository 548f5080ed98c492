package domain

import "time"

// PaymentStatus is the coarse provider-reported status of a payment.
type PaymentStatus string

const (
	PaymentStatusInitiated  PaymentStatus = "INITIATED"
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusCaptured   PaymentStatus = "CAPTURED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusVoided     PaymentStatus = "VOIDED"
	PaymentStatusExpired    PaymentStatus = "EXPIRED"
	PaymentStatusAborted    PaymentStatus = "ABORTED"
)

// Terminal reports whether the status can no longer change on the provider side.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCancelled, PaymentStatusVoided, PaymentStatusExpired, PaymentStatusAborted:
		return true
	}
	return false
}

// OperationKind identifies a provider-side payment operation.
type OperationKind string

const (
	OperationInitiate OperationKind = "INITIATE"
	OperationReserve  OperationKind = "RESERVE"
	OperationCapture  OperationKind = "CAPTURE"
	OperationRefund   OperationKind = "REFUND"
	OperationCancel   OperationKind = "CANCEL"
	OperationVoid     OperationKind = "VOID"
)

// Operation is one entry of the provider's operation history.
type Operation struct {
	Kind      OperationKind
	Success   bool
	Amount    int64 // minor currency units
	Timestamp time.Time
	RequestID string // idempotency key used for the provider call
}

// UserDetails carries buyer identity returned by provider-hosted (express) checkouts.
type UserDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// ShippingDetails carries the shipping choice returned by express checkouts.
type ShippingDetails struct {
	Street     string
	City       string
	PostalCode string
	Country    string
	MethodID   string
	CostMinor  int64 // shipping cost in minor currency units
}

// PaymentState is an immutable snapshot of the authoritative payment state,
// fetched fresh from the provider on every reconciliation pass. All amounts
// are integer minor currency units.
type PaymentState struct {
	OrderReference   string
	Status           PaymentStatus
	AuthorizedAmount int64
	CapturedAmount   int64
	CancelledAmount  int64
	RefundedAmount   int64
	History          []Operation
	UserDetails      *UserDetails
	ShippingDetails  *ShippingDetails
}

// RemainingAmountToCapture returns the amount still capturable. A negative
// result signals a provider-side desync; it is returned as-is so the caller
// fails validation instead of silently correcting it.
func (s *PaymentState) RemainingAmountToCapture() int64 {
	return s.AuthorizedAmount - s.CapturedAmount - s.CancelledAmount - s.RefundedAmount
}

// LastSuccessful returns the most recent successful operation of the given
// kind, or nil.
func (s *PaymentState) LastSuccessful(kind OperationKind) *Operation {
	return lastOperation(s.History, kind, true)
}

// LastFailed returns the most recent failed operation of the given kind, or
// nil. Its RequestID is reused as the idempotency key when replaying the call.
func (s *PaymentState) LastFailed(kind OperationKind) *Operation {
	return lastOperation(s.History, kind, false)
}

func lastOperation(history []Operation, kind OperationKind, success bool) *Operation {
	var found *Operation
	for i := range history {
		op := &history[i]
		if op.Kind != kind || op.Success != success {
			continue
		}
		if found == nil || op.Timestamp.After(found.Timestamp) {
			found = op
		}
	}
	return found
}

// IsExpired reports whether the payment was only ever initiated and the
// initiating operation is older than the given window. Distinct from
// Cancelled: the buyer never acted rather than explicitly aborting.
func (s *PaymentState) IsExpired(window time.Duration) bool {
	if s.Status != PaymentStatusInitiated {
		return false
	}
	initiate := s.LastSuccessful(OperationInitiate)
	if initiate == nil {
		return false
	}
	return time.Since(initiate.Timestamp) > window
}

// DeriveStatus resolves the coarse status from an operation history.
// Cancellation is terminal and wins over any earlier reservation, so
// precedence is Cancel/Void > Capture > Reserve > Initiate, independent of
// scan order.
func DeriveStatus(history []Operation) PaymentStatus {
	if op := lastOperation(history, OperationCancel, true); op != nil {
		return PaymentStatusCancelled
	}
	if op := lastOperation(history, OperationVoid, true); op != nil {
		return PaymentStatusVoided
	}
	if op := lastOperation(history, OperationCapture, true); op != nil {
		return PaymentStatusCaptured
	}
	if op := lastOperation(history, OperationReserve, true); op != nil {
		return PaymentStatusAuthorized
	}
	return PaymentStatusInitiated
}
