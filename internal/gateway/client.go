package gateway

import (
	"context"
	"fmt"

	"vipps/internal/domain"
)

// APIVersion selects which generation of the provider API the client talks to.
type APIVersion string

const (
	APIVersionEcomm    APIVersion = "ecomm"
	APIVersionCheckout APIVersion = "checkout"
	APIVersionEpayment APIVersion = "epayment"
)

// InitiateRequest starts a payment for a reserved order.
type InitiateRequest struct {
	OrderID           string
	AmountMinor       int64
	CurrencyCode      string
	CustomerPhone     string
	CallbackURL       string
	CallbackAuthToken string
	FallbackURL       string
	Express           bool
}

// InitiateResponse carries the provider URL the buyer is redirected to.
type InitiateResponse struct {
	OrderID string
	URL     string
}

// Client is the provider-facing collaborator. Transport and provider errors
// are surfaced as *Error; callers decide whether a failure is fatal
// (receipt sending is the one call allowed to fail softly).
type Client interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	GetPaymentState(ctx context.Context, orderReference string) (*domain.PaymentState, error)
	Cancel(ctx context.Context, orderReference string) error
	SendReceipt(ctx context.Context, order *domain.Order) error
}

// Error is a transport or provider-reported failure.
type Error struct {
	Status  int // HTTP status, 0 for transport failures
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("vipps: %s", e.Message)
	}
	return fmt.Sprintf("vipps: status %d code %s: %s", e.Status, e.Code, e.Message)
}
