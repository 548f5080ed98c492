package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the lifecycle state of a placed order.
type OrderState string

const (
	OrderStateNew           OrderState = "NEW"
	OrderStatePaymentReview OrderState = "PAYMENT_REVIEW"
	OrderStateProcessing    OrderState = "PROCESSING"
	OrderStateCanceled      OrderState = "CANCELED"
	OrderStateComplete      OrderState = "COMPLETE"
)

// PaymentAction selects the financial side effect applied after authorization.
type PaymentAction string

const (
	PaymentActionAuthorize        PaymentAction = "authorize"
	PaymentActionAuthorizeCapture PaymentAction = "authorize_capture"
)

// PaymentRecord is the payment information attached to an order.
type PaymentRecord struct {
	TransactionID     string
	AmountAuthorized  decimal.Decimal
	AmountPaid        decimal.Decimal
	Closed            bool // false keeps the transaction open for a later capture
	CaptureRegistered bool
	RawDetails        string // provider payment detail, stored verbatim
}

// Order is the committed order produced from a reserved cart.
type Order struct {
	ID          string
	IncrementID string // equals the reservation's ReservedOrderID
	StoreID     string
	State       OrderState
	TotalDue    decimal.Decimal
	GrandTotal  decimal.Decimal
	EmailSent   bool
	Payment     PaymentRecord
	CreatedAt   time.Time
}

// Address is a shipping or billing address on a cart.
type Address struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Street     string
	City       string
	PostalCode string
	Country    string
}

// Cart is a checkout cart holding a tentative order reservation.
type Cart struct {
	ID              string
	StoreID         string
	ReservedOrderID string
	Active          bool
	ExpressCheckout bool // buyer details supplied by the provider, not the checkout form
	CustomerEmail   string
	Subtotal        decimal.Decimal
	ShippingAmount  decimal.Decimal
	GrandTotal      decimal.Decimal
	ShippingMethod  string
	ShippingAddress *Address
	BillingAddress  *Address
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CollectTotals recomputes the grand total after addresses or shipping may
// have changed.
func (c *Cart) CollectTotals() {
	c.GrandTotal = c.Subtotal.Add(c.ShippingAmount)
}
