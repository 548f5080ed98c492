package gateway

import (
	"time"

	"vipps/internal/domain"
)

// Session-based checkout API payloads. The session reports a coarse state
// instead of an operation history, so a minimal history is synthesized for
// the expiry check.

type checkoutAmount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type checkoutAddress struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phoneNumber"`
	StreetName string `json:"streetAddress"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type checkoutPaymentDetails struct {
	Amount checkoutAmount `json:"amount"`
	State  string         `json:"state"`
}

type checkoutShippingDetails struct {
	checkoutAddress
	ShippingMethodID string         `json:"shippingMethodId"`
	Amount           checkoutAmount `json:"amount"`
}

type checkoutSession struct {
	Reference       string                   `json:"reference"`
	SessionState    string                   `json:"sessionState"`
	SessionStarted  time.Time                `json:"sessionStartedAt"`
	PaymentDetails  checkoutPaymentDetails   `json:"paymentDetails"`
	ShippingDetails *checkoutShippingDetails `json:"shippingDetails"`
	BillingDetails  *checkoutAddress         `json:"billingDetails"`
}

func (s *checkoutSession) normalize() *domain.PaymentState {
	state := &domain.PaymentState{
		OrderReference: s.Reference,
		History: []domain.Operation{{
			Kind:      domain.OperationInitiate,
			Success:   true,
			Amount:    s.PaymentDetails.Amount.Value,
			Timestamp: s.SessionStarted,
		}},
	}

	switch s.SessionState {
	case "PaymentSuccessful":
		state.Status = domain.PaymentStatusAuthorized
		state.AuthorizedAmount = s.PaymentDetails.Amount.Value
		state.History = append(state.History, domain.Operation{
			Kind:      domain.OperationReserve,
			Success:   true,
			Amount:    s.PaymentDetails.Amount.Value,
			Timestamp: s.SessionStarted,
		})
	case "PaymentTerminated":
		state.Status = domain.PaymentStatusCancelled
	case "SessionExpired":
		state.Status = domain.PaymentStatusExpired
	default: // SessionCreated, PaymentInitiated
		state.Status = domain.PaymentStatusInitiated
	}

	if s.BillingDetails != nil {
		state.UserDetails = &domain.UserDetails{
			FirstName: s.BillingDetails.FirstName,
			LastName:  s.BillingDetails.LastName,
			Email:     s.BillingDetails.Email,
			Phone:     s.BillingDetails.Phone,
		}
	}
	if s.ShippingDetails != nil {
		state.ShippingDetails = &domain.ShippingDetails{
			Street:     s.ShippingDetails.StreetName,
			City:       s.ShippingDetails.City,
			PostalCode: s.ShippingDetails.PostalCode,
			Country:    s.ShippingDetails.Country,
			MethodID:   s.ShippingDetails.ShippingMethodID,
			CostMinor:  s.ShippingDetails.Amount.Value,
		}
	}
	return state
}
