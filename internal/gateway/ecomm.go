package gateway

import (
	"strings"
	"time"

	"vipps/internal/domain"
)

// Legacy eCommerce API payloads. The transaction log history carries every
// operation; amounts are already minor currency units.

type ecommLogEntry struct {
	Operation        string    `json:"operation"`
	OperationSuccess bool      `json:"operationSuccess"`
	Amount           int64     `json:"amount"`
	TimeStamp        time.Time `json:"timeStamp"`
	RequestID        string    `json:"requestId"`
}

type ecommSummary struct {
	CapturedAmount           int64 `json:"capturedAmount"`
	RefundedAmount           int64 `json:"refundedAmount"`
	RemainingAmountToCapture int64 `json:"remainingAmountToCapture"`
	RemainingAmountToRefund  int64 `json:"remainingAmountToRefund"`
}

type ecommUserDetails struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
}

type ecommShippingDetails struct {
	Address struct {
		AddressLine1 string `json:"addressLine1"`
		City         string `json:"city"`
		PostCode     string `json:"postCode"`
		Country      string `json:"country"`
	} `json:"address"`
	ShippingMethodID string `json:"shippingMethodId"`
	ShippingCost     int64  `json:"shippingCost"`
}

type ecommPaymentDetails struct {
	OrderID               string                `json:"orderId"`
	TransactionLogHistory []ecommLogEntry       `json:"transactionLogHistory"`
	TransactionSummary    ecommSummary          `json:"transactionSummary"`
	UserDetails           *ecommUserDetails     `json:"userDetails"`
	ShippingDetails       *ecommShippingDetails `json:"shippingDetails"`
}

func ecommOperationKind(op string) (domain.OperationKind, bool) {
	switch strings.ToUpper(op) {
	case "INITIATE":
		return domain.OperationInitiate, true
	case "RESERVE":
		return domain.OperationReserve, true
	case "CAPTURE", "SALE":
		return domain.OperationCapture, true
	case "REFUND":
		return domain.OperationRefund, true
	case "CANCEL":
		return domain.OperationCancel, true
	case "VOID":
		return domain.OperationVoid, true
	}
	return "", false
}

func (d *ecommPaymentDetails) normalize() *domain.PaymentState {
	state := &domain.PaymentState{
		OrderReference: d.OrderID,
		CapturedAmount: d.TransactionSummary.CapturedAmount,
		RefundedAmount: d.TransactionSummary.RefundedAmount,
	}

	for _, entry := range d.TransactionLogHistory {
		kind, ok := ecommOperationKind(entry.Operation)
		if !ok {
			continue
		}
		state.History = append(state.History, domain.Operation{
			Kind:      kind,
			Success:   entry.OperationSuccess,
			Amount:    entry.Amount,
			Timestamp: entry.TimeStamp,
			RequestID: entry.RequestID,
		})
	}

	for _, op := range state.History {
		if !op.Success {
			continue
		}
		switch op.Kind {
		case domain.OperationReserve:
			state.AuthorizedAmount = op.Amount
		case domain.OperationCancel, domain.OperationVoid:
			state.CancelledAmount += op.Amount
		}
	}

	state.Status = domain.DeriveStatus(state.History)

	if d.UserDetails != nil {
		state.UserDetails = &domain.UserDetails{
			FirstName: d.UserDetails.FirstName,
			LastName:  d.UserDetails.LastName,
			Email:     d.UserDetails.Email,
			Phone:     d.UserDetails.MobileNumber,
		}
	}
	if d.ShippingDetails != nil {
		state.ShippingDetails = &domain.ShippingDetails{
			Street:     d.ShippingDetails.Address.AddressLine1,
			City:       d.ShippingDetails.Address.City,
			PostalCode: d.ShippingDetails.Address.PostCode,
			Country:    d.ShippingDetails.Address.Country,
			MethodID:   d.ShippingDetails.ShippingMethodID,
			CostMinor:  d.ShippingDetails.ShippingCost,
		}
	}
	return state
}
