package service

import (
	"context"
	"encoding/json"

	"vipps/internal/domain"
	"vipps/internal/repository"
)

// ActionResolver supplies the configured payment action. Read once per
// reconciliation pass and never cached across passes: a merchant may change
// configuration between orders.
type ActionResolver interface {
	PaymentAction(ctx context.Context, storeID string) (domain.PaymentAction, error)
}

// PaymentActionService applies the financial side effect to an order's
// payment record. Both operations are no-ops unless the order is in NEW or
// PAYMENT_REVIEW, which makes them safe to call redundantly from multiple
// reconciliation passes.
type PaymentActionService struct {
	orders repository.OrderRepository
}

// NewPaymentActionService creates a new PaymentActionService.
func NewPaymentActionService(orders repository.OrderRepository) *PaymentActionService {
	return &PaymentActionService{orders: orders}
}

func actionable(order *domain.Order) bool {
	return order.State == domain.OrderStateNew || order.State == domain.OrderStatePaymentReview
}

// paymentDetail is the provider detail stored verbatim on the payment record.
type paymentDetail struct {
	OrderReference   string `json:"order_reference"`
	Status           string `json:"status"`
	AuthorizedAmount int64  `json:"authorized_amount"`
	CapturedAmount   int64  `json:"captured_amount"`
	CancelledAmount  int64  `json:"cancelled_amount"`
	RefundedAmount   int64  `json:"refunded_amount"`
}

func rawDetails(state *domain.PaymentState) string {
	detail := paymentDetail{
		OrderReference:   state.OrderReference,
		Status:           string(state.Status),
		AuthorizedAmount: state.AuthorizedAmount,
		CapturedAmount:   state.CapturedAmount,
		CancelledAmount:  state.CancelledAmount,
		RefundedAmount:   state.RefundedAmount,
	}
	encoded, err := json.Marshal(detail)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// Authorize attaches the provider transaction to the order and marks the
// authorized amount, leaving the transaction open for a later capture.
func (s *PaymentActionService) Authorize(ctx context.Context, order *domain.Order, state *domain.PaymentState) error {
	if !actionable(order) {
		return nil
	}

	order.Payment.TransactionID = state.OrderReference
	order.Payment.RawDetails = rawDetails(state)
	order.Payment.Closed = false
	order.Payment.AmountAuthorized = order.TotalDue
	order.State = domain.OrderStateProcessing

	return s.orders.Save(ctx, order)
}

// Capture authorizes and immediately registers the capture, for merchants
// configured to capture together with authorization.
func (s *PaymentActionService) Capture(ctx context.Context, order *domain.Order, state *domain.PaymentState) error {
	if !actionable(order) {
		return nil
	}

	order.Payment.TransactionID = state.OrderReference
	order.Payment.RawDetails = rawDetails(state)
	order.Payment.Closed = true
	order.Payment.AmountAuthorized = order.TotalDue
	order.Payment.AmountPaid = order.TotalDue
	order.Payment.CaptureRegistered = true
	order.State = domain.OrderStateProcessing

	return s.orders.Save(ctx, order)
}
