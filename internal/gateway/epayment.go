package gateway

import (
	"strings"
	"time"

	"vipps/internal/domain"
)

// ePayment API payloads: a coarse state plus an aggregate of the four
// amounts, with a separate event log.

type epaymentAmount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type epaymentAggregate struct {
	AuthorizedAmount epaymentAmount `json:"authorizedAmount"`
	CapturedAmount   epaymentAmount `json:"capturedAmount"`
	CancelledAmount  epaymentAmount `json:"cancelledAmount"`
	RefundedAmount   epaymentAmount `json:"refundedAmount"`
}

type epaymentPayment struct {
	Reference string            `json:"reference"`
	State     string            `json:"state"`
	Aggregate epaymentAggregate `json:"aggregate"`
}

type epaymentEvent struct {
	Name           string         `json:"name"`
	Success        bool           `json:"success"`
	Amount         epaymentAmount `json:"amount"`
	Timestamp      time.Time      `json:"timestamp"`
	IdempotencyKey string         `json:"idempotencyKey"`
}

func epaymentEventKind(name string) (domain.OperationKind, bool) {
	switch strings.ToUpper(name) {
	case "CREATED":
		return domain.OperationInitiate, true
	case "AUTHORIZED":
		return domain.OperationReserve, true
	case "CAPTURED":
		return domain.OperationCapture, true
	case "REFUNDED":
		return domain.OperationRefund, true
	case "CANCELLED", "TERMINATED":
		return domain.OperationCancel, true
	}
	return "", false
}

func normalizeEpayment(p *epaymentPayment, events []epaymentEvent) *domain.PaymentState {
	state := &domain.PaymentState{
		OrderReference:   p.Reference,
		AuthorizedAmount: p.Aggregate.AuthorizedAmount.Value,
		CapturedAmount:   p.Aggregate.CapturedAmount.Value,
		CancelledAmount:  p.Aggregate.CancelledAmount.Value,
		RefundedAmount:   p.Aggregate.RefundedAmount.Value,
	}

	for _, ev := range events {
		kind, ok := epaymentEventKind(ev.Name)
		if !ok {
			continue
		}
		state.History = append(state.History, domain.Operation{
			Kind:      kind,
			Success:   ev.Success,
			Amount:    ev.Amount.Value,
			Timestamp: ev.Timestamp,
			RequestID: ev.IdempotencyKey,
		})
	}

	switch strings.ToUpper(p.State) {
	case "AUTHORIZED":
		state.Status = domain.PaymentStatusAuthorized
	case "TERMINATED":
		state.Status = domain.PaymentStatusCancelled
	case "ABORTED":
		state.Status = domain.PaymentStatusAborted
	case "EXPIRED":
		state.Status = domain.PaymentStatusExpired
	default: // CREATED
		state.Status = domain.PaymentStatusInitiated
	}
	return state
}
