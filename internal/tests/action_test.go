package tests

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"vipps/internal/domain"
	"vipps/internal/service"
)

// ──────────────────────────────────────────────
// PAYMENT ACTION GUARDS
// ──────────────────────────────────────────────

func TestPaymentAction_Authorize_OnNewOrder(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	action := service.NewPaymentActionService(orders)

	order := &domain.Order{
		ID:          "order-1",
		IncrementID: "000000042",
		State:       domain.OrderStateNew,
		TotalDue:    decimal.RequireFromString("50.00"),
	}
	orders.AddOrder(order)

	state := authorizedState("000000042", 5000)
	if err := action.Authorize(context.Background(), order, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := orders.GetOrder("order-1")
	if stored.State != domain.OrderStateProcessing {
		t.Errorf("expected state %s, got %s", domain.OrderStateProcessing, stored.State)
	}
	if stored.Payment.Closed {
		t.Error("authorize must leave the transaction open")
	}
	if stored.Payment.CaptureRegistered {
		t.Error("authorize must not register a capture")
	}
	if stored.Payment.RawDetails == "" {
		t.Error("expected provider details to be stored")
	}
}

func TestPaymentAction_Authorize_OnPaymentReviewOrder(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	action := service.NewPaymentActionService(orders)

	order := &domain.Order{
		ID:       "order-1",
		State:    domain.OrderStatePaymentReview,
		TotalDue: decimal.RequireFromString("50.00"),
	}
	orders.AddOrder(order)

	if err := action.Authorize(context.Background(), order, authorizedState("000000042", 5000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := orders.GetOrder("order-1").State; got != domain.OrderStateProcessing {
		t.Errorf("expected state %s, got %s", domain.OrderStateProcessing, got)
	}
}

func TestPaymentAction_NoopOnProcessedOrder(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	action := service.NewPaymentActionService(orders)

	// A previous pass already authorized this order.
	order := &domain.Order{
		ID:    "order-1",
		State: domain.OrderStateProcessing,
	}
	orders.AddOrder(order)

	state := authorizedState("000000042", 5000)
	if err := action.Authorize(context.Background(), order, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := action.Capture(context.Background(), order, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if orders.SaveCallCount != 0 {
		t.Errorf("expected no writes on an already-processed order, got %d", orders.SaveCallCount)
	}
}

func TestPaymentAction_NoopOnCanceledOrder(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	action := service.NewPaymentActionService(orders)

	order := &domain.Order{ID: "order-1", State: domain.OrderStateCanceled}
	orders.AddOrder(order)

	if err := action.Capture(context.Background(), order, authorizedState("000000042", 5000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orders.SaveCallCount != 0 {
		t.Errorf("expected no writes on a canceled order, got %d", orders.SaveCallCount)
	}
}

func TestPaymentAction_Capture_RegistersCapture(t *testing.T) {
	t.Parallel()

	orders := NewMockOrderRepository()
	action := service.NewPaymentActionService(orders)

	order := &domain.Order{
		ID:       "order-1",
		State:    domain.OrderStateNew,
		TotalDue: decimal.RequireFromString("50.00"),
	}
	orders.AddOrder(order)

	if err := action.Capture(context.Background(), order, authorizedState("000000042", 5000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := orders.GetOrder("order-1")
	if !stored.Payment.Closed {
		t.Error("expected transaction to be closed")
	}
	if !stored.Payment.CaptureRegistered {
		t.Error("expected capture to be registered")
	}
	if !stored.Payment.AmountPaid.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("expected amount paid 50.00, got %s", stored.Payment.AmountPaid)
	}
}
