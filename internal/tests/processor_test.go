package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vipps/internal/domain"
	"vipps/internal/service"
)

// ──────────────────────────────────────────────
// RECONCILIATION PROCESSOR
// ──────────────────────────────────────────────

type processorFixture struct {
	lockStore *MockLockStore
	client    *MockGatewayClient
	records   *MockReservationRepository
	orders    *MockOrderRepository
	carts     *MockCartRepository
	notifier  *MockNotifier
	resolver  *MockActionResolver
	processor *service.TransactionProcessor
}

func newProcessorFixture() *processorFixture {
	f := &processorFixture{
		lockStore: NewMockLockStore(),
		client:    NewMockGatewayClient(),
		records:   NewMockReservationRepository(),
		orders:    NewMockOrderRepository(),
		notifier:  NewMockNotifier(),
		resolver:  &MockActionResolver{Action: domain.PaymentActionAuthorize},
	}
	f.carts = NewMockCartRepository(f.orders)

	locks := service.NewLockManager(f.lockStore)
	orderPlace := service.NewOrderPlaceService(locks, f.orders, f.carts)
	action := service.NewPaymentActionService(f.orders)
	f.processor = service.NewTransactionProcessor(
		locks, f.client, f.records, f.orders, orderPlace, action,
		f.resolver, f.notifier, 5*time.Minute,
	)
	return f
}

// addReservation seeds a cart and its matching reservation record.
func (f *processorFixture) addReservation(subtotal string) *domain.ReservationRecord {
	cart := &domain.Cart{
		ID:              "cart-1",
		StoreID:         "store-1",
		ReservedOrderID: "000000042",
		Subtotal:        decimal.RequireFromString(subtotal),
	}
	f.carts.AddCart(cart)

	record := &domain.ReservationRecord{
		ID:              "rec-1",
		CartID:          cart.ID,
		ReservedOrderID: cart.ReservedOrderID,
		StoreID:         cart.StoreID,
		AuthToken:       "secret-token",
		Status:          domain.RecordStatusNew,
		CreatedAt:       time.Now(),
	}
	f.records.AddRecord(record)
	return record
}

func authorizedState(orderReference string, amountMinor int64) *domain.PaymentState {
	now := time.Now()
	return &domain.PaymentState{
		OrderReference:   orderReference,
		Status:           domain.PaymentStatusAuthorized,
		AuthorizedAmount: amountMinor,
		History: []domain.Operation{
			{Kind: domain.OperationInitiate, Success: true, Timestamp: now.Add(-2 * time.Minute)},
			{Kind: domain.OperationReserve, Success: true, Amount: amountMinor, Timestamp: now},
		},
	}
}

func TestProcess_AuthorizedPayment_PlacesOrderAndAuthorizes(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(authorizedState(record.ReservedOrderID, 5000))

	state, err := f.processor.Process(context.Background(), record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Status != domain.PaymentStatusAuthorized {
		t.Errorf("expected state %s, got %s", domain.PaymentStatusAuthorized, state.Status)
	}

	if f.carts.PlaceOrderCallCount != 1 {
		t.Errorf("expected 1 order placement, got %d", f.carts.PlaceOrderCallCount)
	}

	stored := f.records.GetRecord(record.ID)
	if stored.Status != domain.RecordStatusReserved {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusReserved, stored.Status)
	}
	if stored.OrderID == "" {
		t.Error("expected order id to be set on the record")
	}

	order := f.orders.GetOrder(stored.OrderID)
	if order == nil {
		t.Fatal("placed order not found")
	}
	if order.State != domain.OrderStateProcessing {
		t.Errorf("expected order state %s, got %s", domain.OrderStateProcessing, order.State)
	}
	if order.Payment.TransactionID != record.ReservedOrderID {
		t.Errorf("expected transaction id %s, got %s", record.ReservedOrderID, order.Payment.TransactionID)
	}
	if order.Payment.Closed {
		t.Error("authorize must leave the transaction open for a later capture")
	}
	if !order.Payment.AmountAuthorized.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("expected authorized amount 50.00, got %s", order.Payment.AmountAuthorized)
	}

	if f.notifier.SendCallCount != 1 {
		t.Errorf("expected 1 buyer notification, got %d", f.notifier.SendCallCount)
	}
	if !order.EmailSent {
		t.Error("expected order to be marked notified")
	}
}

func TestProcess_SecondPass_DoesNotPlaceTwice(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(authorizedState(record.ReservedOrderID, 5000))

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	// A webhook retry and the poller may both deliver again.
	for i := 0; i < 3; i++ {
		if _, err := f.processor.Process(context.Background(), record); err != nil {
			t.Fatalf("pass %d failed: %v", i+2, err)
		}
	}

	if f.carts.PlaceOrderCallCount != 1 {
		t.Errorf("expected exactly 1 order placement, got %d", f.carts.PlaceOrderCallCount)
	}
	if f.orders.CountOrders() != 1 {
		t.Errorf("expected 1 order, got %d", f.orders.CountOrders())
	}
	if f.notifier.SendCallCount != 1 {
		t.Errorf("expected exactly 1 buyer notification, got %d", f.notifier.SendCallCount)
	}
}

func TestProcess_CapturePayment_ClosesTransaction(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	f.resolver.Action = domain.PaymentActionAuthorizeCapture
	record := f.addReservation("50.00")
	f.client.SetState(authorizedState(record.ReservedOrderID, 5000))

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.records.GetRecord(record.ID)
	order := f.orders.GetOrder(stored.OrderID)
	if order == nil {
		t.Fatal("placed order not found")
	}
	if !order.Payment.Closed {
		t.Error("expected transaction to be closed")
	}
	if !order.Payment.CaptureRegistered {
		t.Error("expected capture to be registered")
	}
	if !order.Payment.AmountPaid.Equal(order.TotalDue) {
		t.Errorf("expected amount paid %s, got %s", order.TotalDue, order.Payment.AmountPaid)
	}
}

func TestProcess_CancelledPayment_NoOrder_MarksRecordCanceled(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(&domain.PaymentState{
		OrderReference:  record.ReservedOrderID,
		Status:          domain.PaymentStatusCancelled,
		CancelledAmount: 5000,
	})

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.records.GetRecord(record.ID)
	if stored.Status != domain.RecordStatusCanceled {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusCanceled, stored.Status)
	}
	if f.orders.CancelCallCount != 0 {
		t.Errorf("no order exists, expected 0 cancel calls, got %d", f.orders.CancelCallCount)
	}
	if f.carts.PlaceOrderCallCount != 0 {
		t.Errorf("expected no order placement, got %d", f.carts.PlaceOrderCallCount)
	}
}

func TestProcess_CancelledPayment_WithOrder_CancelsOrder(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")

	// An earlier pass placed the order, then the payment was cancelled.
	order := &domain.Order{
		ID:          "order-cart-1",
		IncrementID: record.ReservedOrderID,
		State:       domain.OrderStateNew,
	}
	f.orders.AddOrder(order)
	record.OrderID = order.ID
	if err := f.records.Update(context.Background(), record); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	f.client.SetState(&domain.PaymentState{
		OrderReference: record.ReservedOrderID,
		Status:         domain.PaymentStatusCancelled,
	})

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.orders.CancelCallCount != 1 {
		t.Errorf("expected 1 cancel call, got %d", f.orders.CancelCallCount)
	}
	if got := f.orders.GetOrder(order.ID).State; got != domain.OrderStateCanceled {
		t.Errorf("expected order state %s, got %s", domain.OrderStateCanceled, got)
	}
	if got := f.records.GetRecord(record.ID).Status; got != domain.RecordStatusCanceled {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusCanceled, got)
	}
}

func TestProcess_OrderCancelFails_MarksRecordCancelFailed(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")

	order := &domain.Order{ID: "order-cart-1", IncrementID: record.ReservedOrderID, State: domain.OrderStateNew}
	f.orders.AddOrder(order)
	record.OrderID = order.ID
	if err := f.records.Update(context.Background(), record); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	f.orders.CancelError = ErrMockDBConstraint
	f.client.SetState(&domain.PaymentState{
		OrderReference: record.ReservedOrderID,
		Status:         domain.PaymentStatusCancelled,
	})

	_, err := f.processor.Process(context.Background(), record)
	if err == nil {
		t.Fatal("expected error when order cancel fails")
	}

	stored := f.records.GetRecord(record.ID)
	if stored.Status != domain.RecordStatusCancelFailed {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusCancelFailed, stored.Status)
	}
}

func TestProcess_ExpiredPayment_MarksRecordExpired(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(&domain.PaymentState{
		OrderReference: record.ReservedOrderID,
		Status:         domain.PaymentStatusInitiated,
		History: []domain.Operation{
			{Kind: domain.OperationInitiate, Success: true, Timestamp: time.Now().Add(-10 * time.Minute)},
		},
	})

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.records.GetRecord(record.ID)
	if stored.Status != domain.RecordStatusExpired {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusExpired, stored.Status)
	}
	if f.carts.PlaceOrderCallCount != 0 {
		t.Errorf("expected no order placement for expired payment, got %d", f.carts.PlaceOrderCallCount)
	}
}

func TestProcess_InitiatedWithinWindow_MovesNewToPending(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(&domain.PaymentState{
		OrderReference: record.ReservedOrderID,
		Status:         domain.PaymentStatusInitiated,
		History: []domain.Operation{
			{Kind: domain.OperationInitiate, Success: true, Timestamp: time.Now()},
		},
	})

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.records.GetRecord(record.ID)
	if stored.Status != domain.RecordStatusPending {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusPending, stored.Status)
	}
	if f.carts.PlaceOrderCallCount != 0 {
		t.Errorf("expected no order placement while pending, got %d", f.carts.PlaceOrderCallCount)
	}
}

func TestProcess_ReceiptFailure_DoesNotAbortReconciliation(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(authorizedState(record.ReservedOrderID, 5000))
	f.client.SendReceiptError = ErrMockTimeout

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("receipt failure must not fail the pass: %v", err)
	}

	stored := f.records.GetRecord(record.ID)
	if stored.Status != domain.RecordStatusReserved {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusReserved, stored.Status)
	}
	if f.carts.PlaceOrderCallCount != 1 {
		t.Errorf("expected order placement despite receipt failure, got %d", f.carts.PlaceOrderCallCount)
	}
}

func TestProcess_NotificationFailure_DoesNotAbortReconciliation(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(authorizedState(record.ReservedOrderID, 5000))
	f.notifier.SendError = ErrMockTimeout

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("notification failure must not fail the pass: %v", err)
	}

	stored := f.records.GetRecord(record.ID)
	if stored.Status != domain.RecordStatusReserved {
		t.Errorf("expected record status %s, got %s", domain.RecordStatusReserved, stored.Status)
	}
	// The order stays un-notified so a later pass can retry the send.
	order := f.orders.GetOrder(stored.OrderID)
	if order.EmailSent {
		t.Error("expected order to stay un-notified after a failed send")
	}
	if f.orders.NotifyCallCount != 0 {
		t.Errorf("expected no notify write after failed send, got %d", f.orders.NotifyCallCount)
	}
}

func TestProcess_WrongAmount_AbortsWithoutPlacing(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("49.00")
	f.client.SetState(authorizedState(record.ReservedOrderID, 5000))

	_, err := f.processor.Process(context.Background(), record)
	if !errors.Is(err, service.ErrWrongAmount) {
		t.Fatalf("expected ErrWrongAmount, got %v", err)
	}

	if f.carts.PlaceOrderCallCount != 0 {
		t.Errorf("expected no order placement on amount mismatch, got %d", f.carts.PlaceOrderCallCount)
	}
	stored := f.records.GetRecord(record.ID)
	if stored.Status != domain.RecordStatusNew {
		t.Errorf("expected record to stay %s, got %s", domain.RecordStatusNew, stored.Status)
	}
	if f.lockStore.Held("place_order:" + record.ReservedOrderID) {
		t.Error("expected lock to be released after a failed pass")
	}
}

func TestProcess_LockBusy_ReturnsAcquireLockFailed(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(authorizedState(record.ReservedOrderID, 5000))
	f.lockStore.ForceAcquireFailure = true

	_, err := f.processor.Process(context.Background(), record)
	if !errors.Is(err, service.ErrAcquireLockFailed) {
		t.Fatalf("expected ErrAcquireLockFailed, got %v", err)
	}

	if f.client.GetStateCallCount != 0 {
		t.Errorf("expected no provider fetch without the lock, got %d", f.client.GetStateCallCount)
	}
	if f.lockStore.AcquireCallCount != 10 {
		t.Errorf("expected 10 acquire attempts, got %d", f.lockStore.AcquireCallCount)
	}
}

func TestProcess_LockReleasedAfterSuccessfulPass(t *testing.T) {
	t.Parallel()

	f := newProcessorFixture()
	record := f.addReservation("50.00")
	f.client.SetState(authorizedState(record.ReservedOrderID, 5000))

	if _, err := f.processor.Process(context.Background(), record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.lockStore.Held("place_order:" + record.ReservedOrderID) {
		t.Error("expected lock to be released")
	}
	if f.lockStore.ReleaseCallCount != 1 {
		t.Errorf("expected 1 release, got %d", f.lockStore.ReleaseCallCount)
	}
}
