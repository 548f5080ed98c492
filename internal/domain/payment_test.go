package domain

import (
	"testing"
	"time"
)

func op(kind OperationKind, success bool, amount int64, at time.Time) Operation {
	return Operation{Kind: kind, Success: success, Amount: amount, Timestamp: at}
}

func TestDeriveStatus_CancelWinsRegardlessOfScanOrder(t *testing.T) {
	t.Parallel()

	now := time.Now()
	reserve := op(OperationReserve, true, 5000, now.Add(-time.Minute))
	cancel := op(OperationCancel, true, 5000, now)

	// Out-of-order delivery may present the history either way around.
	if got := DeriveStatus([]Operation{reserve, cancel}); got != PaymentStatusCancelled {
		t.Errorf("reserve-then-cancel: expected %s, got %s", PaymentStatusCancelled, got)
	}
	if got := DeriveStatus([]Operation{cancel, reserve}); got != PaymentStatusCancelled {
		t.Errorf("cancel-then-reserve: expected %s, got %s", PaymentStatusCancelled, got)
	}
}

func TestDeriveStatus_Precedence(t *testing.T) {
	t.Parallel()

	now := time.Now()
	testCases := []struct {
		name    string
		history []Operation
		want    PaymentStatus
	}{
		{
			name:    "empty history is initiated",
			history: nil,
			want:    PaymentStatusInitiated,
		},
		{
			name:    "initiate only",
			history: []Operation{op(OperationInitiate, true, 0, now)},
			want:    PaymentStatusInitiated,
		},
		{
			name: "reserve",
			history: []Operation{
				op(OperationInitiate, true, 0, now.Add(-time.Minute)),
				op(OperationReserve, true, 5000, now),
			},
			want: PaymentStatusAuthorized,
		},
		{
			name: "capture beats reserve",
			history: []Operation{
				op(OperationReserve, true, 5000, now.Add(-time.Minute)),
				op(OperationCapture, true, 5000, now),
			},
			want: PaymentStatusCaptured,
		},
		{
			name: "void beats capture",
			history: []Operation{
				op(OperationCapture, true, 5000, now.Add(-time.Minute)),
				op(OperationVoid, true, 5000, now),
			},
			want: PaymentStatusVoided,
		},
		{
			name: "cancel beats everything",
			history: []Operation{
				op(OperationReserve, true, 5000, now.Add(-2*time.Minute)),
				op(OperationCapture, true, 5000, now.Add(-time.Minute)),
				op(OperationCancel, true, 5000, now),
			},
			want: PaymentStatusCancelled,
		},
		{
			name: "failed operations are ignored",
			history: []Operation{
				op(OperationInitiate, true, 0, now.Add(-time.Minute)),
				op(OperationReserve, false, 5000, now),
			},
			want: PaymentStatusInitiated,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DeriveStatus(tc.history); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRemainingAmountToCapture(t *testing.T) {
	t.Parallel()

	state := &PaymentState{
		AuthorizedAmount: 10000,
		CapturedAmount:   2500,
		CancelledAmount:  1000,
		RefundedAmount:   500,
	}
	if got := state.RemainingAmountToCapture(); got != 6000 {
		t.Errorf("expected 6000, got %d", got)
	}

	// A provider-side desync yields a negative remainder; it must surface,
	// not be clamped.
	desynced := &PaymentState{AuthorizedAmount: 1000, CapturedAmount: 2000}
	if got := desynced.RemainingAmountToCapture(); got != -1000 {
		t.Errorf("expected -1000, got %d", got)
	}
}

func TestLastSuccessfulAndFailed(t *testing.T) {
	t.Parallel()

	now := time.Now()
	early := Operation{Kind: OperationCapture, Success: true, Amount: 1000, Timestamp: now.Add(-2 * time.Minute), RequestID: "req-1"}
	late := Operation{Kind: OperationCapture, Success: true, Amount: 2000, Timestamp: now, RequestID: "req-2"}
	failed := Operation{Kind: OperationCapture, Success: false, Amount: 3000, Timestamp: now.Add(-time.Minute), RequestID: "req-3"}

	state := &PaymentState{History: []Operation{early, failed, late}}

	got := state.LastSuccessful(OperationCapture)
	if got == nil || got.RequestID != "req-2" {
		t.Errorf("expected most recent successful capture req-2, got %+v", got)
	}

	gotFailed := state.LastFailed(OperationCapture)
	if gotFailed == nil || gotFailed.RequestID != "req-3" {
		t.Errorf("expected failed capture req-3, got %+v", gotFailed)
	}

	if state.LastSuccessful(OperationRefund) != nil {
		t.Error("expected nil for a kind with no operations")
	}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	window := 5 * time.Minute

	stale := &PaymentState{
		Status: PaymentStatusInitiated,
		History: []Operation{
			op(OperationInitiate, true, 0, time.Now().Add(-6*time.Minute)),
		},
	}
	if !stale.IsExpired(window) {
		t.Error("expected payment initiated 6 minutes ago to be expired")
	}

	fresh := &PaymentState{
		Status: PaymentStatusInitiated,
		History: []Operation{
			op(OperationInitiate, true, 0, time.Now().Add(-4*time.Minute)),
		},
	}
	if fresh.IsExpired(window) {
		t.Error("expected payment initiated 4 minutes ago to not be expired")
	}

	// Only still-initiated payments expire.
	authorized := &PaymentState{
		Status: PaymentStatusAuthorized,
		History: []Operation{
			op(OperationInitiate, true, 0, time.Now().Add(-time.Hour)),
			op(OperationReserve, true, 5000, time.Now().Add(-time.Hour)),
		},
	}
	if authorized.IsExpired(window) {
		t.Error("an authorized payment must never be expired")
	}
}

func TestRecordStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := []RecordStatus{RecordStatusReserved, RecordStatusCanceled, RecordStatusExpired}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	// CANCEL_FAILED stays processable so a later pass can retry the cancel.
	open := []RecordStatus{RecordStatusNew, RecordStatusPending, RecordStatusCancelFailed}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}
