package service

import (
	"context"
	"log"
	"time"

	"vipps/internal/domain"
	"vipps/internal/gateway"
	"vipps/internal/repository"
)

// DefaultExpiryWindow is how long an only-initiated payment may linger before
// it is treated as expired rather than pending.
const DefaultExpiryWindow = 5 * time.Minute

// TransactionProcessor reconciles asynchronous, possibly out-of-order payment
// status updates into committed local order state. All three entry points
// (webhook, polling cron, browser fallback) invoke Process with no assumption
// about delivery order or exactly-once delivery; the per-order lock plus a
// fresh re-read of both local and remote state inside the lock is what makes
// the cancel-vs-place decision safe.
type TransactionProcessor struct {
	locks        *LockManager
	client       gateway.Client
	records      repository.ReservationRepository
	orders       repository.OrderRepository
	orderPlace   *OrderPlaceService
	action       *PaymentActionService
	actions      ActionResolver
	notifier     Notifier
	expiryWindow time.Duration
}

// NewTransactionProcessor creates a new TransactionProcessor.
func NewTransactionProcessor(
	locks *LockManager,
	client gateway.Client,
	records repository.ReservationRepository,
	orders repository.OrderRepository,
	orderPlace *OrderPlaceService,
	action *PaymentActionService,
	actions ActionResolver,
	notifier Notifier,
	expiryWindow time.Duration,
) *TransactionProcessor {
	if expiryWindow <= 0 {
		expiryWindow = DefaultExpiryWindow
	}
	return &TransactionProcessor{
		locks:        locks,
		client:       client,
		records:      records,
		orders:       orders,
		orderPlace:   orderPlace,
		action:       action,
		actions:      actions,
		notifier:     notifier,
		expiryWindow: expiryWindow,
	}
}

// Process runs one reconciliation pass for the record and returns the fetched
// payment state. Errors inside the pass propagate to the caller after the
// lock is released; nothing here retries a transport failure, because
// idempotent placement makes it safe for the next delivery or cron pass to
// re-attempt.
func (p *TransactionProcessor) Process(ctx context.Context, record *domain.ReservationRecord) (*domain.PaymentState, error) {
	lock, err := p.locks.Acquire(ctx, placeOrderLockName(record.ReservedOrderID))
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	// Fresh provider per pass: one fetch per pass, never a stale one across
	// passes.
	state, err := NewPaymentProvider(p.client).Get(ctx, record.ReservedOrderID)
	if err != nil {
		return nil, err
	}

	// Re-load the record inside the lock; a concurrent pass may have mutated
	// it between this pass's start and lock acquisition.
	record, err = p.records.GetByID(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case state.Status == domain.PaymentStatusCancelled,
		state.Status == domain.PaymentStatusVoided,
		state.Status == domain.PaymentStatusAborted:
		err = p.finalize(ctx, record, domain.RecordStatusCanceled)

	case state.Status == domain.PaymentStatusAuthorized,
		state.Status == domain.PaymentStatusCaptured:
		err = p.placeAndAuthorize(ctx, record, state)

	case state.Status == domain.PaymentStatusExpired,
		state.IsExpired(p.expiryWindow):
		// Buyer never acted; reported distinctly from an explicit cancel.
		err = p.finalize(ctx, record, domain.RecordStatusExpired)

	default:
		// Initiated and not yet expired: leave for a future pass.
		if record.Status == domain.RecordStatusNew {
			record.Status = domain.RecordStatusPending
			err = p.records.Update(ctx, record)
		}
	}

	if err != nil {
		return state, err
	}
	return state, nil
}

// finalize cancels any already-placed order and moves the record to its
// terminal status (Canceled or Expired).
func (p *TransactionProcessor) finalize(ctx context.Context, record *domain.ReservationRecord, terminal domain.RecordStatus) error {
	if record.OrderID != "" {
		if err := p.orders.Cancel(ctx, record.OrderID); err != nil {
			record.Status = domain.RecordStatusCancelFailed
			if uerr := p.records.Update(ctx, record); uerr != nil {
				log.Printf("mark record %s cancel-failed: %v", record.ID, uerr)
			}
			return err
		}
	}

	record.Status = terminal
	return p.records.Update(ctx, record)
}

// placeAndAuthorize places the order if none exists yet, then applies the
// configured payment action and buyer notification.
func (p *TransactionProcessor) placeAndAuthorize(ctx context.Context, record *domain.ReservationRecord, state *domain.PaymentState) error {
	var (
		order *domain.Order
		err   error
	)

	if record.OrderID == "" {
		// The place-order lock is already held by this pass.
		order, err = p.orderPlace.place(ctx, record.ReservedOrderID, record.CartID, state)
		if err != nil {
			return err
		}
		record.OrderID = order.ID
	} else {
		order, err = p.orders.GetByIncrementID(ctx, record.ReservedOrderID)
		if err != nil {
			return err
		}
	}

	// Receipt delivery must not abort reconciliation.
	if err := p.client.SendReceipt(ctx, order); err != nil {
		log.Printf("send receipt for order %s: %v", order.IncrementID, err)
	}

	action, err := p.actions.PaymentAction(ctx, record.StoreID)
	if err != nil {
		return err
	}

	switch action {
	case domain.PaymentActionAuthorizeCapture:
		err = p.action.Capture(ctx, order, state)
	default:
		err = p.action.Authorize(ctx, order, state)
	}
	if err != nil {
		return err
	}

	if !order.EmailSent {
		if err := p.notifier.SendOrderConfirmation(ctx, order); err != nil {
			log.Printf("order confirmation for %s: %v", order.IncrementID, err)
		} else {
			order.EmailSent = true
			if err := p.orders.Notify(ctx, order.ID); err != nil {
				log.Printf("mark order %s notified: %v", order.IncrementID, err)
			}
		}
	}

	record.Status = domain.RecordStatusReserved
	return p.records.Update(ctx, record)
}
