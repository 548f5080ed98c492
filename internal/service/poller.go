package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"vipps/internal/domain"
	"vipps/internal/repository"
)

// Poller periodically reconciles pending reservation records against the
// provider. It is one of the three independent entry points into the
// processor and assumes nothing about what the webhook or fallback handlers
// have already done.
type Poller struct {
	records   repository.ReservationRepository
	processor *TransactionProcessor

	interval    time.Duration
	pageSize    int
	maxAttempts int
	// throttle bounds the outbound request rate to the provider between
	// successive records; a rate-limit concern, not a correctness one.
	throttle time.Duration
}

// NewPoller creates a new Poller.
func NewPoller(records repository.ReservationRepository, processor *TransactionProcessor, interval time.Duration, pageSize, maxAttempts int, throttle time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 50
	}
	return &Poller{
		records:     records,
		processor:   processor,
		interval:    interval,
		pageSize:    pageSize,
		maxAttempts: maxAttempts,
		throttle:    throttle,
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				log.Printf("poller: %v", err)
			}
		}
	}
}

// RunOnce processes one page of pending records. A failing record is logged
// and recorded as an attempt; the batch continues.
func (p *Poller) RunOnce(ctx context.Context) error {
	statuses := []domain.RecordStatus{domain.RecordStatusNew, domain.RecordStatusPending}

	records, err := p.records.ListProcessable(ctx, statuses, p.maxAttempts, p.pageSize)
	if err != nil {
		return err
	}

	for i, record := range records {
		record.AttemptCount++
		if err := p.records.Update(ctx, record); err != nil {
			log.Printf("poller: update record %s: %v", record.ID, err)
			continue
		}

		if _, err := p.processor.Process(ctx, record); err != nil {
			log.Printf("poller: process record %s (order %s): %v", record.ID, record.ReservedOrderID, err)
			attempt := &domain.ReservationAttempt{
				ID:        uuid.New().String(),
				RecordID:  record.ID,
				Message:   err.Error(),
				CreatedAt: time.Now(),
			}
			if aerr := p.records.SaveAttempt(ctx, attempt); aerr != nil {
				log.Printf("poller: save attempt for record %s: %v", record.ID, aerr)
			}
		}

		if p.throttle > 0 && i < len(records)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.throttle):
			}
		}
	}

	return nil
}
