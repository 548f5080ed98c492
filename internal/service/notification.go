package service

import (
	"context"
	"log"

	"vipps/internal/domain"
)

// Notifier delivers buyer-facing notifications. Delivery failures never roll
// back a financial state transition; a missed notification is recoverable, a
// missed financial update is not.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
}

// NotificationService delivers buyer notifications.
type NotificationService struct {
	// A production deployment would plug in an email client here; the
	// service keeps the delivery contract and logs the payload.
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

var _ Notifier = (*NotificationService)(nil)

// SendOrderConfirmation sends the buyer the order confirmation.
func (s *NotificationService) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	log.Printf("[NOTIFICATION] order confirmation: order=%s total=%s", order.IncrementID, order.GrandTotal.StringFixed(2))
	return nil
}
