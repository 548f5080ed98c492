package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vipps/internal/domain"
	"vipps/internal/repository"
	"vipps/internal/service"
)

// Processor runs one reconciliation pass for a reservation record.
type Processor interface {
	Process(ctx context.Context, record *domain.ReservationRecord) (*domain.PaymentState, error)
}

// WebhookHandler handles provider callback deliveries. The provider retries
// delivery on failure; reconciliation is idempotent, so replays are safe.
type WebhookHandler struct {
	records   repository.ReservationRepository
	processor Processor
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(records repository.ReservationRepository, processor Processor) *WebhookHandler {
	return &WebhookHandler{records: records, processor: processor}
}

type transactionInfo struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}

type callbackRequest struct {
	OrderID         string          `json:"orderId"`
	TransactionInfo transactionInfo `json:"transactionInfo"`
}

// Callback handles POST /v1/vipps/callback
func (h *WebhookHandler) Callback(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "", fmt.Errorf("invalid callback payload: %w", err))
		return
	}
	if req.OrderID == "" {
		h.fail(c, "", fmt.Errorf("invalid callback payload: missing orderId"))
		return
	}

	ctx := c.Request.Context()

	record, err := h.records.GetByReservedOrderID(ctx, req.OrderID)
	if err != nil {
		h.fail(c, req.OrderID, err)
		return
	}

	if auth := c.GetHeader("Authorization"); auth == "" || auth != record.AuthToken {
		h.fail(c, req.OrderID, service.ErrInvalidAuthToken)
		return
	}

	if _, err := h.processor.Process(ctx, record); err != nil {
		h.fail(c, req.OrderID, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": http.StatusOK, "message": "success"})
}

// fail logs the failure at critical severity and answers 500; the provider
// will retry delivery.
func (h *WebhookHandler) fail(c *gin.Context, orderID string, err error) {
	log.Printf("CRITICAL: vipps callback for order %q: %v", orderID, err)
	respondJSON(c, http.StatusInternalServerError, gin.H{
		"status":  http.StatusInternalServerError,
		"message": fmt.Sprintf("order %s: %v", orderID, err),
	})
}
