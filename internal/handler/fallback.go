package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vipps/internal/domain"
	"vipps/internal/repository"
	"vipps/internal/service"
)

// FallbackURLs are the three destinations a finished fallback maps to.
type FallbackURLs struct {
	Success     string
	Pending     string
	CartRestore string
}

// FallbackHandler handles the browser returning from the provider. The
// webhook usually wins the race and has already reconciled; this handler
// re-runs the processor (idempotent) and routes the buyer by the outcome.
type FallbackHandler struct {
	records   repository.ReservationRepository
	processor Processor
	urls      FallbackURLs

	// statusCheck gates re-validation of the record status before
	// processing. Off by default: a buyer revisiting the fallback URL after
	// completion should land on the success page, not an error.
	statusCheck bool
}

// NewFallbackHandler creates a new FallbackHandler.
func NewFallbackHandler(records repository.ReservationRepository, processor Processor, urls FallbackURLs, statusCheck bool) *FallbackHandler {
	return &FallbackHandler{records: records, processor: processor, urls: urls, statusCheck: statusCheck}
}

// Fallback handles GET /v1/vipps/fallback/:orderId
func (h *FallbackHandler) Fallback(c *gin.Context) {
	orderID := c.Param("orderId")
	ctx := c.Request.Context()

	record, err := h.records.GetByReservedOrderID(ctx, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	if auth := c.Query("auth"); auth == "" || auth != record.AuthToken {
		respondError(c, service.ErrInvalidAuthToken)
		return
	}

	if h.statusCheck && record.Status.Terminal() {
		respondError(c, service.ErrRecordNotProcessable)
		return
	}

	state, err := h.processor.Process(ctx, record)
	if err != nil {
		log.Printf("vipps fallback for order %s: %v", orderID, err)
		c.Redirect(http.StatusFound, h.urls.CartRestore)
		return
	}

	switch state.Status {
	case domain.PaymentStatusAuthorized, domain.PaymentStatusCaptured:
		c.Redirect(http.StatusFound, h.urls.Success)
	case domain.PaymentStatusCancelled, domain.PaymentStatusVoided,
		domain.PaymentStatusAborted, domain.PaymentStatusExpired:
		c.Redirect(http.StatusFound, h.urls.CartRestore)
	default:
		c.Redirect(http.StatusFound, h.urls.Pending)
	}
}
