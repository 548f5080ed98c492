package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vipps/internal/service"
)

// CheckoutHandler handles HTTP requests that start a Vipps payment.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// StartCheckoutRequest is the HTTP request body for starting a payment.
type StartCheckoutRequest struct {
	CartID  string `json:"cart_id"`
	Phone   string `json:"phone"`
	Express bool   `json:"express"`
}

// StartCheckoutResponse is the HTTP response for a started payment.
type StartCheckoutResponse struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

// Start handles POST /v1/vipps/checkout
func (h *CheckoutHandler) Start(c *gin.Context) {
	var req StartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.CartID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cart_id is required"})
		return
	}

	result, err := h.checkout.Start(c.Request.Context(), req.CartID, req.Phone, req.Express)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, StartCheckoutResponse{
		OrderID:     result.ReservedOrderID,
		RedirectURL: result.RedirectURL,
	})
}
