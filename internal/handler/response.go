package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vipps/internal/gateway"
	"vipps/internal/repository"
	"vipps/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var gatewayErr *gateway.Error

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidCartID):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidAuthToken):
		return http.StatusUnauthorized

	// Still being processed elsewhere, or in a state that refuses the
	// request right now.
	case errors.Is(err, service.ErrAcquireLockFailed),
		errors.Is(err, service.ErrRecordNotProcessable),
		errors.Is(err, service.ErrWrongAmount),
		errors.Is(err, service.ErrCartMismatch):
		return http.StatusConflict

	// Provider transport or provider-reported failure.
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
