package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tricycle/internal/repository"
	"tricycle/internal/service"
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
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation and state errors - Bad Request
	case errors.Is(err, service.ErrRideNotAvailable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRideAlreadyAssigned),
		errors.Is(err, service.ErrInvalidCustomerID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidOriginLocation),
		errors.Is(err, service.ErrInvalidDestinationLocation),
		errors.Is(err, service.ErrInvalidStatusFilter),
		errors.Is(err, service.ErrInvalidPaymentAmount),
		errors.Is(err, service.ErrInvalidPaymentEmail),
		errors.Is(err, service.ErrInvalidPaymentReference),
		errors.Is(err, service.ErrPaymentNotSuccessful):
		return http.StatusBadRequest

	// Forbidden: the caller is not the party the operation belongs to
	case errors.Is(err, service.ErrNotAssignedDriver):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
