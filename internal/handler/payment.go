package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tricycle/internal/service"
)

// PaymentHandler handles HTTP requests for ride payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitializePaymentRequest is the HTTP request body for initializing a
// payment. It carries the ride details so the ride is created only after
// the provider accepts the transaction.
type InitializePaymentRequest struct {
	Email  string            `json:"email"`
	Amount float64           `json:"amount"`
	Ride   CreateRideRequest `json:"ride"`
}

// InitializePaymentResponse is the HTTP response for initializing a payment.
type InitializePaymentResponse struct {
	AuthorizationURL string       `json:"authorization_url"`
	Reference        string       `json:"reference"`
	Ride             RideResponse `json:"ride"`
}

// VerifyPaymentResponse is the HTTP response for verifying a payment.
type VerifyPaymentResponse struct {
	Verified bool         `json:"verified"`
	Ride     RideResponse `json:"ride"`
}

// InitializePayment handles POST /v1/payments/initialize
func (h *PaymentHandler) InitializePayment(c *gin.Context) {
	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.paymentService.InitializePayment(c.Request.Context(), service.InitializePaymentRequest{
		Email:  req.Email,
		Amount: req.Amount,
		Ride: service.CreateRideRequest{
			CustomerID:         req.Ride.CustomerID,
			OriginAddress:      req.Ride.OriginAddress,
			OriginLat:          req.Ride.OriginLat,
			OriginLng:          req.Ride.OriginLng,
			DestinationAddress: req.Ride.DestinationAddress,
			DestinationLat:     req.Ride.DestinationLat,
			DestinationLng:     req.Ride.DestinationLng,
			RideTime:           req.Ride.RideTime,
			FarePrice:          req.Ride.FarePrice,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, InitializePaymentResponse{
		AuthorizationURL: result.AuthorizationURL,
		Reference:        result.Reference,
		Ride:             toRideResponse(result.Ride),
	})
}

// VerifyPayment handles GET /v1/payments/verify/:reference
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	ride, err := h.paymentService.VerifyPayment(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, VerifyPaymentResponse{
		Verified: true,
		Ride:     toRideResponse(ride),
	})
}
