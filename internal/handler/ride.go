package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tricycle/internal/domain"
	"tricycle/internal/middleware"
	"tricycle/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	CustomerID         string  `json:"customer_id"`
	OriginAddress      string  `json:"origin_address"`
	OriginLat          float64 `json:"origin_lat"`
	OriginLng          float64 `json:"origin_lng"`
	DestinationAddress string  `json:"destination_address"`
	DestinationLat     float64 `json:"destination_lat"`
	DestinationLng     float64 `json:"destination_lng"`
	RideTime           float64 `json:"ride_time,omitempty"`
	FarePrice          float64 `json:"fare_price,omitempty"`
}

// PartyResponse is the public projection of a customer or driver attached
// to ride responses.
type PartyResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                 string         `json:"id"`
	CustomerID         string         `json:"customer_id"`
	DriverID           string         `json:"driver_id,omitempty"`
	OriginAddress      string         `json:"origin_address"`
	OriginLat          float64        `json:"origin_lat"`
	OriginLng          float64        `json:"origin_lng"`
	DestinationAddress string         `json:"destination_address"`
	DestinationLat     float64        `json:"destination_lat"`
	DestinationLng     float64        `json:"destination_lng"`
	RideTime           float64        `json:"ride_time"`
	FarePrice          float64        `json:"fare_price"`
	Status             string         `json:"status"`
	PaymentStatus      string         `json:"payment_status"`
	CreatedAt          string         `json:"created_at"`
	StartedAt          string         `json:"started_at,omitempty"`
	CompletedAt        string         `json:"completed_at,omitempty"`
	CancelledAt        string         `json:"cancelled_at,omitempty"`
	Customer           *PartyResponse `json:"customer,omitempty"`
	Driver             *PartyResponse `json:"driver,omitempty"`
}

// TrackRideResponse is the HTTP response for tracking a ride.
type TrackRideResponse struct {
	Ride       RideResponse `json:"ride"`
	CurrentLat float64      `json:"current_lat"`
	CurrentLng float64      `json:"current_lng"`
	Live       bool         `json:"live"`
}

// RideStatsResponse is the HTTP response for ride statistics.
type RideStatsResponse struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Assigned  int64 `json:"assigned"`
	InTransit int64 `json:"in_transit"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

// FareTrendResponse is one month of fare volume.
type FareTrendResponse struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:                 ride.ID,
		CustomerID:         ride.CustomerID,
		DriverID:           ride.DriverID,
		OriginAddress:      ride.OriginAddress,
		OriginLat:          ride.OriginLat,
		OriginLng:          ride.OriginLng,
		DestinationAddress: ride.DestinationAddress,
		DestinationLat:     ride.DestinationLat,
		DestinationLng:     ride.DestinationLng,
		RideTime:           ride.RideTime,
		FarePrice:          ride.FarePrice,
		Status:             string(ride.Status),
		PaymentStatus:      string(ride.PaymentStatus),
		CreatedAt:          ride.CreatedAt.Format(time.RFC3339),
	}
	if !ride.StartedAt.IsZero() {
		resp.StartedAt = ride.StartedAt.Format(time.RFC3339)
	}
	if !ride.CompletedAt.IsZero() {
		resp.CompletedAt = ride.CompletedAt.Format(time.RFC3339)
	}
	if !ride.CancelledAt.IsZero() {
		resp.CancelledAt = ride.CancelledAt.Format(time.RFC3339)
	}
	if ride.Customer != nil {
		resp.Customer = &PartyResponse{ID: ride.Customer.ID, FullName: ride.Customer.FullName, Phone: ride.Customer.Phone}
	}
	if ride.Driver != nil {
		resp.Driver = &PartyResponse{ID: ride.Driver.ID, FullName: ride.Driver.FullName, Phone: ride.Driver.Phone}
	}
	return resp
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	responses := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		responses = append(responses, toRideResponse(ride))
	}
	return responses
}

// callerDriverID returns the authenticated driver's party ID.
func callerDriverID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		CustomerID:         req.CustomerID,
		OriginAddress:      req.OriginAddress,
		OriginLat:          req.OriginLat,
		OriginLng:          req.OriginLng,
		DestinationAddress: req.DestinationAddress,
		DestinationLat:     req.DestinationLat,
		DestinationLng:     req.DestinationLng,
		RideTime:           req.RideTime,
		FarePrice:          req.FarePrice,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRideByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	rides, err := h.rideService.GetAllRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// GetUnassigned handles GET /v1/rides/unassigned
func (h *RideHandler) GetUnassigned(c *gin.Context) {
	rides, err := h.rideService.GetUnassignedRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// GetRecent handles GET /v1/rides/customer/:customerId/recent
func (h *RideHandler) GetRecent(c *gin.Context) {
	rides, err := h.rideService.GetRecentRides(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// GetDriverRides handles GET /v1/rides/driver/:driverId?status=
func (h *RideHandler) GetDriverRides(c *gin.Context) {
	rides, err := h.rideService.GetRidesByDriver(c.Request.Context(), c.Param("driverId"), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// AssignRide handles PATCH /v1/rides/:id/assign
func (h *RideHandler) AssignRide(c *gin.Context) {
	ride, err := h.rideService.AssignRide(c.Request.Context(), c.Param("id"), callerDriverID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// StartTrip handles PATCH /v1/rides/:id/start
func (h *RideHandler) StartTrip(c *gin.Context) {
	ride, err := h.rideService.StartTrip(c.Request.Context(), c.Param("id"), callerDriverID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelAssignment handles PATCH /v1/rides/:id/cancel-assign
func (h *RideHandler) CancelAssignment(c *gin.Context) {
	ride, err := h.rideService.CancelAssignment(c.Request.Context(), c.Param("id"), callerDriverID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CompleteRide handles PATCH /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	ride, err := h.rideService.CompleteRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles DELETE /v1/rides/:id
func (h *RideHandler) CancelRide(c *gin.Context) {
	ride, err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// TrackRide handles GET /v1/rides/:id/track
func (h *RideHandler) TrackRide(c *gin.Context) {
	tracked, err := h.rideService.TrackRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, TrackRideResponse{
		Ride:       toRideResponse(tracked.Ride),
		CurrentLat: tracked.CurrentLat,
		CurrentLng: tracked.CurrentLng,
		Live:       tracked.Live,
	})
}

// GetStats handles GET /v1/rides/stats
func (h *RideHandler) GetStats(c *gin.Context) {
	stats, err := h.rideService.GetRideStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RideStatsResponse{
		Total:     stats.Total,
		Pending:   stats.Pending,
		Assigned:  stats.Assigned,
		InTransit: stats.InTransit,
		Completed: stats.Completed,
		Cancelled: stats.Cancelled,
	})
}

// GetPaymentTrends handles GET /v1/rides/trends
func (h *RideHandler) GetPaymentTrends(c *gin.Context) {
	trends, err := h.rideService.GetPaymentTrends(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]FareTrendResponse, 0, len(trends))
	for _, t := range trends {
		response = append(response, FareTrendResponse{Month: t.Month, Total: t.Total})
	}
	respondJSON(c, http.StatusOK, response)
}
