package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusAssigned  RideStatus = "assigned"
	RideStatusInTransit RideStatus = "in_transit"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// PaymentStatus represents the payment state of a ride. It is an
// independent axis from RideStatus: a ride may complete before its
// payment is reconciled.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Ride represents a single transport request from creation through
// completion or cancellation.
type Ride struct {
	ID         string
	CustomerID string
	DriverID   string // empty until a driver claims the ride

	OriginAddress      string
	OriginLat          float64
	OriginLng          float64
	DestinationAddress string
	DestinationLat     float64
	DestinationLng     float64

	RideTime  float64 // estimated duration in minutes
	FarePrice float64

	Status           RideStatus
	PaymentStatus    PaymentStatus
	PaymentReference string // correlates the ride to a payment-provider transaction

	CreatedAt   time.Time
	StartedAt   time.Time // set once, on transition to in_transit
	CompletedAt time.Time // set once, on completion
	CancelledAt time.Time // set once, on cancellation

	// Populated party summaries, filled on read paths only.
	Customer *PartySummary
	Driver   *PartySummary
}

// HasDriver reports whether a driver is currently bound to the ride.
func (r *Ride) HasDriver() bool {
	return r.DriverID != ""
}

// RideStats holds aggregate ride counts by status.
type RideStats struct {
	Total     int64
	Pending   int64
	Assigned  int64
	InTransit int64
	Completed int64
	Cancelled int64
}

// FareTrend is the total fare volume for one calendar month.
type FareTrend struct {
	Month string // "2006-01"
	Total float64
}
