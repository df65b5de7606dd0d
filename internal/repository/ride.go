package repository

import (
	"context"
	"time"

	"tricycle/internal/domain"
)

// RideRepository defines the persistence operations for rides.
//
// Every state transition is a single conditional update: the WHERE clause
// carries the transition guard, so two racing callers are serialized by
// the database and the loser receives ErrPrecondition. Callers never do a
// separate read-then-write for transitions.
type RideRepository interface {
	// Create persists a new ride in pending state.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetAll retrieves all rides, newest first.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// GetByStatus retrieves rides with the given status, newest first.
	GetByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error)

	// GetByDriverAndStatus retrieves a driver's rides filtered by status,
	// newest first.
	GetByDriverAndStatus(ctx context.Context, driverID string, status domain.RideStatus) ([]*domain.Ride, error)

	// GetRecentByCustomer retrieves a customer's most recent rides.
	GetRecentByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Ride, error)

	// Assign binds a driver to a pending, unassigned ride. Guard:
	// status=pending AND driver unset.
	Assign(ctx context.Context, rideID, driverID string) (*domain.Ride, error)

	// Unassign releases the given driver from an assigned ride and
	// reverts it to pending. Guard: status=assigned AND driver matches.
	Unassign(ctx context.Context, rideID, driverID string) (*domain.Ride, error)

	// Start moves an assigned ride into transit and stamps started_at.
	// Guard: status=assigned AND driver matches.
	Start(ctx context.Context, rideID, driverID string, at time.Time) (*domain.Ride, error)

	// Complete finishes a ride, stamps completed_at and forces the
	// payment status to paid. Guard: status in (assigned, in_transit).
	Complete(ctx context.Context, rideID string, at time.Time) (*domain.Ride, error)

	// Cancel marks a pending, unassigned ride cancelled and stamps
	// cancelled_at. Guard: status=pending AND driver unset.
	Cancel(ctx context.Context, rideID string, at time.Time) (*domain.Ride, error)

	// MarkPaidByReference sets payment_status=paid on the ride carrying
	// the given payment reference.
	MarkPaidByReference(ctx context.Context, reference string) (*domain.Ride, error)

	// CountByStatus returns aggregate ride counts.
	CountByStatus(ctx context.Context) (*domain.RideStats, error)

	// MonthlyFareTotals returns total fare volume per calendar month,
	// oldest first.
	MonthlyFareTotals(ctx context.Context) ([]domain.FareTrend, error)
}
