package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tricycle/internal/domain"
	"tricycle/internal/repository"
)

// rideColumns is the column list shared by every ride SELECT/RETURNING.
const rideColumns = `id, customer_id, driver_id, origin_address, origin_lat, origin_lng,
	destination_address, destination_lat, destination_lng, ride_time, fare_price,
	status, payment_status, payment_reference, created_at, started_at, completed_at, cancelled_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, customer_id, driver_id, origin_address, origin_lat, origin_lng,
			destination_address, destination_lat, destination_lng, ride_time, fare_price,
			status, payment_status, payment_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.CustomerID,
		nullString(ride.DriverID),
		ride.OriginAddress,
		ride.OriginLat,
		ride.OriginLng,
		ride.DestinationAddress,
		ride.DestinationLat,
		ride.DestinationLng,
		ride.RideTime,
		ride.FarePrice,
		ride.Status,
		ride.PaymentStatus,
		nullString(ride.PaymentReference),
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetAll retrieves all rides, newest first.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC LIMIT 100`
	return r.queryRides(ctx, query)
}

// GetByStatus retrieves rides with the given status, newest first.
func (r *RideRepository) GetByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE status = $1 ORDER BY created_at DESC`
	return r.queryRides(ctx, query, status)
}

// GetByDriverAndStatus retrieves a driver's rides filtered by status.
func (r *RideRepository) GetByDriverAndStatus(ctx context.Context, driverID string, status domain.RideStatus) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 AND status = $2 ORDER BY created_at DESC`
	return r.queryRides(ctx, query, driverID, status)
}

// GetRecentByCustomer retrieves a customer's most recent rides.
func (r *RideRepository) GetRecentByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryRides(ctx, query, customerID, limit)
}

// Assign binds a driver to a pending, unassigned ride. The guard lives in
// the WHERE clause so two concurrent assignments are serialized by the
// database: the first wins, the second matches no row.
func (r *RideRepository) Assign(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	query := `
		UPDATE rides SET driver_id = $2, status = $3
		WHERE id = $1 AND status = $4 AND driver_id IS NULL
		RETURNING ` + rideColumns

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, rideID, driverID, domain.RideStatusAssigned, domain.RideStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.guardFailure(ctx, rideID)
		}
		return nil, err
	}
	return ride, nil
}

// Unassign releases the given driver from an assigned ride.
func (r *RideRepository) Unassign(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	query := `
		UPDATE rides SET driver_id = NULL, status = $3
		WHERE id = $1 AND driver_id = $2 AND status = $4
		RETURNING ` + rideColumns

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, rideID, driverID, domain.RideStatusPending, domain.RideStatusAssigned))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.guardFailure(ctx, rideID)
		}
		return nil, err
	}
	return ride, nil
}

// Start moves an assigned ride into transit.
func (r *RideRepository) Start(ctx context.Context, rideID, driverID string, at time.Time) (*domain.Ride, error) {
	query := `
		UPDATE rides SET status = $3, started_at = $4
		WHERE id = $1 AND driver_id = $2 AND status = $5
		RETURNING ` + rideColumns

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, rideID, driverID, domain.RideStatusInTransit, at, domain.RideStatusAssigned))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.guardFailure(ctx, rideID)
		}
		return nil, err
	}
	return ride, nil
}

// Complete finishes a ride and forces its payment status to paid.
func (r *RideRepository) Complete(ctx context.Context, rideID string, at time.Time) (*domain.Ride, error) {
	query := `
		UPDATE rides SET status = $2, completed_at = $3, payment_status = $4
		WHERE id = $1 AND status IN ($5, $6)
		RETURNING ` + rideColumns

	ride, err := scanRide(r.q.QueryRowContext(ctx, query,
		rideID, domain.RideStatusCompleted, at, domain.PaymentStatusPaid,
		domain.RideStatusAssigned, domain.RideStatusInTransit))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.guardFailure(ctx, rideID)
		}
		return nil, err
	}
	return ride, nil
}

// Cancel marks a pending, unassigned ride cancelled. The row is kept for
// history; listings filter cancelled rides out.
func (r *RideRepository) Cancel(ctx context.Context, rideID string, at time.Time) (*domain.Ride, error) {
	query := `
		UPDATE rides SET status = $2, cancelled_at = $3
		WHERE id = $1 AND status = $4 AND driver_id IS NULL
		RETURNING ` + rideColumns

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, rideID, domain.RideStatusCancelled, at, domain.RideStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.guardFailure(ctx, rideID)
		}
		return nil, err
	}
	return ride, nil
}

// MarkPaidByReference sets payment_status=paid on the ride carrying the
// given payment-provider reference.
func (r *RideRepository) MarkPaidByReference(ctx context.Context, reference string) (*domain.Ride, error) {
	query := `
		UPDATE rides SET payment_status = $2
		WHERE payment_reference = $1
		RETURNING ` + rideColumns

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, reference, domain.PaymentStatusPaid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// CountByStatus returns aggregate ride counts.
func (r *RideRepository) CountByStatus(ctx context.Context) (*domain.RideStats, error) {
	query := `SELECT status, COUNT(*) FROM rides GROUP BY status`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats domain.RideStats
	for rows.Next() {
		var status domain.RideStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case domain.RideStatusPending:
			stats.Pending = count
		case domain.RideStatusAssigned:
			stats.Assigned = count
		case domain.RideStatusInTransit:
			stats.InTransit = count
		case domain.RideStatusCompleted:
			stats.Completed = count
		case domain.RideStatusCancelled:
			stats.Cancelled = count
		}
	}
	return &stats, rows.Err()
}

// MonthlyFareTotals returns total fare volume per calendar month.
func (r *RideRepository) MonthlyFareTotals(ctx context.Context) ([]domain.FareTrend, error) {
	query := `
		SELECT to_char(created_at, 'YYYY-MM') AS month, COALESCE(SUM(fare_price), 0)
		FROM rides WHERE payment_status = $1
		GROUP BY month ORDER BY month
	`

	rows, err := r.q.QueryContext(ctx, query, domain.PaymentStatusPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []domain.FareTrend
	for rows.Next() {
		var t domain.FareTrend
		if err := rows.Scan(&t.Month, &t.Total); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// guardFailure distinguishes a missing ride from a failed transition
// guard after a conditional update matched no row.
func (r *RideRepository) guardFailure(ctx context.Context, rideID string) error {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, rideID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrPrecondition
}

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, paymentReference sql.NullString
	var startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.CustomerID,
		&driverID,
		&ride.OriginAddress,
		&ride.OriginLat,
		&ride.OriginLng,
		&ride.DestinationAddress,
		&ride.DestinationLat,
		&ride.DestinationLng,
		&ride.RideTime,
		&ride.FarePrice,
		&ride.Status,
		&ride.PaymentStatus,
		&paymentReference,
		&ride.CreatedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.String
	}
	if paymentReference.Valid {
		ride.PaymentReference = paymentReference.String
	}
	if startedAt.Valid {
		ride.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
