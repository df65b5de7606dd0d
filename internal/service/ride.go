package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"tricycle/internal/domain"
	"tricycle/internal/events"
	"tricycle/internal/redis"
	"tricycle/internal/repository"
)

const recentRidesLimit = 10

// RideService is the ride lifecycle engine. It is the only writer of the
// ride store: every transition goes through one conditional repository
// update, and events are emitted only after the transition commits.
type RideService struct {
	rideRepo  repository.RideRepository
	partyRepo repository.PartyRepository
	locations redis.LocationStoreInterface
	publisher events.Publisher
	notifier  *NotificationService
}

// NewRideService creates a new RideService. locations, publisher and
// notifier may be nil (tests wire only what they assert on).
func NewRideService(
	rideRepo repository.RideRepository,
	partyRepo repository.PartyRepository,
	locations redis.LocationStoreInterface,
	publisher events.Publisher,
	notifier *NotificationService,
) *RideService {
	return &RideService{
		rideRepo:  rideRepo,
		partyRepo: partyRepo,
		locations: locations,
		publisher: publisher,
		notifier:  notifier,
	}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	CustomerID         string
	OriginAddress      string
	OriginLat          float64
	OriginLng          float64
	DestinationAddress string
	DestinationLat     float64
	DestinationLng     float64
	RideTime           float64
	FarePrice          float64
	PaymentReference   string // set when a payment flow initiated the ride
}

// CreateRide persists a new pending ride and signals the ride list
// change. No directed event is sent: there is no driver yet.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:                 uuid.New().String(),
		CustomerID:         req.CustomerID,
		OriginAddress:      req.OriginAddress,
		OriginLat:          req.OriginLat,
		OriginLng:          req.OriginLng,
		DestinationAddress: req.DestinationAddress,
		DestinationLat:     req.DestinationLat,
		DestinationLng:     req.DestinationLng,
		RideTime:           req.RideTime,
		FarePrice:          req.FarePrice,
		Status:             domain.RideStatusPending,
		PaymentStatus:      domain.PaymentStatusPending,
		PaymentReference:   req.PaymentReference,
		CreatedAt:          time.Now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.broadcastUpdate(ctx)
	return ride, nil
}

// AssignRide binds a driver to a pending ride. The store's conditional
// update arbitrates races: the first assignment to land wins, every later
// attempt gets ErrRideNotAvailable.
func (s *RideService) AssignRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.Assign(ctx, rideID, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrPrecondition) {
			return nil, ErrRideNotAvailable
		}
		return nil, err
	}

	s.broadcastUpdate(ctx)
	s.notifyParty(ctx, ride.CustomerID, events.Event{
		Kind:    events.KindRideAssigned,
		RideID:  ride.ID,
		Message: "Great news! A rider has been assigned to your trip.",
	})
	if s.notifier != nil {
		go s.notifier.DriverAssigned(context.Background(), ride)
	}

	s.populate(ctx, ride)
	return ride, nil
}

// StartTrip moves an assigned ride into transit and stamps started_at.
func (s *RideService) StartTrip(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.Start(ctx, rideID, driverID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrPrecondition) {
			return nil, s.shapeDriverGuardError(ctx, rideID, driverID, domain.RideStatusAssigned)
		}
		return nil, err
	}

	s.broadcastUpdate(ctx)
	s.notifyParty(ctx, ride.CustomerID, events.Event{
		Kind:    events.KindRideStarted,
		RideID:  ride.ID,
		Message: "Your trip has started.",
	})
	if s.notifier != nil {
		go s.notifier.TripStarted(context.Background(), ride)
	}

	s.populate(ctx, ride)
	return ride, nil
}

// CancelAssignment releases the requesting driver from a ride that has
// not entered transit; the ride reverts to pending for reassignment.
func (s *RideService) CancelAssignment(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.Unassign(ctx, rideID, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrPrecondition) {
			return nil, s.shapeDriverGuardError(ctx, rideID, driverID, domain.RideStatusAssigned)
		}
		return nil, err
	}

	s.broadcastUpdate(ctx)
	s.notifyParty(ctx, ride.CustomerID, events.Event{
		Kind:    events.KindRideCancelled,
		RideID:  ride.ID,
		Message: "Your ride has been cancelled by the driver. Please wait for another rider.",
	})
	if s.notifier != nil {
		go s.notifier.AssignmentCancelled(context.Background(), ride)
	}

	s.populate(ctx, ride)
	return ride, nil
}

// CompleteRide finishes a ride from assigned or in_transit, stamps
// completed_at and forces payment status to paid.
func (s *RideService) CompleteRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.Complete(ctx, rideID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrPrecondition) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.broadcastUpdate(ctx)
	s.populate(ctx, ride)
	return ride, nil
}

// CancelRide cancels a pending, unassigned ride. The row is kept with a
// terminal cancelled status rather than deleted, preserving history.
func (s *RideService) CancelRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.Cancel(ctx, rideID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrPrecondition) {
			current, getErr := s.rideRepo.GetByID(ctx, rideID)
			if getErr != nil {
				return nil, getErr
			}
			if current.HasDriver() {
				return nil, ErrRideAlreadyAssigned
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.broadcastUpdate(ctx)
	return ride, nil
}

// GetRideByID retrieves a ride with populated party summaries.
func (s *RideService) GetRideByID(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, ride)
	return ride, nil
}

// GetUnassignedRides lists pending rides, newest first.
func (s *RideService) GetUnassignedRides(ctx context.Context) ([]*domain.Ride, error) {
	rides, err := s.rideRepo.GetByStatus(ctx, domain.RideStatusPending)
	if err != nil {
		return nil, err
	}
	for _, ride := range rides {
		s.populate(ctx, ride)
	}
	return rides, nil
}

// GetRidesByDriver lists a driver's rides filtered by status. An empty
// filter defaults to assigned.
func (s *RideService) GetRidesByDriver(ctx context.Context, driverID, status string) ([]*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	filter := domain.RideStatus(status)
	if status == "" {
		filter = domain.RideStatusAssigned
	} else if !validStatus(filter) {
		return nil, ErrInvalidStatusFilter
	}

	rides, err := s.rideRepo.GetByDriverAndStatus(ctx, driverID, filter)
	if err != nil {
		return nil, err
	}
	for _, ride := range rides {
		s.populate(ctx, ride)
	}
	return rides, nil
}

// GetRecentRides lists a customer's most recent rides.
func (s *RideService) GetRecentRides(ctx context.Context, customerID string) ([]*domain.Ride, error) {
	if customerID == "" {
		return nil, ErrInvalidCustomerID
	}

	rides, err := s.rideRepo.GetRecentByCustomer(ctx, customerID, recentRidesLimit)
	if err != nil {
		return nil, err
	}
	for _, ride := range rides {
		s.populate(ctx, ride)
	}
	return rides, nil
}

// GetAllRides lists every ride with populated party summaries.
func (s *RideService) GetAllRides(ctx context.Context) ([]*domain.Ride, error) {
	rides, err := s.rideRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, ride := range rides {
		s.populate(ctx, ride)
	}
	return rides, nil
}

// GetRideStats returns aggregate ride counts by status.
func (s *RideService) GetRideStats(ctx context.Context) (*domain.RideStats, error) {
	return s.rideRepo.CountByStatus(ctx)
}

// GetPaymentTrends returns monthly fare totals, oldest first.
func (s *RideService) GetPaymentTrends(ctx context.Context) ([]domain.FareTrend, error) {
	return s.rideRepo.MonthlyFareTotals(ctx)
}

// TrackedRide is the tracking projection of a ride: its authoritative
// record plus a current-location proxy.
type TrackedRide struct {
	Ride       *domain.Ride
	CurrentLat float64
	CurrentLng float64
	Live       bool // true when the fix came from the live location store
}

// TrackRide returns the tracking projection. When the assigned driver has
// a live fix it is used as the current location; otherwise the stored
// origin coordinates stand in.
func (s *RideService) TrackRide(ctx context.Context, rideID string) (*TrackedRide, error) {
	ride, err := s.GetRideByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	tracked := &TrackedRide{
		Ride:       ride,
		CurrentLat: ride.OriginLat,
		CurrentLng: ride.OriginLng,
	}

	if s.locations != nil && ride.HasDriver() {
		fix, err := s.locations.GetLocation(ctx, ride.DriverID)
		if err != nil {
			log.Printf("live location lookup failed: ride=%s err=%v", rideID, err)
		} else if fix != nil {
			tracked.CurrentLat = fix.Lat
			tracked.CurrentLng = fix.Lng
			tracked.Live = true
		}
	}

	return tracked, nil
}

// shapeDriverGuardError turns a failed driver-guarded transition into the
// caller-facing error: Forbidden when the caller is not the assigned
// driver, InvalidTransition otherwise. The extra read is outside the
// critical section and used only for error shaping.
func (s *RideService) shapeDriverGuardError(ctx context.Context, rideID, driverID string, want domain.RideStatus) error {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status == want && ride.DriverID != driverID {
		return ErrNotAssignedDriver
	}
	return ErrInvalidTransition
}

// broadcastUpdate signals observers that the ride list changed. Delivery
// is best effort and never fails the lifecycle operation.
func (s *RideService) broadcastUpdate(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Broadcast(ctx, events.Event{Kind: events.KindRidesUpdate}); err != nil {
		log.Printf("broadcast failed: %v", err)
	}
}

func (s *RideService) notifyParty(ctx context.Context, partyID string, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Notify(ctx, partyID, event); err != nil {
		log.Printf("directed event failed: party=%s kind=%s err=%v", partyID, event.Kind, err)
	}
}

// populate fills party summaries on a ride for read responses. Lookup
// failures leave the summary nil.
func (s *RideService) populate(ctx context.Context, ride *domain.Ride) {
	if s.partyRepo == nil || ride == nil {
		return
	}
	if customer, err := s.partyRepo.GetCustomer(ctx, ride.CustomerID); err == nil {
		ride.Customer = customer
	}
	if ride.HasDriver() {
		if driver, err := s.partyRepo.GetDriver(ctx, ride.DriverID); err == nil {
			ride.Driver = driver
		}
	}
}

func (s *RideService) validateCreateRequest(req CreateRideRequest) error {
	if req.CustomerID == "" {
		return ErrInvalidCustomerID
	}
	if !isValidLatitude(req.OriginLat) || !isValidLongitude(req.OriginLng) {
		return ErrInvalidOriginLocation
	}
	if !isValidLatitude(req.DestinationLat) || !isValidLongitude(req.DestinationLng) {
		return ErrInvalidDestinationLocation
	}
	return nil
}

func validStatus(status domain.RideStatus) bool {
	switch status {
	case domain.RideStatusPending, domain.RideStatusAssigned,
		domain.RideStatusInTransit, domain.RideStatusCompleted,
		domain.RideStatusCancelled:
		return true
	}
	return false
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
