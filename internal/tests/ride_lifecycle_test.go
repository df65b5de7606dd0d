package tests

import (
	"context"
	"testing"
	"time"

	"tricycle/internal/domain"
	"tricycle/internal/events"
	"tricycle/internal/service"
)

func pendingRide(id, customerID string) *domain.Ride {
	return &domain.Ride{
		ID:            id,
		CustomerID:    customerID,
		OriginLat:     6.5,
		OriginLng:     3.3,
		Status:        domain.RideStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     time.Now(),
	}
}

func assignedRide(id, customerID, driverID string) *domain.Ride {
	ride := pendingRide(id, customerID)
	ride.DriverID = driverID
	ride.Status = domain.RideStatusAssigned
	return ride
}

func TestAssignRide_BindsDriverAndNotifiesCustomer(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(pendingRide("ride-1", "customer-1"))
	publisher := NewMockPublisher()
	rideService := service.NewRideService(rideRepo, nil, nil, publisher, nil)

	ride, err := rideService.AssignRide(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusAssigned {
		t.Errorf("expected status assigned, got %s", ride.Status)
	}
	if ride.DriverID != "driver-1" {
		t.Errorf("expected driver-1, got %s", ride.DriverID)
	}

	directed := publisher.DirectedTo("customer-1")
	if len(directed) != 1 {
		t.Fatalf("expected 1 directed event, got %d", len(directed))
	}
	if directed[0].Event.Kind != events.KindRideAssigned {
		t.Errorf("expected %s, got %s", events.KindRideAssigned, directed[0].Event.Kind)
	}
	if directed[0].Event.RideID != "ride-1" {
		t.Errorf("expected ride-1 in event, got %s", directed[0].Event.RideID)
	}
	if len(publisher.Broadcasts()) != 1 {
		t.Errorf("expected 1 rides update broadcast, got %d", len(publisher.Broadcasts()))
	}
}

func TestAssignRide_MissingRideIsNotAvailable(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.AssignRide(context.Background(), "no-such-ride", "driver-1")
	if err != service.ErrRideNotAvailable {
		t.Errorf("expected ErrRideNotAvailable, got %v", err)
	}
}

func TestAssignRide_AlreadyAssignedIsNotAvailable(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.AssignRide(context.Background(), "ride-1", "driver-2")
	if err != service.ErrRideNotAvailable {
		t.Errorf("expected ErrRideNotAvailable, got %v", err)
	}

	if got := rideRepo.GetRide("ride-1").DriverID; got != "driver-1" {
		t.Errorf("assignment must not change, got driver %s", got)
	}
}

func TestAssignRide_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(pendingRide("ride-1", "customer-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, NewMockPublisher(), nil)

	const drivers = 16
	results := make(chan error, drivers)
	for i := 0; i < drivers; i++ {
		driverID := "driver-" + string(rune('a'+i))
		go func() {
			_, err := rideService.AssignRide(context.Background(), "ride-1", driverID)
			results <- err
		}()
	}

	winners := 0
	for i := 0; i < drivers; i++ {
		err := <-results
		switch err {
		case nil:
			winners++
		case service.ErrRideNotAvailable:
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if winners != 1 {
		t.Errorf("expected exactly 1 winning driver, got %d", winners)
	}
	if got := rideRepo.GetRide("ride-1").Status; got != domain.RideStatusAssigned {
		t.Errorf("expected assigned, got %s", got)
	}
}

func TestStartTrip_MovesRideIntoTransit(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	publisher := NewMockPublisher()
	rideService := service.NewRideService(rideRepo, nil, nil, publisher, nil)

	ride, err := rideService.StartTrip(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusInTransit {
		t.Errorf("expected in_transit, got %s", ride.Status)
	}
	if ride.StartedAt.IsZero() {
		t.Error("expected started_at to be stamped")
	}

	directed := publisher.DirectedTo("customer-1")
	if len(directed) != 1 || directed[0].Event.Kind != events.KindRideStarted {
		t.Errorf("expected one %s event, got %+v", events.KindRideStarted, directed)
	}
}

func TestStartTrip_WrongDriverIsForbidden(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.StartTrip(context.Background(), "ride-1", "driver-2")
	if err != service.ErrNotAssignedDriver {
		t.Errorf("expected ErrNotAssignedDriver, got %v", err)
	}
}

func TestStartTrip_PendingRideIsInvalidTransition(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(pendingRide("ride-1", "customer-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.StartTrip(context.Background(), "ride-1", "driver-1")
	if err != service.ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelAssignment_RevertsRideToPending(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	publisher := NewMockPublisher()
	rideService := service.NewRideService(rideRepo, nil, nil, publisher, nil)

	ride, err := rideService.CancelAssignment(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusPending {
		t.Errorf("expected pending, got %s", ride.Status)
	}
	if ride.HasDriver() {
		t.Errorf("expected driver released, got %s", ride.DriverID)
	}

	directed := publisher.DirectedTo("customer-1")
	if len(directed) != 1 || directed[0].Event.Kind != events.KindRideCancelled {
		t.Errorf("expected one %s event, got %+v", events.KindRideCancelled, directed)
	}

	// The released ride can be claimed again.
	if _, err := rideService.AssignRide(context.Background(), "ride-1", "driver-2"); err != nil {
		t.Errorf("reassignment after release failed: %v", err)
	}
}

func TestCancelAssignment_WrongDriverIsForbidden(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.CancelAssignment(context.Background(), "ride-1", "driver-2")
	if err != service.ErrNotAssignedDriver {
		t.Errorf("expected ErrNotAssignedDriver, got %v", err)
	}
}

func TestCompleteRide_FromTransitStampsAndPays(t *testing.T) {
	rideRepo := NewMockRideRepository()
	ride := assignedRide("ride-1", "customer-1", "driver-1")
	ride.Status = domain.RideStatusInTransit
	rideRepo.AddRide(ride)
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	completed, err := rideService.CompleteRide(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completed.Status != domain.RideStatusCompleted {
		t.Errorf("expected completed, got %s", completed.Status)
	}
	if completed.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected payment paid, got %s", completed.PaymentStatus)
	}
	if completed.CompletedAt.IsZero() {
		t.Error("expected completed_at to be stamped")
	}
}

func TestCompleteRide_FromAssignedIsAllowed(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	if _, err := rideService.CompleteRide(context.Background(), "ride-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCompleteRide_FromPendingIsInvalidTransition(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(pendingRide("ride-1", "customer-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.CompleteRide(context.Background(), "ride-1")
	if err != service.ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteRide_IsNotRepeatable(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	if _, err := rideService.CompleteRide(context.Background(), "ride-1"); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}
	if _, err := rideService.CompleteRide(context.Background(), "ride-1"); err != service.ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition on repeat, got %v", err)
	}
}

func TestCancelRide_MarksPendingRideCancelled(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(pendingRide("ride-1", "customer-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	ride, err := rideService.CancelRide(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected cancelled, got %s", ride.Status)
	}
	if ride.CancelledAt.IsZero() {
		t.Error("expected cancelled_at to be stamped")
	}

	// The record stays for history.
	if rideRepo.GetRide("ride-1") == nil {
		t.Error("cancelled ride must be kept")
	}
}

func TestCancelRide_AssignedRideIsRejected(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.CancelRide(context.Background(), "ride-1")
	if err != service.ErrRideAlreadyAssigned {
		t.Errorf("expected ErrRideAlreadyAssigned, got %v", err)
	}
}

func TestCancelRide_CompletedRideIsInvalidTransition(t *testing.T) {
	rideRepo := NewMockRideRepository()
	ride := pendingRide("ride-1", "customer-1")
	ride.Status = domain.RideStatusCompleted
	rideRepo.AddRide(ride)
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.CancelRide(context.Background(), "ride-1")
	if err != service.ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelledRide_CannotBeAssigned(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(pendingRide("ride-1", "customer-1"))
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	if _, err := rideService.CancelRide(context.Background(), "ride-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := rideService.AssignRide(context.Background(), "ride-1", "driver-1"); err != service.ErrRideNotAvailable {
		t.Errorf("expected ErrRideNotAvailable, got %v", err)
	}
}

func TestGetUnassignedRides_ExcludesCancelledAndAssigned(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(pendingRide("ride-1", "customer-1"))
	rideRepo.AddRide(assignedRide("ride-2", "customer-2", "driver-1"))
	cancelled := pendingRide("ride-3", "customer-3")
	cancelled.Status = domain.RideStatusCancelled
	rideRepo.AddRide(cancelled)
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	rides, err := rideService.GetUnassignedRides(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != "ride-1" {
		t.Errorf("expected only ride-1, got %+v", rides)
	}
}

func TestGetRidesByDriver_DefaultsToAssigned(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	done := assignedRide("ride-2", "customer-2", "driver-1")
	done.Status = domain.RideStatusCompleted
	rideRepo.AddRide(done)
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	rides, err := rideService.GetRidesByDriver(context.Background(), "driver-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != "ride-1" {
		t.Errorf("expected only the assigned ride, got %+v", rides)
	}
}

func TestGetRidesByDriver_RejectsUnknownStatus(t *testing.T) {
	rideService := service.NewRideService(NewMockRideRepository(), nil, nil, nil, nil)

	_, err := rideService.GetRidesByDriver(context.Background(), "driver-1", "teleporting")
	if err != service.ErrInvalidStatusFilter {
		t.Errorf("expected ErrInvalidStatusFilter, got %v", err)
	}
}

func TestGetRideByID_PopulatesPartySummaries(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	partyRepo := NewMockPartyRepository()
	partyRepo.AddCustomer(&domain.PartySummary{ID: "customer-1", FullName: "Ada Obi"})
	partyRepo.AddDriver(&domain.PartySummary{ID: "driver-1", FullName: "Femi Ade"})
	rideService := service.NewRideService(rideRepo, partyRepo, nil, nil, nil)

	ride, err := rideService.GetRideByID(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Customer == nil || ride.Customer.FullName != "Ada Obi" {
		t.Errorf("expected populated customer, got %+v", ride.Customer)
	}
	if ride.Driver == nil || ride.Driver.FullName != "Femi Ade" {
		t.Errorf("expected populated driver, got %+v", ride.Driver)
	}
}

func TestTrackRide_UsesLiveFixWhenAvailable(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	locations := NewMockLocationStore()
	_ = locations.UpdateLocation(context.Background(), "driver-1", 6.55, 3.35)
	rideService := service.NewRideService(rideRepo, nil, locations, nil, nil)

	tracked, err := rideService.TrackRide(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tracked.Live {
		t.Error("expected live fix")
	}
	if tracked.CurrentLat != 6.55 || tracked.CurrentLng != 3.35 {
		t.Errorf("expected live coordinates, got %f,%f", tracked.CurrentLat, tracked.CurrentLng)
	}
}

func TestTrackRide_FallsBackToOrigin(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(assignedRide("ride-1", "customer-1", "driver-1"))
	rideService := service.NewRideService(rideRepo, nil, NewMockLocationStore(), nil, nil)

	tracked, err := rideService.TrackRide(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracked.Live {
		t.Error("expected fallback fix")
	}
	if tracked.CurrentLat != 6.5 || tracked.CurrentLng != 3.3 {
		t.Errorf("expected origin coordinates, got %f,%f", tracked.CurrentLat, tracked.CurrentLng)
	}
}

func TestGetRideStats_CountsByStatus(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(pendingRide("ride-1", "customer-1"))
	rideRepo.AddRide(assignedRide("ride-2", "customer-2", "driver-1"))
	done := assignedRide("ride-3", "customer-3", "driver-2")
	done.Status = domain.RideStatusCompleted
	rideRepo.AddRide(done)
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	stats, err := rideService.GetRideStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Assigned != 1 || stats.Completed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
