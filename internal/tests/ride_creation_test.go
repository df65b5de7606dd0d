package tests

import (
	"context"
	"testing"

	"tricycle/internal/domain"
	"tricycle/internal/events"
	"tricycle/internal/service"
)

func TestRideCreation_ValidatesCustomerID(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		CustomerID:     "", // Empty customer ID.
		OriginLat:      6.5,
		OriginLng:      3.3,
		DestinationLat: 6.6,
		DestinationLng: 3.4,
	})

	if err != service.ErrInvalidCustomerID {
		t.Errorf("expected ErrInvalidCustomerID, got %v", err)
	}
	if rideRepo.CountRides() != 0 {
		t.Errorf("expected no ride persisted, got %d", rideRepo.CountRides())
	}
}

func TestRideCreation_ValidatesOriginCoordinates(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	testCases := []struct {
		name string
		lat  float64
		lng  float64
	}{
		{"latitude too low", -91.0, 3.3},
		{"latitude too high", 91.0, 3.3},
		{"longitude too low", 6.5, -181.0},
		{"longitude too high", 6.5, 181.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
				CustomerID:     "customer-1",
				OriginLat:      tc.lat,
				OriginLng:      tc.lng,
				DestinationLat: 6.6,
				DestinationLng: 3.4,
			})

			if err != service.ErrInvalidOriginLocation {
				t.Errorf("expected ErrInvalidOriginLocation for lat=%f lng=%f, got %v", tc.lat, tc.lng, err)
			}
		})
	}
}

func TestRideCreation_ValidatesDestinationCoordinates(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideService := service.NewRideService(rideRepo, nil, nil, nil, nil)

	_, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		CustomerID:     "customer-1",
		OriginLat:      6.5,
		OriginLng:      3.3,
		DestinationLat: 95.0,
		DestinationLng: 3.4,
	})

	if err != service.ErrInvalidDestinationLocation {
		t.Errorf("expected ErrInvalidDestinationLocation, got %v", err)
	}
}

func TestRideCreation_PersistsPendingRideAndBroadcasts(t *testing.T) {
	rideRepo := NewMockRideRepository()
	publisher := NewMockPublisher()
	rideService := service.NewRideService(rideRepo, nil, nil, publisher, nil)

	ride, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		CustomerID:         "customer-1",
		OriginAddress:      "12 Marina Rd",
		OriginLat:          6.5,
		OriginLng:          3.3,
		DestinationAddress: "4 Island Way",
		DestinationLat:     6.6,
		DestinationLng:     3.4,
		RideTime:           25,
		FarePrice:          1800,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.ID == "" {
		t.Error("expected a generated ride ID")
	}
	if ride.Status != domain.RideStatusPending {
		t.Errorf("expected status pending, got %s", ride.Status)
	}
	if ride.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status pending, got %s", ride.PaymentStatus)
	}
	if ride.HasDriver() {
		t.Errorf("expected no driver, got %s", ride.DriverID)
	}

	stored := rideRepo.GetRide(ride.ID)
	if stored == nil {
		t.Fatal("ride was not persisted")
	}

	broadcasts := publisher.Broadcasts()
	if len(broadcasts) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(broadcasts))
	}
	if broadcasts[0].Event.Kind != events.KindRidesUpdate {
		t.Errorf("expected %s broadcast, got %s", events.KindRidesUpdate, broadcasts[0].Event.Kind)
	}
}

func TestRideCreation_BroadcastFailureDoesNotFailCreate(t *testing.T) {
	rideRepo := NewMockRideRepository()
	publisher := NewMockPublisher()
	publisher.BroadcastError = context.DeadlineExceeded
	rideService := service.NewRideService(rideRepo, nil, nil, publisher, nil)

	ride, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		CustomerID:     "customer-1",
		OriginLat:      6.5,
		OriginLng:      3.3,
		DestinationLat: 6.6,
		DestinationLng: 3.4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rideRepo.GetRide(ride.ID) == nil {
		t.Error("ride should be persisted despite broadcast failure")
	}
}
