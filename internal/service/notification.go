package service

import (
	"context"
	"fmt"
	"log"

	"tricycle/internal/domain"
)

// NotificationService is the push/SMS collaborator facade. It is invoked
// asynchronously after a lifecycle transition commits; a delivery failure
// is contained here and never reaches the transition.
type NotificationService struct {
	// A real deployment plugs in the SMS gateway and the mobile push
	// client here. Delivery details live with those collaborators.
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// DriverAssigned tells the customer a driver claimed their ride.
func (s *NotificationService) DriverAssigned(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, ride.CustomerID, "Driver Assigned",
		fmt.Sprintf("A rider has been assigned to your trip from %s.", ride.OriginAddress))
}

// TripStarted tells the customer their trip is underway.
func (s *NotificationService) TripStarted(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, ride.CustomerID, "Trip Started", "Your trip has started.")
}

// AssignmentCancelled tells the customer their driver dropped the ride.
func (s *NotificationService) AssignmentCancelled(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, ride.CustomerID, "Ride Update",
		"Your ride has been cancelled by the driver. Please wait for another rider.")
}

// PaymentConfirmed tells the customer their payment was reconciled.
func (s *NotificationService) PaymentConfirmed(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, ride.CustomerID, "Payment Received",
		fmt.Sprintf("Payment of %.2f for your ride was received.", ride.FarePrice))
}

func (s *NotificationService) send(ctx context.Context, recipientID, title, message string) {
	log.Printf("[NOTIFICATION] Recipient=%s, Title=%s, Message=%s", recipientID, title, message)
}
