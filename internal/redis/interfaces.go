package redis

import "context"

// LocationStoreInterface defines the interface for live driver locations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	GetLocation(ctx context.Context, driverID string) (*DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var _ LocationStoreInterface = (*LocationStore)(nil)
