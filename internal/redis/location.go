package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const driverLocationKey = "drivers:locations"

// DriverLocation represents a driver's last reported position.
type DriverLocation struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// LocationStore keeps the last live fix per driver in a Redis geo index.
// Fixes arrive over the realtime channel and are never written to the
// ride record; tracking falls back to origin coordinates when no fix
// exists for the assigned driver.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// GetLocation returns the driver's last fix, or nil when none is known.
func (s *LocationStore) GetLocation(ctx context.Context, driverID string) (*DriverLocation, error) {
	positions, err := s.client.GeoPos(ctx, driverLocationKey, driverID).Result()
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 || positions[0] == nil {
		return nil, nil
	}
	return &DriverLocation{
		DriverID: driverID,
		Lat:      positions[0].Latitude,
		Lng:      positions[0].Longitude,
	}, nil
}

// RemoveLocation removes a driver's fix from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	return s.client.ZRem(ctx, driverLocationKey, driverID).Err()
}
