package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tricycle/internal/domain"
	"tricycle/internal/events"
	"tricycle/internal/redis"
	"tricycle/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is an in-memory implementation of RideRepository.
// Transitions apply their guards under the mutex, so racing goroutines
// observe the same winner-takes-all behavior as the conditional SQL
// updates.
type MockRideRepository struct {
	mu    sync.Mutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	AssignCallCount int32

	// Error injection
	CreateError  error
	GetByIDError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rides[id]
}

// CountRides returns the number of stored rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rides)
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(func(*domain.Ride) bool { return true }), nil
}

func (m *MockRideRepository) GetByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(func(r *domain.Ride) bool { return r.Status == status }), nil
}

func (m *MockRideRepository) GetByDriverAndStatus(ctx context.Context, driverID string, status domain.RideStatus) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(func(r *domain.Ride) bool {
		return r.DriverID == driverID && r.Status == status
	}), nil
}

func (m *MockRideRepository) GetRecentByCustomer(ctx context.Context, customerID string, limit int) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rides := m.snapshot(func(r *domain.Ride) bool { return r.CustomerID == customerID })
	if len(rides) > limit {
		rides = rides[:limit]
	}
	return rides, nil
}

func (m *MockRideRepository) Assign(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	atomic.AddInt32(&m.AssignCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusPending || ride.DriverID != "" {
		return nil, repository.ErrPrecondition
	}
	ride.DriverID = driverID
	ride.Status = domain.RideStatusAssigned
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) Unassign(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusAssigned || ride.DriverID != driverID {
		return nil, repository.ErrPrecondition
	}
	ride.DriverID = ""
	ride.Status = domain.RideStatusPending
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) Start(ctx context.Context, rideID, driverID string, at time.Time) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusAssigned || ride.DriverID != driverID {
		return nil, repository.ErrPrecondition
	}
	ride.Status = domain.RideStatusInTransit
	ride.StartedAt = at
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) Complete(ctx context.Context, rideID string, at time.Time) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusAssigned && ride.Status != domain.RideStatusInTransit {
		return nil, repository.ErrPrecondition
	}
	ride.Status = domain.RideStatusCompleted
	ride.PaymentStatus = domain.PaymentStatusPaid
	ride.CompletedAt = at
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) Cancel(ctx context.Context, rideID string, at time.Time) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusPending || ride.DriverID != "" {
		return nil, repository.ErrPrecondition
	}
	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = at
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) MarkPaidByReference(ctx context.Context, reference string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ride := range m.rides {
		if ride.PaymentReference == reference {
			ride.PaymentStatus = domain.PaymentStatusPaid
			copy := *ride
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRideRepository) CountByStatus(ctx context.Context) (*domain.RideStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.RideStats{}
	for _, ride := range m.rides {
		stats.Total++
		switch ride.Status {
		case domain.RideStatusPending:
			stats.Pending++
		case domain.RideStatusAssigned:
			stats.Assigned++
		case domain.RideStatusInTransit:
			stats.InTransit++
		case domain.RideStatusCompleted:
			stats.Completed++
		case domain.RideStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (m *MockRideRepository) MonthlyFareTotals(ctx context.Context) ([]domain.FareTrend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := make(map[string]float64)
	for _, ride := range m.rides {
		if ride.PaymentStatus == domain.PaymentStatusPaid {
			totals[ride.CreatedAt.Format("2006-01")] += ride.FarePrice
		}
	}
	months := make([]string, 0, len(totals))
	for month := range totals {
		months = append(months, month)
	}
	sort.Strings(months)
	trends := make([]domain.FareTrend, 0, len(months))
	for _, month := range months {
		trends = append(trends, domain.FareTrend{Month: month, Total: totals[month]})
	}
	return trends, nil
}

// snapshot copies matching rides, newest first. Caller holds the mutex.
func (m *MockRideRepository) snapshot(match func(*domain.Ride) bool) []*domain.Ride {
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		if match(r) {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// ──────────────────────────────────────────────
// MOCK PARTY REPOSITORY
// ──────────────────────────────────────────────

// MockPartyRepository is an in-memory implementation of PartyRepository.
type MockPartyRepository struct {
	mu        sync.RWMutex
	customers map[string]*domain.PartySummary
	drivers   map[string]*domain.PartySummary
}

// NewMockPartyRepository creates a new mock party repository.
func NewMockPartyRepository() *MockPartyRepository {
	return &MockPartyRepository{
		customers: make(map[string]*domain.PartySummary),
		drivers:   make(map[string]*domain.PartySummary),
	}
}

// AddCustomer adds a customer summary.
func (m *MockPartyRepository) AddCustomer(p *domain.PartySummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[p.ID] = p
}

// AddDriver adds a driver summary.
func (m *MockPartyRepository) AddDriver(p *domain.PartySummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[p.ID] = p
}

func (m *MockPartyRepository) GetCustomer(ctx context.Context, id string) (*domain.PartySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *MockPartyRepository) GetDriver(ctx context.Context, id string) (*domain.PartySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent records one publisher call for assertions.
type PublishedEvent struct {
	PartyID string // empty for broadcasts
	Event   events.Event
}

// MockPublisher captures broadcast and directed events.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	// Error injection
	BroadcastError error
	NotifyError    error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Broadcast(ctx context.Context, event events.Event) error {
	if m.BroadcastError != nil {
		return m.BroadcastError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{Event: event})
	return nil
}

func (m *MockPublisher) Notify(ctx context.Context, partyID string, event events.Event) error {
	if m.NotifyError != nil {
		return m.NotifyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{PartyID: partyID, Event: event})
	return nil
}

// Broadcasts returns captured broadcast events.
func (m *MockPublisher) Broadcasts() []PublishedEvent {
	return m.filter(func(e PublishedEvent) bool { return e.PartyID == "" })
}

// DirectedTo returns captured events targeted at the given party.
func (m *MockPublisher) DirectedTo(partyID string) []PublishedEvent {
	return m.filter(func(e PublishedEvent) bool { return e.PartyID == partyID })
}

func (m *MockPublisher) filter(match func(PublishedEvent) bool) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []PublishedEvent
	for _, e := range m.events {
		if match(e) {
			result = append(result, e)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation

	// Error injection
	GetError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.DriverLocation),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, driverID string) (*redis.DriverLocation, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[driverID]
	if !ok {
		return nil, nil
	}
	copy := loc
	return &copy, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}
