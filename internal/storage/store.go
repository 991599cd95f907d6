package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/example/trip-tracking/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store defines persistence operations for orders, drivers, ratings, and
// the fleet catalog.
type Store interface {
	SaveOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	HasActiveOrder(ctx context.Context, riderID string) (bool, error)

	GetDriver(ctx context.Context, id string) (*models.DriverInfo, error)
	SaveRating(ctx context.Context, r models.Rating) error

	FleetOptions(ctx context.Context, serviceMode, extraOption string) ([]models.VehicleOffer, error)
}

// MemoryStore backs tests and local runs without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	orders  map[string]*models.Order
	drivers map[string]*models.DriverInfo
	ratings []models.Rating
	fleet   map[string][]models.VehicleOffer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[string]*models.Order),
		drivers: make(map[string]*models.DriverInfo),
		fleet:   make(map[string][]models.VehicleOffer),
	}
}

func (m *MemoryStore) SaveOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MemoryStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) UpdateOrderStatus(_ context.Context, id string, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *MemoryStore) HasActiveOrder(_ context.Context, riderID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.RiderID == riderID && !o.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) GetDriver(_ context.Context, id string) (*models.DriverInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// PutDriver seeds a driver profile; used by tests and local fixtures.
func (m *MemoryStore) PutDriver(d models.DriverInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.ID] = &d
}

func (m *MemoryStore) SaveRating(_ context.Context, r models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = append(m.ratings, r)
	return nil
}

// Ratings returns a snapshot of stored ratings; used by tests.
func (m *MemoryStore) Ratings() []models.Rating {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Rating, len(m.ratings))
	copy(out, m.ratings)
	return out
}

func (m *MemoryStore) FleetOptions(_ context.Context, serviceMode, extraOption string) ([]models.VehicleOffer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offers := m.fleet[fleetKey(serviceMode, extraOption)]
	out := make([]models.VehicleOffer, len(offers))
	copy(out, offers)
	return out, nil
}

// PutFleet seeds offers for a service mode; used by tests and local fixtures.
func (m *MemoryStore) PutFleet(serviceMode, extraOption string, offers []models.VehicleOffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fleet[fleetKey(serviceMode, extraOption)] = offers
}

func fleetKey(mode, extra string) string { return mode + "|" + extra }
