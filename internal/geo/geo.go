package geo

import (
	"math"
	"sync"
	"time"

	"github.com/example/trip-tracking/internal/models"
)

// Index tracks the last known position of each driver. The ingest pipeline
// writes it on every location message; the driver directory reads it to
// enrich profiles with a starting position before live samples arrive.
type Index interface {
	Upsert(driverID string, loc models.Coord)
	LastKnown(driverID string) (models.Coord, bool)
}

type MemoryIndex struct {
	mu      sync.RWMutex
	drivers map[string]entry
}

type entry struct {
	loc     models.Coord
	updated time.Time
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{drivers: make(map[string]entry)}
}

func (g *MemoryIndex) Upsert(driverID string, loc models.Coord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drivers[driverID] = entry{loc: loc, updated: time.Now()}
}

func (g *MemoryIndex) LastKnown(driverID string) (models.Coord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.drivers[driverID]
	return e.loc, ok
}

// Haversine distance in meters
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
