package eta

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/example/trip-tracking/internal/models"
)

// Estimator is the interface used by trackers to turn two coordinates into
// a whole-minute arrival estimate.
type Estimator interface {
	EstimateMinutes(from, to models.Coord) (int, error)
}

// Naive estimates minutes as haversine distance over a fixed speed. In prod
// prefer a routing engine (see OSRMClient); this is the always-available
// fallback.
type Naive struct {
	SpeedMps float64
}

func (n Naive) EstimateMinutes(from, to models.Coord) (int, error) {
	speed := n.SpeedMps
	if speed <= 0 {
		speed = 8.0 // ~28.8 km/h default city speed
	}
	d := haversine(from.Lat, from.Lng, to.Lat, to.Lng)
	return toMinutes(d / speed), nil
}

// toMinutes rounds seconds up to whole minutes, never below 1 for a
// non-zero duration so the view never renders "0 mins" for a moving driver.
func toMinutes(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	m := int(math.Ceil(seconds / 60.0))
	if m < 1 {
		m = 1
	}
	return m
}

// Cache is a tiny in-memory cache for ETA lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  int
	ts time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Coord) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.Coord) (int, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

// Set stores a value in the cache.
func (c *Cache) Set(a, b models.Coord, v int) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// Cached wraps an Estimator with the TTL cache. Location samples arrive far
// more often than drivers move between cache-key cells, so this mostly
// shields the routing engine from per-sample lookups.
type Cached struct {
	Inner Estimator
	Cache *Cache
}

func (c Cached) EstimateMinutes(from, to models.Coord) (int, error) {
	if v, ok := c.Cache.Get(from, to); ok {
		return v, nil
	}
	v, err := c.Inner.EstimateMinutes(from, to)
	if err != nil {
		return 0, err
	}
	c.Cache.Set(from, to, v)
	return v, nil
}

// local haversine, meters
func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
