package eta

import (
	"testing"
	"time"

	"github.com/example/trip-tracking/internal/models"
)

func TestNaiveZeroDistance(t *testing.T) {
	n := Naive{SpeedMps: 10}
	a := models.Coord{Lat: -26.2, Lng: 28.05}
	mins, err := n.EstimateMinutes(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if mins != 0 {
		t.Fatalf("expected 0, got %d", mins)
	}
}

func TestNaiveRoundsUpToWholeMinutes(t *testing.T) {
	n := Naive{SpeedMps: 10}
	// ~1.1km apart, 10 m/s -> ~111s -> 2 mins
	from := models.Coord{Lat: -26.21, Lng: 28.05}
	to := models.Coord{Lat: -26.20, Lng: 28.05}
	mins, err := n.EstimateMinutes(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if mins != 2 {
		t.Fatalf("expected 2, got %d", mins)
	}
}

type countingEstimator struct{ calls int }

func (c *countingEstimator) EstimateMinutes(from, to models.Coord) (int, error) {
	c.calls++
	return 7, nil
}

func TestCachedAvoidsRepeatLookups(t *testing.T) {
	inner := &countingEstimator{}
	c := Cached{Inner: inner, Cache: NewCache(time.Minute)}
	from := models.Coord{Lat: -26.21, Lng: 28.05}
	to := models.Coord{Lat: -26.20, Lng: 28.05}
	for i := 0; i < 3; i++ {
		mins, err := c.EstimateMinutes(from, to)
		if err != nil {
			t.Fatal(err)
		}
		if mins != 7 {
			t.Fatalf("expected 7, got %d", mins)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}
}
