package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/trip-tracking/internal/models"
)

// fakeUpdater implements RedisUpdater for tests
type fakeUpdater struct {
	failGeo  int // number of times to fail GeoAdd before succeeding
	failPub  int // number of times to fail Publish before succeeding
	geoCalls int
	pubCalls int
	channels []string
}

func (f *fakeUpdater) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	if f.geoCalls <= f.failGeo {
		return errors.New("geo fail")
	}
	return nil
}

func (f *fakeUpdater) Publish(ctx context.Context, channel string, payload []byte) error {
	f.pubCalls++
	if f.pubCalls <= f.failPub {
		return errors.New("publish fail")
	}
	f.channels = append(f.channels, channel)
	return nil
}

func testSample() models.LocationSample {
	return models.LocationSample{DriverID: "d1", Loc: models.Coord{Lat: -26.2, Lng: 28.05}}
}

func TestApplySampleWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeUpdater{failGeo: 1, failPub: 1}
	ctx := context.Background()
	start := time.Now()
	if err := applySampleWithRetry(ctx, f, "drivers_geo", "drivers:loc", testSample(), 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.geoCalls < 2 || f.pubCalls < 2 {
		t.Fatalf("expected retries, got geo=%d pub=%d", f.geoCalls, f.pubCalls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
}

func TestApplySampleWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeUpdater{failGeo: 5}
	if err := applySampleWithRetry(context.Background(), f, "drivers_geo", "drivers:loc", testSample(), 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}

func TestApplySampleWithRetry_PublishesPerDriverChannel(t *testing.T) {
	f := &fakeUpdater{}
	if err := applySampleWithRetry(context.Background(), f, "drivers_geo", "drivers:loc", testSample(), 1, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if len(f.channels) != 1 || f.channels[0] != "drivers:loc:d1" {
		t.Fatalf("unexpected channels: %v", f.channels)
	}
}
