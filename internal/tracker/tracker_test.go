package tracker

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/trip-tracking/internal/feed"
	"github.com/example/trip-tracking/internal/models"
)

// fakeOrderFeed delivers emitted orders to the subscriber synchronously.
type fakeOrderFeed struct {
	mu      sync.Mutex
	handler func(models.Order)
	active  int
}

func (f *fakeOrderFeed) Subscribe(orderID string, kind models.OrderKind, onUpdate func(models.Order)) (feed.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = onUpdate
	f.active++
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
		})
	}, nil
}

func (f *fakeOrderFeed) emit(o models.Order) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(o)
	}
}

func (f *fakeOrderFeed) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

type fakeLocationFeed struct {
	mu         sync.Mutex
	handler    func(models.LocationSample)
	active     int
	subscribes int
}

func (f *fakeLocationFeed) Subscribe(driverID string, onSample func(models.LocationSample)) (feed.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = onSample
	f.active++
	f.subscribes++
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
		})
	}, nil
}

func (f *fakeLocationFeed) emit(s models.LocationSample) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(s)
	}
}

func (f *fakeLocationFeed) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeLocationFeed) totalSubscribes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

type fixedETA struct{ mins int }

func (f fixedETA) EstimateMinutes(from, to models.Coord) (int, error) { return f.mins, nil }

type fakeResolver struct{ info models.DriverInfo }

func (f fakeResolver) Resolve(ctx context.Context, driverID string) models.DriverInfo {
	if f.info.ID == "" {
		return models.PlaceholderDriver
	}
	return f.info
}

type recordingSink struct {
	mu    sync.Mutex
	views []View
}

func (r *recordingSink) OnView(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recordingSink) alertRises() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	prev := false
	for _, v := range r.views {
		if v.AlertVisible && !prev {
			n++
		}
		prev = v.AlertVisible
	}
	return n
}

type harness struct {
	orders *fakeOrderFeed
	locs   *fakeLocationFeed
	sink   *recordingSink
	sess   *Session
}

func newHarness(t *testing.T, etaMins int) *harness {
	t.Helper()
	h := &harness{orders: &fakeOrderFeed{}, locs: &fakeLocationFeed{}, sink: &recordingSink{}}
	tr := &Tracker{
		Orders:    h.orders,
		Locations: h.locs,
		ETA:       fixedETA{mins: etaMins},
		Directory: fakeResolver{},
		Logger:    slog.Default(),
		Cfg:       Config{ArrivalAlertTTL: 20 * time.Millisecond, RatingPromptDelay: 20 * time.Millisecond},
	}
	sess, err := tr.Open(models.Order{ID: "o1", Kind: models.KindRide, Status: models.StatusPending}, h.sink)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sess.Close)
	h.sess = sess
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestArrivalAlertFiresExactlyOncePerMount(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusArrived})
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusArrived})
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusArrived})

	if got := h.sink.alertRises(); got != 1 {
		t.Fatalf("expected alert to rise once, rose %d times", got)
	}
	if h.sess.Snapshot().StatusText != "Your driver has arrived" {
		t.Fatalf("unexpected text: %q", h.sess.Snapshot().StatusText)
	}
}

func TestAcceptedSubscribesExactlyOneLocationFeed(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusAccepted, DriverID: "d1"})
	if h.locs.activeSubs() != 1 {
		t.Fatalf("expected 1 active subscription, got %d", h.locs.activeSubs())
	}
	// transition to started replaces, never layers
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusStarted, DriverID: "d1"})
	if h.locs.activeSubs() != 1 {
		t.Fatalf("expected 1 active subscription after started, got %d", h.locs.activeSubs())
	}
	if h.locs.totalSubscribes() != 2 {
		t.Fatalf("expected 2 subscribes total, got %d", h.locs.totalSubscribes())
	}
}

func TestTerminalStatusesReleaseLocationFeed(t *testing.T) {
	for _, status := range []models.OrderStatus{models.StatusArrived, models.StatusCompleted, models.StatusDelivered} {
		h := newHarness(t, 4)
		h.orders.emit(models.Order{ID: "o1", Status: models.StatusAccepted, DriverID: "d1"})
		h.orders.emit(models.Order{ID: "o1", Status: status})
		if h.locs.activeSubs() != 0 {
			t.Fatalf("status %s: expected 0 active subscriptions, got %d", status, h.locs.activeSubs())
		}
	}
}

func TestCloseReleasesAllSubscriptions(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusAccepted, DriverID: "d1"})
	h.sess.Close()
	if h.orders.activeSubs() != 0 {
		t.Fatalf("order feed still subscribed after close")
	}
	if h.locs.activeSubs() != 0 {
		t.Fatalf("location feed still subscribed after close")
	}
}

func TestDuplicateStatusEventIsIdempotent(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusAccepted, DriverID: "d1", Pickup: models.Coord{Lat: -26.20, Lng: 28.05}})
	h.locs.emit(models.LocationSample{DriverID: "d1", Loc: models.Coord{Lat: -26.21, Lng: 28.05}})
	before := h.sess.Snapshot().StatusText

	h.orders.emit(models.Order{ID: "o1", Status: models.StatusAccepted, DriverID: "d1", Pickup: models.Coord{Lat: -26.20, Lng: 28.05}})
	after := h.sess.Snapshot().StatusText
	if before != after {
		t.Fatalf("text changed on duplicate event: %q -> %q", before, after)
	}
	if h.locs.activeSubs() != 1 {
		t.Fatalf("duplicate event created extra subscription: %d", h.locs.activeSubs())
	}
}

func TestAcceptedWithSampleRendersArrivingText(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusAccepted, DriverID: "d1", Pickup: models.Coord{Lat: -26.20, Lng: 28.05}})
	h.locs.emit(models.LocationSample{DriverID: "d1", Loc: models.Coord{Lat: -26.21, Lng: 28.05}})

	if got := h.sess.Snapshot().StatusText; got != "Arriving in 4 mins" {
		t.Fatalf("expected %q, got %q", "Arriving in 4 mins", got)
	}
}

func TestStartedTracksDestinationAndRendersTripText(t *testing.T) {
	h := newHarness(t, 12)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusStarted, DriverID: "d1", Destination: models.Coord{Lat: -26.10, Lng: 28.00}})
	h.locs.emit(models.LocationSample{DriverID: "d1", Loc: models.Coord{Lat: -26.21, Lng: 28.05}})

	if got := h.sess.Snapshot().StatusText; got != "On trip - ETA 12 mins" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestArrivedAlertAutoClears(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusArrived})
	if v := h.sess.Snapshot(); !v.AlertVisible {
		t.Fatal("expected alert visible on arrival")
	}
	waitFor(t, func() bool { return !h.sess.Snapshot().AlertVisible })
}

func TestCompletedOpensRatingPromptAfterDelay(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusCompleted})
	if got := h.sess.Snapshot().StatusText; got != "You've arrived at your destination" {
		t.Fatalf("unexpected text: %q", got)
	}
	if h.sess.Snapshot().RatingPrompt {
		t.Fatal("rating prompt should wait for the delay")
	}
	waitFor(t, func() bool { return h.sess.Snapshot().RatingPrompt })
}

func TestCloseCancelsPendingTimers(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusCompleted})
	h.sess.Close()
	time.Sleep(50 * time.Millisecond)
	if h.sess.Snapshot().RatingPrompt {
		t.Fatal("rating prompt fired after close")
	}
}

func TestLateSampleAfterTerminalStatusIsDiscarded(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusAccepted, DriverID: "d1", Pickup: models.Coord{Lat: -26.20, Lng: 28.05}})
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusArrived})

	// in-flight sample racing the unsubscription
	h.locs.emit(models.LocationSample{DriverID: "d1", Loc: models.Coord{Lat: -26.21, Lng: 28.05}})

	v := h.sess.Snapshot()
	if v.StatusText != "Your driver has arrived" {
		t.Fatalf("late sample changed text: %q", v.StatusText)
	}
	if v.ETAMins != 0 {
		t.Fatalf("late sample set ETA: %d", v.ETAMins)
	}
}

func TestDriverResolutionFallsBackToPlaceholder(t *testing.T) {
	h := newHarness(t, 4)
	h.orders.emit(models.Order{ID: "o1", Status: models.StatusAccepted, DriverID: "d-unknown"})
	waitFor(t, func() bool { return h.sess.Snapshot().Driver != nil })
	d := h.sess.Snapshot().Driver
	if d.Name != "Allen" || d.Plate != "KW14CKGP" {
		t.Fatalf("expected placeholder driver, got %+v", d)
	}
}

func TestStatusTextProjection(t *testing.T) {
	cases := []struct {
		status   models.OrderStatus
		eta      int
		etaKnown bool
		want     string
	}{
		{models.StatusPending, 0, false, "Finding your driver"},
		{models.StatusAccepted, 4, true, "Arriving in 4 mins"},
		{models.StatusAccepted, 1, true, "Arriving in 1 min"},
		{models.StatusAccepted, 0, false, "Your driver is on the way"},
		{models.StatusStarted, 9, true, "On trip - ETA 9 mins"},
		{models.StatusArrived, 0, false, "Your driver has arrived"},
		{models.StatusCompleted, 0, false, "You've arrived at your destination"},
		{models.StatusDelivered, 0, false, "You've arrived at your destination"},
		{models.StatusCancelled, 0, false, "Your ride was cancelled"},
	}
	for _, c := range cases {
		if got := StatusText(c.status, c.eta, c.etaKnown); got != c.want {
			t.Errorf("StatusText(%s, %d, %v) = %q, want %q", c.status, c.eta, c.etaKnown, got, c.want)
		}
	}
}
