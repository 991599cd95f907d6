package rides

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/example/trip-tracking/internal/models"
	"github.com/example/trip-tracking/internal/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	orders []models.Order
}

func (f *fakePublisher) PublishOrder(o models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakePublisher) PublishLocation(s models.LocationSample) error { return nil }

type fakeGateway struct {
	holdErr  error
	holds    int
	captures int
	releases int
}

func (f *fakeGateway) HoldFare(ctx context.Context, orderID string, amount float64, currency string) (string, error) {
	if f.holdErr != nil {
		return "", f.holdErr
	}
	f.holds++
	return "hold_" + orderID, nil
}

func (f *fakeGateway) CaptureFare(ctx context.Context, holdID string) error {
	f.captures++
	return nil
}

func (f *fakeGateway) ReleaseFare(ctx context.Context, holdID string) error {
	f.releases++
	return nil
}

func newService(gw *fakeGateway) (*Service, *storage.MemoryStore, *fakePublisher) {
	store := storage.NewMemoryStore()
	pub := &fakePublisher{}
	return NewService(store, pub, gw, slog.Default()), store, pub
}

func TestBookRefusedWhileRideActive(t *testing.T) {
	svc, store, _ := newService(&fakeGateway{})
	_ = store.SaveOrder(context.Background(), &models.Order{ID: "o0", RiderID: "r1", Status: models.StatusStarted})

	_, err := svc.Book(context.Background(), BookRequest{RiderID: "r1"})
	if !errors.Is(err, ErrActiveRide) {
		t.Fatalf("expected ErrActiveRide, got %v", err)
	}
}

func TestBookPlacesFareHold(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, _ := newService(gw)
	o, err := svc.Book(context.Background(), BookRequest{
		RiderID:     "r1",
		Pickup:      models.Coord{Lat: -26.20, Lng: 28.05},
		Destination: models.Coord{Lat: -26.10, Lng: 28.00},
		CarType:     "comfort",
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.Price <= 0 {
		t.Fatalf("expected priced order, got %f", o.Price)
	}
	if gw.holds != 1 {
		t.Fatalf("expected 1 hold, got %d", gw.holds)
	}
}

func TestBookSurvivesHoldFailure(t *testing.T) {
	svc, _, _ := newService(&fakeGateway{holdErr: errors.New("stripe down")})
	if _, err := svc.Book(context.Background(), BookRequest{RiderID: "r1"}); err != nil {
		t.Fatalf("hold failure must not fail booking: %v", err)
	}
}

func TestCancelPublishesAndReleasesHold(t *testing.T) {
	gw := &fakeGateway{}
	svc, store, pub := newService(gw)
	o, _ := svc.Book(context.Background(), BookRequest{RiderID: "r1"})

	if err := svc.Cancel(context.Background(), o.ID, "changed my mind"); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetOrder(context.Background(), o.ID)
	if got.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if gw.releases != 1 {
		t.Fatalf("expected hold release, got %d", gw.releases)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.orders) == 0 || pub.orders[len(pub.orders)-1].Status != models.StatusCancelled {
		t.Fatalf("expected cancelled order published, got %+v", pub.orders)
	}
}

func TestCancelUnknownOrderReturnsError(t *testing.T) {
	svc, _, _ := newService(&fakeGateway{})
	if err := svc.Cancel(context.Background(), "nope", ""); err == nil {
		t.Fatal("expected error for unknown order")
	}
}

func TestCompleteCapturesHold(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, _ := newService(gw)
	o, _ := svc.Book(context.Background(), BookRequest{RiderID: "r1"})

	if err := svc.Complete(context.Background(), o.ID); err != nil {
		t.Fatal(err)
	}
	if gw.captures != 1 {
		t.Fatalf("expected 1 capture, got %d", gw.captures)
	}
}

func TestSubmitRatingRequiresAllIDs(t *testing.T) {
	svc, store, _ := newService(&fakeGateway{})
	// missing driver id: silent no-op
	if err := svc.SubmitRating(context.Background(), "", "o1", 5, "great", "r1"); err != nil {
		t.Fatal(err)
	}
	if len(store.Ratings()) != 0 {
		t.Fatal("rating stored despite missing id")
	}
	if err := svc.SubmitRating(context.Background(), "d1", "o1", 5, "great", "r1"); err != nil {
		t.Fatal(err)
	}
	got := store.Ratings()
	if len(got) != 1 || got[0].Value != 5 || got[0].DriverID != "d1" {
		t.Fatalf("unexpected ratings: %+v", got)
	}
}
