package httpapi

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/trip-tracking/internal/fleet"
	"github.com/example/trip-tracking/internal/models"
	"github.com/example/trip-tracking/internal/rides"
	"github.com/example/trip-tracking/internal/storage"
)

func newTestServer(store *storage.MemoryStore) *Server {
	s := NewServer(slog.Default())
	s.Store = store
	s.Rides = rides.NewService(store, nil, nil, slog.Default())
	s.Fleet = fleet.NewCatalog(store)
	return s
}

func TestCancelFailureStillClosesDialog(t *testing.T) {
	s := newTestServer(storage.NewMemoryStore())
	// unknown order: the mutation fails, the handler still returns 204
	req := httptest.NewRequest("POST", "/api/v1/orders/nope/cancel", strings.NewReader(`{"reason":"test"}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != 204 {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestCancelUpdatesStatus(t *testing.T) {
	store := storage.NewMemoryStore()
	_ = store.SaveOrder(context.Background(), &models.Order{ID: "o1", RiderID: "r1", Status: models.StatusAccepted})
	s := newTestServer(store)

	req := httptest.NewRequest("POST", "/api/v1/orders/o1/cancel", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != 204 {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	got, _ := store.GetOrder(context.Background(), "o1")
	if got.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestRatingMissingIDsIsSilentNoop(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newTestServer(store)

	req := httptest.NewRequest("POST", "/api/v1/orders/o1/rating", strings.NewReader(`{"value":5,"feedback":"great"}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != 204 {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(store.Ratings()) != 0 {
		t.Fatal("rating stored despite missing ids")
	}
}

func TestBookConflictWhileRideActive(t *testing.T) {
	store := storage.NewMemoryStore()
	_ = store.SaveOrder(context.Background(), &models.Order{ID: "o1", RiderID: "r1", Status: models.StatusStarted})
	s := newTestServer(store)

	req := httptest.NewRequest("POST", "/api/v1/orders/book", strings.NewReader(`{"rider_id":"r1"}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != 409 {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ride in progress") {
		t.Fatalf("expected blocking notice, got %s", w.Body.String())
	}
}

func TestFleetOptionsRideMode(t *testing.T) {
	s := newTestServer(storage.NewMemoryStore())
	req := httptest.NewRequest("GET", "/api/v1/fleet/options?mode=ride&base_price=100", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "comfort") {
		t.Fatalf("expected catalog offers, got %s", w.Body.String())
	}
}

func TestQuote(t *testing.T) {
	s := newTestServer(storage.NewMemoryStore())
	body := `{"pickup":{"lat":-26.20,"lng":28.05},"destination":{"lat":-26.10,"lng":28.00},"car_type":"comfort"}`
	req := httptest.NewRequest("POST", "/api/v1/quote", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "price") {
		t.Fatalf("expected price, got %s", w.Body.String())
	}
}
