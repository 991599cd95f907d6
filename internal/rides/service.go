// Package rides owns the user-initiated ride mutations: booking, cancel,
// completion, and rating submission. Mutations are deliberately lenient:
// failures are logged and counted, never surfaced as screen errors.
package rides

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/trip-tracking/internal/feed"
	"github.com/example/trip-tracking/internal/models"
	"github.com/example/trip-tracking/internal/observability"
	"github.com/example/trip-tracking/internal/payments"
	"github.com/example/trip-tracking/internal/pricing"
	"github.com/example/trip-tracking/internal/storage"
)

var ErrActiveRide = errors.New("rider already has an active ride")

type Service struct {
	store    storage.Store
	pub      feed.Publisher   // pushes mutated orders to live trackers
	payments payments.Gateway // optional
	logger   *slog.Logger

	mu    sync.Mutex
	holds map[string]string // orderID -> payment hold id
}

func NewService(store storage.Store, pub feed.Publisher, gw payments.Gateway, logger *slog.Logger) *Service {
	return &Service{store: store, pub: pub, payments: gw, logger: logger, holds: make(map[string]string)}
}

type BookRequest struct {
	RiderID     string          `json:"rider_id"`
	Kind        models.OrderKind `json:"kind"`
	Pickup      models.Coord    `json:"pickup"`
	Destination models.Coord    `json:"destination"`
	Stops       []models.Coord  `json:"stops"`
	CarType     string          `json:"car_type"`
}

// Book creates a pending order and places a fare hold. A rider with an
// active trip is refused.
func (s *Service) Book(ctx context.Context, req BookRequest) (*models.Order, error) {
	if req.RiderID == "" {
		return nil, errors.New("rider_id required")
	}
	active, err := s.store.HasActiveOrder(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrActiveRide
	}

	kind := req.Kind
	if kind == "" {
		kind = models.KindRide
	}
	base := pricing.PriceWithStops(req.Pickup, req.Destination, req.Stops)
	now := time.Now()
	o := &models.Order{
		ID:          newID(),
		Kind:        kind,
		Status:      models.StatusPending,
		RiderID:     req.RiderID,
		Pickup:      req.Pickup,
		Destination: req.Destination,
		Stops:       req.Stops,
		CarType:     req.CarType,
		Price:       pricing.CarTypePrice(base, req.CarType),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveOrder(ctx, o); err != nil {
		return nil, err
	}

	if s.payments != nil {
		holdID, err := s.payments.HoldFare(ctx, o.ID, o.Price, "zar")
		if err != nil {
			// booking proceeds; the fare is settled out of band
			observability.MutationFailures.WithLabelValues("hold").Inc()
			s.logger.Warn("fare hold failed", "order_id", o.ID, "error", err)
		} else {
			s.mu.Lock()
			s.holds[o.ID] = holdID
			s.mu.Unlock()
		}
	}
	return o, nil
}

// Cancel moves the order to cancelled and notifies live trackers. The fare
// hold, if any, is released best-effort.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) error {
	if err := s.updateStatus(ctx, orderID, models.StatusCancelled); err != nil {
		return err
	}
	s.logger.Info("order cancelled", "order_id", orderID, "reason", reason)
	if holdID, ok := s.takeHold(orderID); ok && s.payments != nil {
		if err := s.payments.ReleaseFare(ctx, holdID); err != nil {
			observability.MutationFailures.WithLabelValues("release").Inc()
			s.logger.Warn("fare release failed", "order_id", orderID, "error", err)
		}
	}
	return nil
}

// Complete marks the order completed and captures the fare hold.
func (s *Service) Complete(ctx context.Context, orderID string) error {
	if err := s.updateStatus(ctx, orderID, models.StatusCompleted); err != nil {
		return err
	}
	if holdID, ok := s.takeHold(orderID); ok && s.payments != nil {
		if err := s.payments.CaptureFare(ctx, holdID); err != nil {
			observability.MutationFailures.WithLabelValues("capture").Inc()
			s.logger.Warn("fare capture failed", "order_id", orderID, "error", err)
		}
	}
	return nil
}

// SubmitRating records a 1-based rating with free-text feedback. All three
// identifiers must be present; otherwise this is a silent no-op by policy.
func (s *Service) SubmitRating(ctx context.Context, driverID, orderID string, value int, feedback, riderID string) error {
	if driverID == "" || orderID == "" || riderID == "" {
		return nil
	}
	return s.store.SaveRating(ctx, models.Rating{
		OrderID:   orderID,
		DriverID:  driverID,
		RiderID:   riderID,
		Value:     value,
		Feedback:  feedback,
		CreatedAt: time.Now(),
	})
}

// takeHold removes and returns the payment hold recorded for an order.
func (s *Service) takeHold(orderID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.holds[orderID]
	if ok {
		delete(s.holds, orderID)
	}
	return id, ok
}

func (s *Service) updateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	if s.pub != nil {
		o, err := s.store.GetOrder(ctx, orderID)
		if err == nil {
			if err := s.pub.PublishOrder(*o); err != nil {
				s.logger.Warn("order publish failed", "order_id", orderID, "error", err)
			}
		}
	}
	return nil
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
