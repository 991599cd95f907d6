// Package tracker implements the live order-tracking session: it follows
// one order through the external feeds, keeps at most one driver-location
// subscription alive, and projects every event into a rendered view pushed
// to a sink.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/trip-tracking/internal/eta"
	"github.com/example/trip-tracking/internal/feed"
	"github.com/example/trip-tracking/internal/models"
	"github.com/example/trip-tracking/internal/observability"
)

// View is the rendered screen state streamed to clients.
type View struct {
	OrderID      string              `json:"order_id"`
	Kind         models.OrderKind    `json:"kind"`
	Status       models.OrderStatus  `json:"status"`
	StatusText   string              `json:"status_text"`
	ETAMins      int                 `json:"eta_mins,omitempty"`
	Driver       *models.DriverInfo  `json:"driver,omitempty"`
	DriverLoc    *models.Coord       `json:"driver_loc,omitempty"`
	AlertVisible bool                `json:"alert_visible"`
	AlertText    string              `json:"alert_text,omitempty"`
	RatingPrompt bool                `json:"rating_prompt"`
	Order        models.Order        `json:"order"`
}

// ViewSink receives view snapshots. Calls are serialized by the session.
type ViewSink interface {
	OnView(View)
}

// DriverResolver resolves a driver profile, always returning something
// renderable (the placeholder on failure).
type DriverResolver interface {
	Resolve(ctx context.Context, driverID string) models.DriverInfo
}

const arrivalAlertText = "Your driver has arrived"

// Config carries the timer windows. Zero values get the product defaults.
type Config struct {
	ArrivalAlertTTL   time.Duration
	RatingPromptDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.ArrivalAlertTTL <= 0 {
		c.ArrivalAlertTTL = 5 * time.Second
	}
	if c.RatingPromptDelay <= 0 {
		c.RatingPromptDelay = 3 * time.Second
	}
	return c
}

// Tracker opens sessions. All collaborators are injected so a session can
// be driven entirely by fakes in tests.
type Tracker struct {
	Orders    feed.OrderFeed
	Locations feed.LocationFeed
	ETA       eta.Estimator
	Directory DriverResolver
	Logger    *slog.Logger
	Cfg       Config
}

// Session is one mounted tracking screen. Open acquires the order-feed
// subscription; Close releases everything. Methods are safe for concurrent
// feed delivery.
type Session struct {
	t    *Tracker
	sink ViewSink
	cfg  Config

	mu             sync.Mutex
	view           View
	closed         bool
	orderUn        feed.Unsubscribe
	locUn          feed.Unsubscribe
	locGen         int // invalidates in-flight samples from replaced subscriptions
	etaKnown       bool
	arrivedOnce    bool // one-shot arrival alert latch, per mount
	ratingQueued   bool
	resolvedDriver string
	timers         []*time.Timer
}

// Open starts tracking the given order. The order value is the trip context
// handed over by the caller (navigation state); its status is applied as
// the first event, then the feed takes over.
func (t *Tracker) Open(initial models.Order, sink ViewSink) (*Session, error) {
	s := &Session{
		t:    t,
		sink: sink,
		cfg:  t.Cfg.withDefaults(),
		view: View{OrderID: initial.ID, Kind: initial.Kind},
	}
	observability.SessionsActive.Inc()
	s.applyOrder(initial)

	un, err := t.Orders.Subscribe(initial.ID, initial.Kind, s.applyOrder)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.mu.Lock()
	s.orderUn = un
	s.mu.Unlock()
	return s, nil
}

// applyOrder is the transition handler: one incoming order record updates
// the projection and, where the status demands it, replaces the location
// subscription. Reacquire-on-transition lives here and nowhere else.
func (s *Session) applyOrder(o models.Order) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	observability.StatusTransitions.WithLabelValues(string(o.Status)).Inc()

	prevStatus := s.view.Status
	s.view.Order = o
	s.view.Status = o.Status
	if o.Kind != "" {
		s.view.Kind = o.Kind
	}
	if o.Status != prevStatus {
		// ETA estimates belong to the phase that produced them.
		s.etaKnown = false
		s.view.ETAMins = 0
	}

	// Driver identity may arrive with any event (food orders discover it
	// via the feed). Resolve once per discovered id, best-effort.
	if o.DriverID != "" && o.DriverID != s.resolvedDriver {
		s.resolvedDriver = o.DriverID
		go s.resolveDriver(o.DriverID)
	}

	switch o.Status {
	case models.StatusAccepted:
		if o.DriverID != "" {
			s.resubscribeLocked(o.DriverID, o.Pickup)
		}
	case models.StatusStarted:
		if o.DriverID != "" {
			s.resubscribeLocked(o.DriverID, o.Destination)
		}
	case models.StatusArrived:
		s.dropLocationLocked()
		if !s.arrivedOnce {
			s.arrivedOnce = true
			s.view.AlertVisible = true
			s.view.AlertText = arrivalAlertText
			observability.ArrivalAlerts.Inc()
			s.afterLocked(s.cfg.ArrivalAlertTTL, s.clearAlert)
		}
	case models.StatusCompleted, models.StatusDelivered:
		s.dropLocationLocked()
		if !s.ratingQueued {
			s.ratingQueued = true
			s.afterLocked(s.cfg.RatingPromptDelay, s.openRatingPrompt)
		}
	case models.StatusCancelled:
		s.dropLocationLocked()
	}

	s.view.StatusText = StatusText(o.Status, s.view.ETAMins, s.etaKnown)
	s.pushLocked()
	s.mu.Unlock()
}

// resubscribeLocked replaces any live location subscription with a fresh
// one bound to the reference coordinate current at this transition. The
// previous subscription is always torn down first; only one is ever live.
func (s *Session) resubscribeLocked(driverID string, ref models.Coord) {
	s.dropLocationLocked()
	s.locGen++
	gen := s.locGen
	un, err := s.t.Locations.Subscribe(driverID, func(sample models.LocationSample) {
		s.applySample(sample, ref, gen)
	})
	if err != nil {
		s.t.Logger.Warn("location subscribe failed", "order_id", s.view.OrderID, "driver_id", driverID, "error", err)
		return
	}
	s.locUn = un
}

func (s *Session) dropLocationLocked() {
	if s.locUn != nil {
		s.locUn()
		s.locUn = nil
	}
}

// applySample recomputes the ETA against the reference coordinate captured
// when the subscription was created. Samples from a replaced subscription
// (stale gen) or arriving after tracking stopped are discarded.
func (s *Session) applySample(sample models.LocationSample, ref models.Coord, gen int) {
	mins, err := s.t.ETA.EstimateMinutes(sample.Loc, ref)
	if err != nil {
		s.t.Logger.Warn("eta estimate failed", "order_id", s.view.OrderID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.locGen || !tracksLocation(s.view.Status) {
		return
	}
	observability.LocationSamples.Inc()
	s.etaKnown = true
	s.view.ETAMins = mins
	loc := sample.Loc
	s.view.DriverLoc = &loc
	if s.view.Driver != nil {
		s.view.Driver.LastKnown = loc
	}
	s.view.StatusText = StatusText(s.view.Status, mins, true)
	s.pushLocked()
}

func (s *Session) resolveDriver(driverID string) {
	info := s.t.Directory.Resolve(context.Background(), driverID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.view.Driver = &info
	s.pushLocked()
}

func (s *Session) clearAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.view.AlertVisible {
		return
	}
	s.view.AlertVisible = false
	s.view.AlertText = ""
	s.pushLocked()
}

func (s *Session) openRatingPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.view.RatingPrompt = true
	s.pushLocked()
}

// afterLocked schedules a fire-once timer tied to the session so Close can
// cancel it before it acts on a torn-down screen.
func (s *Session) afterLocked(d time.Duration, fn func()) {
	s.timers = append(s.timers, time.AfterFunc(d, fn))
}

func (s *Session) pushLocked() {
	if s.sink != nil {
		s.sink.OnView(s.view)
	}
}

// Snapshot returns the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Close releases the order and location subscriptions and cancels pending
// timers. Safe to call more than once; after Close no further views are
// pushed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, tm := range s.timers {
		tm.Stop()
	}
	s.timers = nil
	orderUn, locUn := s.orderUn, s.locUn
	s.orderUn, s.locUn = nil, nil
	s.mu.Unlock()

	// Release outside the lock: the feeds may be mid-delivery.
	if locUn != nil {
		locUn()
	}
	if orderUn != nil {
		orderUn()
	}
	observability.SessionsActive.Dec()
}
