package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/trip-tracking/internal/feed"
	"github.com/example/trip-tracking/internal/fleet"
	"github.com/example/trip-tracking/internal/geo"
	"github.com/example/trip-tracking/internal/ingest"
	"github.com/example/trip-tracking/internal/models"
	"github.com/example/trip-tracking/internal/observability"
	"github.com/example/trip-tracking/internal/pricing"
	"github.com/example/trip-tracking/internal/rides"
	"github.com/example/trip-tracking/internal/selection"
	"github.com/example/trip-tracking/internal/storage"
	"github.com/example/trip-tracking/internal/tracker"
)

type Server struct {
	Store   storage.Store
	Rides   *rides.Service
	Tracker *tracker.Tracker
	Fleet   *fleet.Catalog
	Kafka   *ingest.KafkaProducer // optional
	Pub     feed.Publisher        // optional direct feed publish
	GeoIdx  geo.Index             // optional

	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(logger *slog.Logger) *Server {
	s := &Server{logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/ws/track/{order_id}", s.handleTrackWS).Methods("GET")
	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/api/v1/orders/book", s.handleBook).Methods("POST")
	s.mux.HandleFunc("/api/v1/orders/{id}/cancel", s.handleCancel).Methods("POST")
	s.mux.HandleFunc("/api/v1/orders/{id}/rating", s.handleRating).Methods("POST")
	s.mux.HandleFunc("/api/v1/fleet/options", s.handleFleetOptions).Methods("GET")
	s.mux.HandleFunc("/api/v1/quote", s.handleQuote).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type locationMessage struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var m locationMessage
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if m.DriverID == "" {
		http.Error(w, "driver_id required", 400)
		return
	}
	sample := models.LocationSample{DriverID: m.DriverID, Loc: models.Coord{Lat: m.Lat, Lng: m.Lng}}
	// publish to kafka if configured; the consumer fans out from there
	if s.Kafka != nil {
		if err := s.Kafka.PublishLocation(sample); err != nil {
			s.logger.Warn("kafka publish failed", "driver_id", m.DriverID, "error", err)
		}
	} else if s.Pub != nil {
		// no pipeline: feed the live sessions directly
		if err := s.Pub.PublishLocation(sample); err != nil {
			s.logger.Warn("feed publish failed", "driver_id", m.DriverID, "error", err)
		}
	}
	if s.GeoIdx != nil {
		s.GeoIdx.Upsert(m.DriverID, sample.Loc)
	}
	w.WriteHeader(204)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req rides.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	o, err := s.Rides.Book(r.Context(), req)
	if errors.Is(err, rides.ErrActiveRide) || errors.Is(err, selection.ErrRideInProgress) {
		writeJSON(w, http.StatusConflict, map[string]any{"notice": "You already have a ride in progress"})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// handleCancel applies the lenient cancel policy: a failed mutation is
// logged and counted, and the client still gets a 204 so the confirmation
// dialog simply closes.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if err := s.Rides.Cancel(r.Context(), id, body.Reason); err != nil {
		observability.MutationFailures.WithLabelValues("cancel").Inc()
		s.logger.Warn("cancel failed", "order_id", id, "error", err)
	}
	w.WriteHeader(204)
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		DriverID string `json:"driver_id"`
		RiderID  string `json:"rider_id"`
		Value    int    `json:"value"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if err := s.Rides.SubmitRating(r.Context(), body.DriverID, id, body.Value, body.Feedback, body.RiderID); err != nil {
		observability.MutationFailures.WithLabelValues("rating").Inc()
		s.logger.Warn("rating submit failed", "order_id", id, "error", err)
	}
	w.WriteHeader(204)
}

func (s *Server) handleFleetOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("mode")
	if mode == "" {
		mode = fleet.ModeRide
	}
	base := 0.0
	if v := q.Get("base_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "invalid base_price", 400)
			return
		}
		base = f
	}
	offers, err := s.Fleet.Options(r.Context(), mode, q.Get("option"), base)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if sortMode := q.Get("sort"); sortMode != "" {
		panel := selection.NewPanel(offers, nil)
		panel.SetSort(selection.SortMode(sortMode))
		offers = panel.Offers()
	}
	writeJSON(w, 200, offers)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pickup      models.Coord   `json:"pickup"`
		Destination models.Coord   `json:"destination"`
		Stops       []models.Coord `json:"stops"`
		CarType     string         `json:"car_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	base := pricing.PriceWithStops(req.Pickup, req.Destination, req.Stops)
	writeJSON(w, 200, map[string]any{
		"base_price": base,
		"price":      pricing.CarTypePrice(base, req.CarType),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
