package httpapi

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/trip-tracking/internal/models"
	"github.com/example/trip-tracking/internal/storage"
	"github.com/example/trip-tracking/internal/tracker"
)

var upgrader = websocket.Upgrader{}

// wsSink pushes view snapshots down one socket. Writes are serialized;
// gorilla connections do not allow concurrent writers.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) OnView(v tracker.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteJSON(v)
}

// handleTrackWS mounts a tracking session for the connected client. The
// socket lifetime is the screen lifetime: closing it tears down the
// session and every feed subscription it holds.
func (s *Server) handleTrackWS(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	kind := models.OrderKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = models.KindRide
	}

	initial := models.Order{ID: orderID, Kind: kind, Status: models.StatusPending}
	if o, err := s.Store.GetOrder(r.Context(), orderID); err == nil {
		initial = *o
	} else if !errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "order lookup failed", 500)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", 400)
		return
	}

	sess, err := s.Tracker.Open(initial, &wsSink{conn: conn})
	if err != nil {
		s.logger.Warn("tracking session open failed", "order_id", orderID, "error", err)
		_ = conn.Close()
		return
	}
	defer sess.Close()
	defer conn.Close()

	// drain reads until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
