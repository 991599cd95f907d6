// Package feed defines the push-based data sources a tracking session
// consumes: the order feed, delivering the full order record on every
// change, and the driver location feed, delivering position samples at an
// externally determined cadence. Both hand back an explicit unsubscribe
// handle; the subscriber owns the handle's lifetime.
package feed

import "github.com/example/trip-tracking/internal/models"

// Unsubscribe releases a subscription. Safe to call more than once.
type Unsubscribe func()

type OrderFeed interface {
	Subscribe(orderID string, kind models.OrderKind, onUpdate func(models.Order)) (Unsubscribe, error)
}

type LocationFeed interface {
	Subscribe(driverID string, onSample func(models.LocationSample)) (Unsubscribe, error)
}

// Publisher is the write side used by the ingest pipeline and ride
// mutations to push updates into the feeds.
type Publisher interface {
	PublishOrder(o models.Order) error
	PublishLocation(s models.LocationSample) error
}
