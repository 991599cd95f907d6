package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/example/trip-tracking/internal/models"
)

// RedisFeed implements OrderFeed, LocationFeed and Publisher over Redis
// pub/sub, one channel per order and per driver. Each subscription owns its
// PubSub and receive goroutine; Unsubscribe closes both. Messages on a
// channel are delivered to the callback in arrival order, no batching.
type RedisFeed struct {
	client       *redis.Client
	orderPrefix  string
	driverPrefix string
	logger       *slog.Logger
}

func NewRedisFeed(client *redis.Client, orderPrefix, driverPrefix string, logger *slog.Logger) *RedisFeed {
	return &RedisFeed{client: client, orderPrefix: orderPrefix, driverPrefix: driverPrefix, logger: logger}
}

func (f *RedisFeed) orderChannel(id string, kind models.OrderKind) string {
	return fmt.Sprintf("%s:%s:%s", f.orderPrefix, kind, id)
}

func (f *RedisFeed) driverChannel(id string) string {
	return fmt.Sprintf("%s:%s", f.driverPrefix, id)
}

func (f *RedisFeed) Subscribe(orderID string, kind models.OrderKind, onUpdate func(models.Order)) (Unsubscribe, error) {
	return f.subscribe(f.orderChannel(orderID, kind), func(payload []byte) {
		var o models.Order
		if err := json.Unmarshal(payload, &o); err != nil {
			f.logger.Warn("order feed: bad payload", "order_id", orderID, "error", err)
			return
		}
		onUpdate(o)
	})
}

// SubscribeLocation is the LocationFeed side of the same client.
func (f *RedisFeed) SubscribeLocation(driverID string, onSample func(models.LocationSample)) (Unsubscribe, error) {
	return f.subscribe(f.driverChannel(driverID), func(payload []byte) {
		var s models.LocationSample
		if err := json.Unmarshal(payload, &s); err != nil {
			f.logger.Warn("location feed: bad payload", "driver_id", driverID, "error", err)
			return
		}
		onSample(s)
	})
}

func (f *RedisFeed) subscribe(channel string, deliver func([]byte)) (Unsubscribe, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ps := f.client.Subscribe(ctx, channel)
	// Force the SUBSCRIBE round-trip so a broken connection surfaces here
	// instead of as a silently empty feed.
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		for msg := range ps.Channel() {
			deliver([]byte(msg.Payload))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = ps.Close()
		})
	}, nil
}

func (f *RedisFeed) PublishOrder(o models.Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return f.client.Publish(context.Background(), f.orderChannel(o.ID, o.Kind), b).Err()
}

func (f *RedisFeed) PublishLocation(s models.LocationSample) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return f.client.Publish(context.Background(), f.driverChannel(s.DriverID), b).Err()
}

// locationFeed adapts RedisFeed to the LocationFeed interface so both feed
// roles can be wired from one client.
type locationFeed struct{ f *RedisFeed }

func (l locationFeed) Subscribe(driverID string, onSample func(models.LocationSample)) (Unsubscribe, error) {
	return l.f.SubscribeLocation(driverID, onSample)
}

// Locations returns the LocationFeed view of this client.
func (f *RedisFeed) Locations() LocationFeed { return locationFeed{f} }
