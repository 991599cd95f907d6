package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/trip-tracking/internal/models"
)

// RedisIndex implements Index using Redis GEO commands, sharing the key
// layout written by the location consumer.
type RedisIndex struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisIndex(client *redis.Client, key string) *RedisIndex {
	return &RedisIndex{client: client, key: key, ctx: context.Background()}
}

func (r *RedisIndex) Upsert(driverID string, loc models.Coord) {
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{Longitude: loc.Lng, Latitude: loc.Lat, Name: driverID}).Result()
	_ = r.client.HSet(r.ctx, metaKey(driverID), map[string]interface{}{"updated": time.Now().Format(time.RFC3339)}).Err()
}

func (r *RedisIndex) LastKnown(driverID string) (models.Coord, bool) {
	pos, err := r.client.GeoPos(r.ctx, r.key, driverID).Result()
	if err != nil || len(pos) == 0 || pos[0] == nil {
		return models.Coord{}, false
	}
	return models.Coord{Lat: pos[0].Latitude, Lng: pos[0].Longitude}, true
}

func metaKey(id string) string { return "driver:meta:" + id }
