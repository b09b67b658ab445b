package geo

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/example/fleet-dispatch/internal/models"
)

// RedisIndex implements Index using Redis GEO commands, one sorted set per
// member kind.
type RedisIndex struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

func NewRedisIndex(addr, password, prefix string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, prefix: prefix, ctx: context.Background()}
}

func (r *RedisIndex) key(kind string) string { return r.prefix + ":" + kind }

func (r *RedisIndex) Upsert(kind, id string, loc models.Coord) {
	_, _ = r.client.GeoAdd(r.ctx, r.key(kind), &redis.GeoLocation{
		Longitude: loc.Lon, Latitude: loc.Lat, Name: id,
	}).Result()
}

func (r *RedisIndex) Remove(kind, id string) {
	_ = r.client.ZRem(r.ctx, r.key(kind), id).Err()
}

func (r *RedisIndex) Nearby(kind string, at models.Coord, radiusMeters float64, limit int) []Candidate {
	q := &redis.GeoRadiusQuery{
		Radius: radiusMeters, Unit: "m",
		WithCoord: true, WithDist: true,
		Count: limit, Sort: "ASC",
	}
	res, err := r.client.GeoRadius(r.ctx, r.key(kind), at.Lon, at.Lat, q).Result()
	if err != nil {
		return nil
	}
	out := make([]Candidate, 0, len(res))
	for _, g := range res {
		out = append(out, Candidate{
			ID:       g.Name,
			Loc:      models.Coord{Lat: g.Latitude, Lon: g.Longitude},
			Distance: g.Dist,
		})
	}
	return out
}
