package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper claims notification keys with SET NX so overlapping runs do not
// deliver the same message twice.
type Deduper struct{ rdb *redis.Client }

func NewDeduper(rdb *redis.Client) *Deduper { return &Deduper{rdb: rdb} }

func (d *Deduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.rdb.SetNX(ctx, key, time.Now().UTC().Unix(), ttl).Result()
}

func (d *Deduper) Release(ctx context.Context, key string) error {
	return d.rdb.Del(ctx, key).Err()
}
