package events

import (
	"context"
	"time"

	goRedis "github.com/redis/go-redis/v9"
)

const dedupePrefix = "ledger:event:"

// RedisDeduper records processed event ids in Redis with a retention window.
// SETNX makes the first-seen check atomic across consumer instances.
type RedisDeduper struct {
	client *goRedis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *goRedis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, dedupePrefix+eventID, 1, d.ttl).Result()
}
