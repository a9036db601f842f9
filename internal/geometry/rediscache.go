package geometry

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisCachedFetcher keeps raw partition documents in Redis so that several
// server instances share one download of each partition. Redis errors are
// logged and the request falls through to Next.
type RedisCachedFetcher struct {
	Next      Fetcher
	Redis     *redis.Client
	TTL       time.Duration
	KeyPrefix string
}

func (f *RedisCachedFetcher) key(p Partition) string {
	prefix := f.KeyPrefix
	if prefix == "" {
		prefix = "territory:geometry:"
	}
	return prefix + p.ID
}

func (f *RedisCachedFetcher) Fetch(ctx context.Context, p Partition) ([]byte, error) {
	key := f.key(p)

	b, err := f.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		metrics.GeometryRedisHitsTotal.Inc()
		return b, nil
	case errors.Is(err, redis.Nil):
		metrics.GeometryRedisMissesTotal.Inc()
	default:
		log.Printf("[GeometryStore] redis get %s failed: %v", key, err)
	}

	b, err = f.Next.Fetch(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := f.Redis.Set(ctx, key, b, f.TTL).Err(); err != nil {
		log.Printf("[GeometryStore] redis set %s failed: %v", key, err)
	}
	return b, nil
}
