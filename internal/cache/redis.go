package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// RedisQueryResultCache is an optional shared-process backing for the
// query-result cache, for deployments running more than one core instance
// behind the same record source.
type RedisQueryResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQueryResultCache dials addr and validates the connection with a
// ping before returning, so a misconfigured cache fails at startup.
func NewRedisQueryResultCache(addr string) (*RedisQueryResultCache, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisQueryResultCache{client: c, ttl: queryResultCacheTTL}, nil
}

// Get returns the cached candidate list for the given query tuple.
func (r *RedisQueryResultCache) Get(ctx context.Context, query, patientID string, filters model.QueryFilters) ([]model.RetrievalCandidate, bool, error) {
	key := QueryResultKey(query, patientID, filters)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var candidates []model.RetrievalCandidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, false, err
	}
	return candidates, true, nil
}

// Set stores the candidate list under the query tuple's key with the
// cache's standard TTL.
func (r *RedisQueryResultCache) Set(ctx context.Context, query, patientID string, filters model.QueryFilters, candidates []model.RetrievalCandidate) error {
	key := QueryResultKey(query, patientID, filters)
	raw, err := json.Marshal(candidates)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

// Close closes the underlying Redis client.
func (r *RedisQueryResultCache) Close() error {
	return r.client.Close()
}
