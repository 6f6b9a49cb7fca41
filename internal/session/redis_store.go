package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/promptliano/mcpd/internal/domain"
)

// RedisStore is a distributed Store backed by github.com/redis/go-redis/v9,
// selected via Queue.LockBackend / Session.Backend = "redis" (§D.8) so
// multiple mcpd processes can share session state behind a load balancer.
// The in-memory store remains the default for single-process deployments.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. ttl bounds how long an entry
// survives in Redis itself, independent of the Manager's own TTL sweep —
// it exists purely so a crashed process doesn't leak sessions forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "mcpd:session:", ttl: ttl}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

// Put implements Store.
func (r *RedisStore) Put(s *domain.Session) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.client.Set(ctx, r.key(s.ID), data, r.ttl)
}

// Get implements Store.
func (r *RedisStore) Get(id string) (*domain.Session, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Delete implements Store.
func (r *RedisStore) Delete(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.client.Del(ctx, r.key(id))
}

// Range implements Store by scanning keys under the session prefix. This is
// O(n) and only used by the sweep, which already runs on a multi-minute
// cadence (spec §4.7), so the cost is acceptable.
func (r *RedisStore) Range(fn func(*domain.Session) bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var s domain.Session
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		if !fn(&s) {
			return
		}
	}
}
