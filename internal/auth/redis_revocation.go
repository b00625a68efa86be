package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces revocation keys in a shared Redis.
const DefaultRedisKeyPrefix = "catalog:revoked:"

// RedisRevocationSet stores revoked jtis in Redis so that every replica
// of the service sees the same set. Each key carries a TTL equal to the
// token's remaining lifetime, so Redis expires entries on its own.
type RedisRevocationSet struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRevocationSet wraps an existing Redis client.
func NewRedisRevocationSet(client redis.UniversalClient, prefix string) *RedisRevocationSet {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisRevocationSet{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *RedisRevocationSet) key(jti string) string {
	return r.prefix + jti
}

// Revoke implements RevocationSet.
func (r *RedisRevocationSet) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.SetNX(ctx, r.key(jti), expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", jti, err)
	}
	return nil
}

// IsRevoked implements RevocationSet.
func (r *RedisRevocationSet) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", jti, err)
	}
	return n > 0, nil
}

// Purge implements RevocationSet. Redis key TTLs already expire entries.
func (r *RedisRevocationSet) Purge(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

// Len implements RevocationSet by scanning the key prefix.
func (r *RedisRevocationSet) Len(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator() //nolint:mnd // scan batch size
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}

// Ping checks connectivity to Redis.
func (r *RedisRevocationSet) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
