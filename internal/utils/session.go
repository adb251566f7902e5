package utils

import (
	"context" // Context for Redis operations
	"time"    // TTL calculation

	"github.com/redis/go-redis/v9" // Redis client
)

const revokedPrefix = "session:revoked:" // Redis key prefix for revoked tokens

// TokenRevoker denylists session tokens so logout outlives the token's
// signature. Handlers and middleware depend on this rather than on Redis
// directly.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) bool
}

// RedisRevoker keeps the denylist in Redis, each entry expiring with its token
type RedisRevoker struct {
	rdb *redis.Client
}

// NewRedisRevoker wraps a Redis client. A nil client disables revocation:
// logout becomes a no-op and every token reads as live.
func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb}
}

// revocationTTL bounds a denylist entry's lifetime to the token's own.
// Zero means the token has already expired and needs no entry.
func revocationTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return 0
	}
	return ttl
}

// Revoke denylists a session token in Redis until its natural expiry.
// Used by logout: the token stays invalid even though it would still verify.
func (r *RedisRevoker) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if r.rdb == nil {
		return nil // No session store configured
	}
	ttl := revocationTTL(expiresAt) // Keep the entry only as long as the token could be replayed
	if ttl == 0 {
		return nil // Already expired, nothing to revoke
	}
	return r.rdb.Set(ctx, revokedPrefix+token, "1", ttl).Err() // Denylist the token
}

// IsRevoked reports whether a token has been denylisted by logout
func (r *RedisRevoker) IsRevoked(ctx context.Context, token string) bool {
	if r.rdb == nil {
		return false // No session store configured
	}
	// Treat Redis errors as "not revoked" so an outage does not lock everyone out
	n, err := r.rdb.Exists(ctx, revokedPrefix+token).Result()
	return err == nil && n > 0
}
