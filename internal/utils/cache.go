package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // User ID to cache key conversion
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client is treated as a cache miss so callers work without Redis (tests).
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // No cache configured
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // No cache configured
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes a key from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, key string) error {
	if rdb == nil {
		return nil // No cache configured
	}
	return rdb.Del(ctx, key).Err() // Delete key from Redis
}

// InvalidateUserCaches drops the cached portfolio and transaction history for a
// user after a trade changes them (simple version: delete first 5 history pages)
func InvalidateUserCaches(ctx context.Context, rdb *redis.Client, userID uint) {
	id := strconv.Itoa(int(userID))                 // User ID as string
	_ = DeleteCache(ctx, rdb, "portfolio:user:"+id) // Invalidate portfolio cache
	txPrefix := "txhistory:user:" + id              // Transaction history prefix
	for i := 1; i <= 5; i++ {
		// Delete cache entries for the default page size
		_ = DeleteCache(ctx, rdb, txPrefix+":page:"+strconv.Itoa(i)+":size:20")
	}
}
