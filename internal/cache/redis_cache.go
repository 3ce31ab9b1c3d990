// Package cache implements the short-TTL, best-effort feed cache (C10).
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FeedCache wraps a Redis client. Every method is best-effort: any error is
// treated as a cache miss (for reads) or logged and dropped (for writes and
// invalidations), so Redis being unavailable never fails a feed request.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FeedCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func todayPoolKey(userID uuid.UUID) string { return "today_pool:" + userID.String() }
func weekPoolKey(userID uuid.UUID) string  { return "week_pool:" + userID.String() }

func (c *FeedCache) GetTodayPool(userID uuid.UUID, out interface{}) bool {
	return c.get(todayPoolKey(userID), out)
}

func (c *FeedCache) SetTodayPool(userID uuid.UUID, value interface{}) {
	c.set(todayPoolKey(userID), value)
}

func (c *FeedCache) GetWeekPool(userID uuid.UUID, out interface{}) bool {
	return c.get(weekPoolKey(userID), out)
}

func (c *FeedCache) SetWeekPool(userID uuid.UUID, value interface{}) {
	c.set(weekPoolKey(userID), value)
}

// InvalidateUser drops both cache entries for a user. Called by the
// Feedback Handler on every successful mutation.
func (c *FeedCache) InvalidateUser(userID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.client.Del(ctx, todayPoolKey(userID), weekPoolKey(userID)).Err(); err != nil {
		log.Printf("cache invalidate failed for user %s: %v", userID, err)
	}
}

func (c *FeedCache) get(key string, out interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

func (c *FeedCache) set(key string, value interface{}) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("cache set failed for key %s: %v", key, err)
	}
}
