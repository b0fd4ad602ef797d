package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
)

const (
	defaultKeyPrefix = "inventory:analytics"
	defaultChannel   = "inventory.bump"
)

// ErrCacheUnavailable marks Redis failures; callers fall back to computing
// the value directly.
var ErrCacheUnavailable = errors.New("analytics: cache unavailable")

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithChannel sets the pub/sub channel used to announce version bumps.
func WithChannel(channel string) CacheOption {
	return func(c *Cache) {
		if channel != "" {
			c.channel = channel
		}
	}
}

// WithKeyPrefix namespaces every key written by the cache.
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// Cache stores aggregate results under a global version. Bumping the
// version orphans every older entry, which then expires through its TTL.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	channel string

	// version memoises the Redis counter while a listener keeps it fresh.
	version   atomic.Int64
	listening atomic.Bool
}

// NewCache builds the cache helper.
func NewCache(client *redis.Client, ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{client: client, ttl: ttl, prefix: defaultKeyPrefix, channel: defaultChannel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) versionKey() string {
	return c.prefix + ":version"
}

// Version returns the current cache version, initialising it to 1.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	if c.listening.Load() {
		if v := c.version.Load(); v > 0 {
			return v, nil
		}
	}
	ver, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		if _, err := c.client.SetNX(ctx, c.versionKey(), 1, 0).Result(); err != nil {
			return 0, err
		}
		ver, err = c.client.Get(ctx, c.versionKey()).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
	}
	c.version.Store(ver)
	return ver, nil
}

// BuildKey joins parts under the prefix and the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return c.prefix + ":v" + strconv.FormatInt(ver, 10) + ":" + joined, nil
}

// FetchJSON decodes the cached value at key into dest, or runs loader and
// stores its result. Fresh values round-trip through JSON as well.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("analytics: cache loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			return json.Unmarshal(payload, dest)
		case !errors.Is(err, redis.Nil):
			return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c != nil && c.client != nil {
		// A failed write only costs a recomputation on the next read.
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return json.Unmarshal(raw, dest)
}

// Bump advances the version and announces it to other instances.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, c.versionKey()).Result()
	if err != nil {
		return err
	}
	c.version.Store(ver)
	return c.client.Publish(ctx, c.channel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by any instance so
// Version can be answered without a Redis round trip. It returns once the
// subscription is confirmed; the listener stops with ctx.
func (c *Cache) ListenForInvalidation(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, c.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	c.version.Store(0)
	c.listening.Store(true)
	go func() {
		defer func() {
			c.listening.Store(false)
			_ = pubsub.Close()
		}()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					// Re-read from Redis on the next Version call.
					c.version.Store(0)
					continue
				}
				if ver > c.version.Load() {
					c.version.Store(ver)
				}
			}
		}
	}()
	return nil
}

// HandleLedgerCommitted invalidates cached aggregates after every ledger
// commit so dashboards read their own writes.
func (c *Cache) HandleLedgerCommitted(ctx context.Context, _ inventory.CommittedEvent) error {
	return c.Bump(ctx)
}

func queryKey(op string, q Query, day time.Time, extra ...string) string {
	parts := []string{op, q.Scope.Token(), q.Filter.String(), string(q.Period), strconv.Itoa(q.Limit), day.Format("2006-01-02")}
	parts = append(parts, extra...)
	return strings.Join(parts, ":")
}
