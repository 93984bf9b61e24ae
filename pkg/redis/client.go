// Package redis backs the shared inquiry rate counters and the cron leader
// lock. Every key lives under the "vl:" namespace.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

const namespace = "vl"

var errNotConnected = errors.New("redis client not initialized")

// incrScript bumps a counter and starts its expiry only when the bump opened
// a new window.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Client struct {
	rdb *redis.Client
}

func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "addr", opts.Addr), "redis connection established")
	}
	return &Client{rdb: rdb}, nil
}

// NewFromRedis wraps an existing go-redis client.
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// options prefers VOLTLOT_REDIS_URL. Pool and timeout settings from cfg fill
// whatever the URL left unset.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if parsed.DB == 0 {
			parsed.DB = cfg.DB
		}
		opts = parsed
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}

	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDuration(&opts.DialTimeout, cfg.DialTimeout)
	fillDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fillInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func fillDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

// LockKey returns the namespaced key for a distributed lock.
func LockKey(name string) string {
	return key("lock", name)
}

func counterKey(name string) string {
	return key("counter", name)
}

func key(kind, name string) string {
	return strings.Join([]string{namespace, kind, strings.TrimSpace(name)}, ":")
}

// Peek reads a counter without changing it. A missing counter reads as zero.
func (c *Client) Peek(ctx context.Context, name string) (int64, error) {
	if c.rdb == nil {
		return 0, errNotConnected
	}
	n, err := c.rdb.Get(ctx, counterKey(name)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// IncrWithTTL atomically increments a counter. The TTL is set on the first
// increment of a window and left alone afterwards.
func (c *Client) IncrWithTTL(ctx context.Context, name string, ttl time.Duration) (int64, error) {
	if c.rdb == nil {
		return 0, errNotConnected
	}
	return incrScript.Run(ctx, c.rdb, []string{counterKey(name)}, ttl.Milliseconds()).Int64()
}

// SetNX stores value at key unless the key already exists.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.rdb == nil {
		return false, errNotConnected
	}
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// DeleteIfValue removes key when it still holds value and reports whether
// it did.
func (c *Client) DeleteIfValue(ctx context.Context, key, value string) (bool, error) {
	if c.rdb == nil {
		return false, errNotConnected
	}
	n, err := releaseScript.Run(ctx, c.rdb, []string{key}, value).Int64()
	return n > 0, err
}

func (c *Client) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return errNotConnected
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
