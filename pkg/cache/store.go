package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPoolSize is the default upper bound of pooled Redis connections.
const DefaultPoolSize = 500

// ErrStoreClosed indicates the store was used after Close.
var ErrStoreClosed = errors.New("store closed")

// Conn is a connection checked out of the store for the duration of one
// request. Close returns it to the pool.
type Conn interface {
	// Get returns the value at key. found is false when the key does not exist.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value at key without expiry.
	Set(ctx context.Context, key, value string) error
	// Expire sets the time to live of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Close() error
}

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	// URL is a redis:// or rediss:// connection string.
	URL string

	// PoolSize caps the number of pooled connections. Defaults to DefaultPoolSize.
	PoolSize int

	// Timeout is applied to dialing, reads and writes. Zero keeps go-redis defaults.
	Timeout time.Duration
}

// NewRedisClient builds a pooled Redis client from opts.
func NewRedisClient(opts RedisOptions) (*redis.Client, error) {
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	ro.PoolSize = opts.PoolSize
	if ro.PoolSize <= 0 {
		ro.PoolSize = DefaultPoolSize
	}
	if opts.Timeout > 0 {
		ro.DialTimeout = opts.Timeout
		ro.ReadTimeout = opts.Timeout
		ro.WriteTimeout = opts.Timeout
	}
	return redis.NewClient(ro), nil
}

// Store hands out pooled Redis connections.
type Store struct {
	redis  *redis.Client
	prefix string
}

// NewStore creates a store over redisClient. Every key is prefixed with
// prefix, which may be empty.
func NewStore(redisClient *redis.Client, prefix string) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Acquire checks out a dedicated connection.
func (s *Store) Acquire(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		StoreOperations.WithLabelValues("acquire", "error").Inc()
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &redisConn{conn: s.redis.Conn(), prefix: s.prefix}, nil
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		StoreOperations.WithLabelValues("ping", "error").Inc()
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client and its pool.
func (s *Store) Close() error {
	if err := s.redis.Close(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return ErrStoreClosed
		}
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

type redisConn struct {
	conn   *redis.Conn
	prefix string
}

func (c *redisConn) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.conn.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			StoreOperations.WithLabelValues("get", "miss").Inc()
			return "", false, nil
		}
		StoreOperations.WithLabelValues("get", "error").Inc()
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	StoreOperations.WithLabelValues("get", "hit").Inc()
	return value, true, nil
}

func (c *redisConn) Set(ctx context.Context, key, value string) error {
	if err := c.conn.Set(ctx, c.prefix+key, value, 0).Err(); err != nil {
		StoreOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	StoreOperations.WithLabelValues("set", "ok").Inc()
	return nil
}

func (c *redisConn) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.conn.Expire(ctx, c.prefix+key, ttl).Err(); err != nil {
		StoreOperations.WithLabelValues("expire", "error").Inc()
		return fmt.Errorf("redis expire: %w", err)
	}
	StoreOperations.WithLabelValues("expire", "ok").Inc()
	return nil
}

func (c *redisConn) Close() error {
	return c.conn.Close()
}
