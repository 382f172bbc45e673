package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix namespaces every key, e.g. "codeorc:"
	Prefix string
	// TTL expires records after the given duration; zero keeps them forever
	TTL time.Duration
}

// Redis stores records as plain string keys under a prefix.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(p string) string {
	return r.prefix + p
}

func (r *Redis) Save(ctx context.Context, p string, data []byte) error {
	if err := r.client.Set(ctx, r.key(p), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p, err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, p string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(p)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("redis get %s: %w", p, err)
	}
	return data, nil
}

// List scans keys matching pattern. Redis globbing lets "*" cross "/", so the
// scan result is narrowed with path semantics afterwards.
func (r *Redis) List(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.key(pattern), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return matchAll(pattern, keys)
}

func (r *Redis) Exists(ctx context.Context, p string) bool {
	n, err := r.client.Exists(ctx, r.key(p)).Result()
	return err == nil && n > 0
}

func (r *Redis) Delete(ctx context.Context, p string) error {
	n, err := r.client.Del(ctx, r.key(p)).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", p, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
