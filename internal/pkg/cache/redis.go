// Package cache is a small string key/value cache in front of Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns "" without error on a miss.
	Get(ctx context.Context, key string) (string, error)
	GenerateKey(operation string, parts ...string) string
}

type redisCache struct {
	client    *redis.Client
	namespace string
}

// NewRedisCache namespaces every key with namespace. The caller owns client.
func NewRedisCache(client *redis.Client, namespace string) Cache {
	return &redisCache{client: client, namespace: namespace}
}

// Connect opens a client for addr and checks it with PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache: get %s: %w", key, err)
	}
	return val, nil
}

func (r *redisCache) GenerateKey(operation string, parts ...string) string {
	return generateKey(r.namespace, operation, parts)
}

// Nop never stores anything; every Get is a miss.
type Nop struct {
	Namespace string
}

func (Nop) Set(context.Context, string, string, time.Duration) error { return nil }
func (Nop) Get(context.Context, string) (string, error)              { return "", nil }

func (n Nop) GenerateKey(operation string, parts ...string) string {
	return generateKey(n.Namespace, operation, parts)
}

func generateKey(namespace, operation string, parts []string) string {
	key := fmt.Sprintf("%s:%s", namespace, operation)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
