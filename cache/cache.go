// Package cache is a read-through JSON cache for recipe pages and facet
// counts. Redis backs it when REDIS_URL is set; otherwise Noop is used.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flavornet/logging"
	"flavornet/metrics"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type Cache interface {
	// Get decodes the cached value into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

const prefix = "flavornet:"

func RecipeKey(slug string) string { return prefix + "recipe:" + slug }

func FacetsKey() string { return prefix + "facets" }

// kind is the metrics label for a key, e.g. "recipe".
func kind(key string) string {
	k := strings.TrimPrefix(key, prefix)
	if i := strings.IndexByte(k, ':'); i >= 0 {
		return k[:i]
	}
	return k
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis accepts either a redis:// URL or a bare host:port.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	var opts *redis.Options
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lg := logging.With("cache")
	lg.Info().Str("addr", opts.Addr).Dur("ttl", ttl).Msg("redis cache enabled")
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCache(kind(key), false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// A payload from an older release; treat as a miss.
		metrics.RecordCache(kind(key), false)
		return false, nil
	}
	metrics.RecordCache(kind(key), true)
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(_ context.Context, key string, _ any) (bool, error) {
	metrics.RecordCache(kind(key), false)
	return false, nil
}

func (Noop) Set(context.Context, string, any) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }
