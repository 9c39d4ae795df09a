package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/domain"
)

// Cache provides Redis caching functionality
type Cache struct {
	client *redis.Client
}

// Key prefixes for different cache types
const (
	PrefixAudit     = "audit:"
	PrefixDiff      = "diff:"
	PrefixSnapshot  = "snapshot:"
	PrefixRateLimit = "ratelimit:"
)

// Default TTLs
const (
	DefaultTTL = 15 * time.Minute
	// AuditTTL matches how often scores realistically move for a stable page.
	AuditTTL        = 1 * time.Hour
	DiffTTL         = 1 * time.Hour
	RateLimitWindow = 1 * time.Minute
)

// New creates a new Redis cache client
func New(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health checks Redis connectivity
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client for advanced operations
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Audit caching methods

// GetAudit retrieves a cached audit. A nil cache always misses; callers
// holding a *Cache through an interface never see a typed-nil panic.
func (c *Cache) GetAudit(ctx context.Context, id uuid.UUID) (*domain.Audit, error) {
	if c == nil {
		return nil, nil
	}
	key := PrefixAudit + id.String()
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var audit domain.Audit
	if err := json.Unmarshal(data, &audit); err != nil {
		return nil, err
	}

	return &audit, nil
}

// SetAudit caches an audit. No-op on a nil cache.
func (c *Cache) SetAudit(ctx context.Context, audit *domain.Audit) error {
	if c == nil {
		return nil
	}
	key := PrefixAudit + audit.ID.String()
	data, err := json.Marshal(audit)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, AuditTTL).Err()
}

// InvalidateAudit removes an audit from cache
func (c *Cache) InvalidateAudit(ctx context.Context, id uuid.UUID) error {
	if c == nil {
		return nil
	}
	key := PrefixAudit + id.String()
	return c.client.Del(ctx, key).Err()
}

// Diff caching methods

// GetDiff retrieves a cached diff for a URL. A nil cache always misses.
func (c *Cache) GetDiff(ctx context.Context, url string) (*domain.AuditDiff, error) {
	if c == nil {
		return nil, nil
	}
	key := PrefixDiff + url
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var diff domain.AuditDiff
	if err := json.Unmarshal(data, &diff); err != nil {
		return nil, err
	}

	return &diff, nil
}

// SetDiff caches a diff keyed by URL. No-op on a nil cache.
func (c *Cache) SetDiff(ctx context.Context, diff *domain.AuditDiff) error {
	if c == nil {
		return nil
	}
	key := PrefixDiff + diff.URL
	data, err := json.Marshal(diff)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, DiffTTL).Err()
}

// InvalidateDiff removes a URL's cached diff. Called after every new audit
// so a stale comparison never outlives its audits. No-op on a nil cache.
func (c *Cache) InvalidateDiff(ctx context.Context, url string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, PrefixDiff+url).Err()
}

// Rate limiting

// CheckRateLimit checks and increments rate limit counter
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error) {
	fullKey := PrefixRateLimit + key

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, RateLimitWindow)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}

// GetRateLimitRemaining returns remaining rate limit
func (c *Cache) GetRateLimitRemaining(ctx context.Context, key string, limit int) (int, error) {
	fullKey := PrefixRateLimit + key
	count, err := c.client.Get(ctx, fullKey).Int()
	if err != nil {
		if err == redis.Nil {
			return limit, nil
		}
		return 0, err
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}
