package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultScanBatchSize = 100

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisPriceCache is the shared L2 price cache. Entries are JSON snapshots
// of computation results keyed by the lookup cache key.
type RedisPriceCache struct {
	client     *redis.Client
	ownsClient bool
	config     Config
	logger     *zap.Logger
}

// RedisPriceCacheOption is a functional option for configuring the cache
type RedisPriceCacheOption func(*RedisPriceCache)

// WithRedisCacheConfig sets the cache configuration
func WithRedisCacheConfig(config Config) RedisPriceCacheOption {
	return func(c *RedisPriceCache) {
		c.config = config.withDefaults()
	}
}

// WithRedisCacheLogger sets the logger for the cache
func WithRedisCacheLogger(logger *zap.Logger) RedisPriceCacheOption {
	return func(c *RedisPriceCache) {
		c.logger = logger
	}
}

// NewRedisPriceCache creates a new Redis-backed price cache
func NewRedisPriceCache(cfg RedisConfig, opts ...RedisPriceCacheOption) (*RedisPriceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := NewRedisPriceCacheWithClient(client, opts...)
	cache.ownsClient = true
	return cache, nil
}

// NewRedisPriceCacheWithClient creates a cache using an existing client
func NewRedisPriceCacheWithClient(client *redis.Client, opts ...RedisPriceCacheOption) *RedisPriceCache {
	cache := &RedisPriceCache{
		client: client,
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func (c *RedisPriceCache) redisKey(cacheKey string) string {
	return "price:" + cacheKey
}

func (c *RedisPriceCache) tenantPattern(tenantID uuid.UUID) string {
	return "price:" + tenantID.String() + ":*"
}

// Get retrieves a cached result. A miss returns nil without error.
func (c *RedisPriceCache) Get(ctx context.Context, cacheKey string) (*pricing.ComputationResult, error) {
	data, err := c.client.Get(ctx, c.redisKey(cacheKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached price: %w", err)
	}

	var result pricing.ComputationResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is dropped, not surfaced.
		c.logger.Warn("dropping unreadable cached price",
			zap.String("key", cacheKey),
			zap.Error(err))
		c.client.Del(ctx, c.redisKey(cacheKey))
		return nil, nil
	}
	return &result, nil
}

// Set stores a computation result with the configured L2 TTL
func (c *RedisPriceCache) Set(ctx context.Context, cacheKey string, result *pricing.ComputationResult) error {
	if result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal price result: %w", err)
	}
	if err := c.client.Set(ctx, c.redisKey(cacheKey), data, c.config.L2TTL).Err(); err != nil {
		return fmt.Errorf("failed to cache price result: %w", err)
	}
	return nil
}

// InvalidateTenant removes every cached price of the tenant. The tenant ID
// is the leading key segment, so one SCAN pattern covers all of them.
func (c *RedisPriceCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.tenantPattern(tenantID), defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cached prices: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cached prices: %w", err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if removed > 0 {
		c.logger.Debug("invalidated shared cached prices",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("removed", removed))
	}
	return nil
}

// Close closes the Redis client if this cache owns it
func (c *RedisPriceCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}
