package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

const keyPrefix = "household:aggregate:"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// AggregateCache keeps full (unbounded range) aggregations per household.
type AggregateCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewAggregateCache(client *redis.Client, ttl time.Duration) *AggregateCache {
	return &AggregateCache{
		client: client,
		ttl:    ttl,
		logger: common.GetLoggerWith(common.LoggerNameCache),
	}
}

func key(household string) string {
	return keyPrefix + common.CanonicalName(household)
}

type entry struct {
	Version  string                     `json:"version"`
	Readings []models.AggregatedReading `json:"readings"`
}

// Get returns the cached rows when an entry exists for version. An entry
// built from another version is reported as a miss.
func (c *AggregateCache) Get(ctx context.Context, household, version string) ([]models.AggregatedReading, bool, error) {
	raw, err := c.client.Get(ctx, key(household)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", household, err)
	}

	var cached entry
	if err := json.Unmarshal(raw, &cached); err != nil {
		// a corrupt entry is dropped rather than served
		c.logger.Warn("Dropping undecodable cache entry", zap.String(common.LoggerFieldHousehold, household), zap.Error(err))
		_ = c.client.Del(ctx, key(household)).Err()
		return nil, false, nil
	}
	if cached.Version != version {
		return nil, false, nil
	}
	if cached.Readings == nil {
		cached.Readings = []models.AggregatedReading{}
	}
	return cached.Readings, true, nil
}

func (c *AggregateCache) Set(ctx context.Context, household, version string, readings []models.AggregatedReading) error {
	if readings == nil {
		readings = []models.AggregatedReading{}
	}
	raw, err := json.Marshal(entry{Version: version, Readings: readings})
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", household, err)
	}
	if err := c.client.Set(ctx, key(household), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", household, err)
	}
	return nil
}

func (c *AggregateCache) Invalidate(ctx context.Context, household string) error {
	if err := c.client.Del(ctx, key(household)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", household, err)
	}
	return nil
}

func (c *AggregateCache) Close() error {
	return c.client.Close()
}
