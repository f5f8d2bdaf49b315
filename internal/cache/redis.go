package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"stopdesk/internal/domain"
)

type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRedisCache(client, ttl, logger), nil
}

func newRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "stopdesk:",
		ttl:    ttl,
		logger: logger.With("component", "redis_cache"),
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.client.Set(ctx, c.key(key), value, ttl).Err()
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
		return err
	}
	c.logger.Debug("cache set", "key", key, "size_bytes", len(value), "ttl", ttl, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "key", key)
		return nil, nil
	}
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, err
	}
	c.logger.Debug("cache hit", "key", key, "size_bytes", len(val), "duration_ms", time.Since(start).Milliseconds())
	return val, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("json unmarshal: %w", err)
	}
	return true, nil
}

// GetCoordinates and SetCoordinates make the cache usable by the map link
// resolver. Failures degrade to a miss.
func (c *RedisCache) GetCoordinates(ctx context.Context, shortURL string) (domain.Coordinates, bool) {
	var coords domain.Coordinates
	ok, err := c.GetJSON(ctx, KeyResolved(shortURL), &coords)
	if err != nil || !ok {
		return domain.Coordinates{}, false
	}
	return coords, true
}

func (c *RedisCache) SetCoordinates(ctx context.Context, shortURL string, coords domain.Coordinates) {
	_ = c.SetJSON(ctx, KeyResolved(shortURL), coords, c.ttl)
}

// IncrVisit bumps the per-company hash field for urlCode and the global total.
func (c *RedisCache) IncrVisit(ctx context.Context, company, urlCode string) error {
	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, c.key(KeyVisitsByCompany(company)), urlCode, 1)
	pipe.Incr(ctx, c.key(KeyVisitsTotal))
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("visit increment failed", "company", company, "url_code", urlCode, "error", err)
		return err
	}
	return nil
}

// Visits returns the per-url-code visit counts for a company.
func (c *RedisCache) Visits(ctx context.Context, company string) (map[string]int64, error) {
	raw, err := c.client.HGetAll(ctx, c.key(KeyVisitsByCompany(company))).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for code, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[code] = n
		}
	}
	return out, nil
}

// TotalVisits returns the global visit counter.
func (c *RedisCache) TotalVisits(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, c.key(KeyVisitsTotal)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
