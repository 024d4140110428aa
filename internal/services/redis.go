package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"school_fees_echo/internal/logger"
	"school_fees_echo/internal/models"
)

// RedisCache keeps each payer's payment list between verifications.
// A nil *RedisCache is valid: every read misses and every write is dropped.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and checks the connection before returning
func NewRedisCache(redisURL, prefix string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	cache := newRedisCache(redis.NewClient(opt), prefix, ttl)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		_ = cache.Close()
		return nil, err
	}

	logger.Info("Redis connection established", "addr", opt.Addr, "prefix", prefix)
	return cache, nil
}

func newRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) payerKey(payerID uint) string {
	return fmt.Sprintf("%s:payments:payer:%d", c.prefix, payerID)
}

// generationKey counts invalidations of a payer's list. It never expires: an expired
// counter could come back at a value a slow reader already saw.
func (c *RedisCache) generationKey(payerID uint) string {
	return c.payerKey(payerID) + ":gen"
}

// setIfGeneration writes KEYS[2] only while KEYS[1] still holds the generation the
// reader saw before loading.
const setIfGeneration = `
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1`

// PayerPayments returns the cached list for payerID, calling load and caching its
// result on a miss. Redis errors fall through to load. A list loaded while ForgetPayer
// ran is returned but not cached.
func (c *RedisCache) PayerPayments(ctx context.Context, payerID uint, load func() ([]models.Payment, error)) ([]models.Payment, error) {
	if c == nil {
		return load()
	}
	log := logger.FromContext(ctx)

	key := c.payerKey(payerID)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var payments []models.Payment
		if err := json.Unmarshal(data, &payments); err == nil {
			return payments, nil
		}
		log.Warn("discarding unreadable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		log.Warn("cache read failed", "key", key, "error", err)
	}

	gen, genErr := c.client.Get(ctx, c.generationKey(payerID)).Int64()
	if errors.Is(genErr, redis.Nil) {
		gen, genErr = 0, nil
	}

	payments, err := load()
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		log.Warn("cache generation read failed, not caching", "key", key, "error", genErr)
		return payments, nil
	}

	data, err = json.Marshal(payments)
	if err != nil {
		return payments, nil
	}
	stored, err := c.client.Eval(ctx, setIfGeneration,
		[]string{c.generationKey(payerID), key},
		strconv.FormatInt(gen, 10), string(data), c.ttl.Milliseconds(),
	).Int64()
	switch {
	case err != nil:
		log.Warn("cache write failed", "key", key, "error", err)
	case stored == 0:
		log.Debug("list changed while loading, not caching", "key", key)
	}
	return payments, nil
}

// ForgetPayer bumps the payer's generation, so loads already in flight are not cached,
// then drops the cached list
func (c *RedisCache) ForgetPayer(ctx context.Context, payerID uint) error {
	if c == nil {
		return nil
	}
	if err := c.client.Incr(ctx, c.generationKey(payerID)).Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, c.payerKey(payerID)).Err()
}

// Ping is used by the health endpoint
func (c *RedisCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
