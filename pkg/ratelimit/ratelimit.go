package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter интерфейс для ограничения частоты запросов
type RateLimiter interface {
	// CheckRateLimit проверяет лимит для заданного ключа
	// Возвращает true, если лимит превышен
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisRateLimiter реализация RateLimiter с использованием Redis.
// Фиксированное окно: счетчик на ключ с TTL равным окну.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimiter создает новый экземпляр RedisRateLimiter
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: "toktok:rate_limit:"}
}

// CheckRateLimit проверяет, не превышен ли лимит запросов для заданного ключа.
// INCR и EXPIRE NX выполняются одной транзакцией, TTL ставится только при создании ключа.
func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := r.prefix + key

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("failed to execute rate limit transaction: %w", err)
	}

	return incr.Val() > int64(limit), nil
}

// LocalRateLimiter держит token bucket на каждый ключ в памяти процесса
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewLocalRateLimiter создает LocalRateLimiter
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// CheckRateLimit расходует один токен. Корзина вмещает limit токенов и полностью
// восполняется за window.
func (l *LocalRateLimiter) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return !limiter.AllowN(l.now(), 1), nil
}
