package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
	"github.com/tonakai-s/toktok/pkg/redis"
)

// RedisChecker отправляет PING и ждет PONG
type RedisChecker struct {
	BaseChecker
	client *redis.Client
	addr   string
}

// NewRedisChecker создает Redis checker. Клиент живет все время работы задачи.
func NewRedisChecker(addr, password string, db int, timeout time.Duration, log logger.Logger) *RedisChecker {
	base := NewBaseChecker(log, timeout)

	cfg := redis.NewConfig()
	cfg.Addr = addr
	cfg.Password = password
	cfg.DB = db
	cfg.PoolSize = 1
	cfg.MinIdleConn = 0
	cfg.DialTimeout = base.Timeout()

	return &RedisChecker{
		BaseChecker: base,
		client:      redis.New(cfg),
		addr:        addr,
	}
}

// Check выполняет PING
func (r *RedisChecker) Check(ctx context.Context, serviceName string) domain.CheckerResult {
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.Timeout())
	defer cancel()

	pong, err := r.client.Client.Ping(ctx).Result()
	if err != nil {
		r.logFailure(serviceName, r.addr, err, started)
		return domain.NewResult(serviceName, statusFor(err), fmt.Sprintf("Server unavailable: %s", err))
	}
	if pong != "PONG" {
		return domain.NewResult(serviceName, domain.StatusError, fmt.Sprintf("Unexpected PING reply %q", pong))
	}

	return domain.NewResult(serviceName, domain.StatusSuccess, "Redis replied PONG")
}

// Close закрывает клиент
func (r *RedisChecker) Close() error {
	return r.client.Close()
}
