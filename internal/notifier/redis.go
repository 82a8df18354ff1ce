package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// RedisConfig параметры публикации
type RedisConfig struct {
	Channel     string
	HistoryKey  string
	HistorySize int64
}

// RedisNotifier публикует событие в канал и, если задан HistoryKey,
// хранит последние HistorySize событий в списке
type RedisNotifier struct {
	base
	client goredis.UniversalClient
	config RedisConfig
	now    func() time.Time
}

// NewRedisNotifier создает notifier поверх клиента
func NewRedisNotifier(client goredis.UniversalClient, config RedisConfig, log logger.Logger) *RedisNotifier {
	if config.Channel == "" {
		config.Channel = "toktok:alerts"
	}
	if config.HistoryKey != "" && config.HistorySize <= 0 {
		config.HistorySize = 100
	}
	return &RedisNotifier{
		base:   newBase("redis", log),
		client: client,
		config: config,
		now:    time.Now,
	}
}

// Notify выполняет PUBLISH и LPUSH+LTRIM одним pipeline
func (r *RedisNotifier) Notify(ctx context.Context, result domain.CheckerResult) error {
	payload, err := json.Marshal(NewEvent(result, r.now()))
	if err != nil {
		return r.fail(result, fmt.Errorf("failed to marshal event: %w", err))
	}

	_, err = r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Publish(ctx, r.config.Channel, payload)
		if r.config.HistoryKey != "" {
			pipe.LPush(ctx, r.config.HistoryKey, payload)
			pipe.LTrim(ctx, r.config.HistoryKey, 0, r.config.HistorySize-1)
		}
		return nil
	})
	if err != nil {
		return r.fail(result, err)
	}

	r.delivered(result)
	return nil
}

// Ping проверяет соединение для readiness
func (r *RedisNotifier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
