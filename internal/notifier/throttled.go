package notifier

import (
	"context"
	"time"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
	"github.com/tonakai-s/toktok/pkg/ratelimit"
)

// ErrThrottled уведомление отброшено ограничителем частоты
var ErrThrottled = domain.ErrThrottled

// Throttled ограничивает число уведомлений на сервис в окне.
// Ключ лимита: имя канала и имя сервиса.
type Throttled struct {
	next    domain.Notifier
	name    string
	limiter ratelimit.RateLimiter
	limit   int
	window  time.Duration
	logger  logger.Logger
}

// NewThrottled оборачивает notifier
func NewThrottled(next domain.Notifier, limiter ratelimit.RateLimiter, limit int, window time.Duration, log logger.Logger) *Throttled {
	if log == nil {
		log = logger.NewNop()
	}
	name := domain.NotifierName(next)
	return &Throttled{
		next:    next,
		name:    name,
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  log.With(logger.String("notifier", name)),
	}
}

// Name имя обернутого канала
func (t *Throttled) Name() string {
	return t.name
}

// Notify передает результат дальше, если лимит не превышен.
// Ошибка ограничителя не блокирует доставку.
func (t *Throttled) Notify(ctx context.Context, result domain.CheckerResult) error {
	exceeded, err := t.limiter.CheckRateLimit(ctx, t.name+":"+result.ServiceName, t.limit, t.window)
	if err != nil {
		t.logger.Warn("Rate limiter unavailable, delivering anyway",
			logger.String("service", result.ServiceName),
			logger.Error(err),
		)
	} else if exceeded {
		t.logger.Info("Notification dropped by rate limit",
			logger.String("service", result.ServiceName),
			logger.String("execution_id", result.ExecutionID),
			logger.Int("limit", t.limit),
			logger.Duration("window", t.window),
		)
		return ErrThrottled
	}

	return t.next.Notify(ctx, result)
}

// Unwrap возвращает обернутый notifier
func (t *Throttled) Unwrap() domain.Notifier {
	return t.next
}
