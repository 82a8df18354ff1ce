// Package checker реализации domain.Checker по протоколам: HTTP, TCP, gRPC health, Redis, PostgreSQL.
package checker

import (
	"context"
	stderrors "errors"
	"net"
	"time"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// DefaultTimeout используется, когда таймаут проверки не задан
const DefaultTimeout = 5 * time.Second

// BaseChecker общая часть checker'ов
type BaseChecker struct {
	logger  logger.Logger
	timeout time.Duration
}

// NewBaseChecker создает BaseChecker. Нулевой timeout заменяется на DefaultTimeout.
func NewBaseChecker(log logger.Logger, timeout time.Duration) BaseChecker {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return BaseChecker{logger: log, timeout: timeout}
}

// Timeout возвращает таймаут одной проверки
func (b BaseChecker) Timeout() time.Duration {
	return b.timeout
}

func (b BaseChecker) logFailure(service, target string, err error, started time.Time) {
	b.logger.Debug("Check failed",
		logger.String("service", service),
		logger.String("target", target),
		logger.Duration("duration", time.Since(started)),
		logger.Error(err),
	)
}

// statusFor переводит ошибку подключения в статус проверки
func statusFor(err error) domain.Status {
	if isTimeout(err) {
		return domain.StatusTimeout
	}
	return domain.StatusError
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
