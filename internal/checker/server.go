package checker

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/connection"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// ServerChecker проверяет, что TCP сокет принимает соединения
type ServerChecker struct {
	BaseChecker
	socket  string
	retries int
	dialer  *net.Dialer
}

// NewServerChecker создает TCP checker. retries дополнительные попытки после первой.
func NewServerChecker(socket string, timeout time.Duration, retries int, log logger.Logger) *ServerChecker {
	base := NewBaseChecker(log, timeout)
	return &ServerChecker{
		BaseChecker: base,
		socket:      socket,
		retries:     retries,
		dialer:      &net.Dialer{Timeout: base.Timeout()},
	}
}

// Check устанавливает и сразу закрывает TCP соединение
func (s *ServerChecker) Check(ctx context.Context, serviceName string) domain.CheckerResult {
	started := time.Now()

	var err error
	if s.retries > 0 {
		retry := connection.QuickRetryConfig(s.retries + 1)
		// таймаут не повторяем: следующая попытка упрется в него же
		retry.ShouldRetry = func(err error) bool { return !isTimeout(err) }
		err = connection.WithRetry(ctx, retry, s.dial)
	} else {
		err = s.dial(ctx)
	}

	if err != nil {
		s.logFailure(serviceName, s.socket, err, started)
		return domain.NewResult(serviceName, statusFor(err), fmt.Sprintf("Server unavailable: %s", err))
	}

	return domain.NewResult(serviceName, domain.StatusSuccess, "Server connected successfully via TCP/IP")
}

func (s *ServerChecker) dial(ctx context.Context) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.socket)
	if err != nil {
		return err
	}
	return conn.Close()
}
