package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// PostgresChecker открывает соединение и выполняет Ping
type PostgresChecker struct {
	BaseChecker
	config *pgx.ConnConfig
}

// NewPostgresChecker разбирает DSN заранее, чтобы ошибка формата была видна при запуске
func NewPostgresChecker(dsn string, timeout time.Duration, log logger.Logger) (*PostgresChecker, error) {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}

	base := NewBaseChecker(log, timeout)
	config.ConnectTimeout = base.Timeout()

	return &PostgresChecker{BaseChecker: base, config: config}, nil
}

// Check подключается, пингует и закрывает соединение
func (p *PostgresChecker) Check(ctx context.Context, serviceName string) domain.CheckerResult {
	started := time.Now()
	target := fmt.Sprintf("%s:%d", p.config.Host, p.config.Port)

	ctx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	conn, err := pgx.ConnectConfig(ctx, p.config.Copy())
	if err != nil {
		p.logFailure(serviceName, target, err, started)
		return domain.NewResult(serviceName, statusFor(err), fmt.Sprintf("Server unavailable: %s", err))
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if err := conn.Ping(ctx); err != nil {
		p.logFailure(serviceName, target, err, started)
		return domain.NewResult(serviceName, statusFor(err), fmt.Sprintf("Server unavailable: %s", err))
	}

	return domain.NewResult(serviceName, domain.StatusSuccess, "Database connected successfully")
}
