package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonakai-s/toktok/pkg/connection"
)

// Postgres представляет подключение к PostgreSQL
type Postgres struct {
	Pool *pgxpool.Pool
}

// Config представляет конфигурацию PostgreSQL
type Config struct {
	DSN string
	// Connection pool settings
	MaxConns    int
	MinConns    int
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
	HealthCheck time.Duration
	// Retry settings
	MaxRetries    int
	RetryInterval time.Duration
}

// NewConfig создает конфигурацию по умолчанию
func NewConfig(dsn string) *Config {
	return &Config{
		DSN:           dsn,
		MaxConns:      4,
		MinConns:      0,
		MaxConnLife:   30 * time.Minute,
		MaxConnIdle:   5 * time.Minute,
		HealthCheck:   30 * time.Second,
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
	}
}

// PoolConfig разбирает DSN и применяет настройки пула
func (c *Config) PoolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.HealthCheckPeriod = c.HealthCheck
	poolConfig.MaxConns = int32(c.MaxConns)
	poolConfig.MinConns = int32(c.MinConns)
	poolConfig.MaxConnLifetime = c.MaxConnLife
	poolConfig.MaxConnIdleTime = c.MaxConnIdle

	return poolConfig, nil
}

// Connect устанавливает подключение к PostgreSQL с retry логикой
func Connect(ctx context.Context, config *Config) (*Postgres, error) {
	poolConfig, err := config.PoolConfig()
	if err != nil {
		return nil, err
	}

	retry := connection.RetryConfig{
		MaxAttempts:  config.MaxRetries + 1,
		InitialDelay: config.RetryInterval,
		MaxDelay:     config.RetryInterval * 4,
		Multiplier:   1.5,
		Jitter:       true,
	}

	var pool *pgxpool.Pool
	err = connection.WithRetry(ctx, retry, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Postgres{Pool: pool}, nil
}

// Close закрывает подключение к базе данных
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// HealthCheck проверяет состояние подключения к базе данных
func (p *Postgres) HealthCheck(ctx context.Context) error {
	if p.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	var result string
	return p.Pool.QueryRow(ctx, "SELECT 'healthy'").Scan(&result)
}
