package connection

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig содержит конфигурацию повторных попыток
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	// ShouldRetry решает, имеет ли смысл повторять попытку. nil означает "всегда".
	ShouldRetry func(err error) bool
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// QuickRetryConfig короткие паузы для проверок, где важна задержка ответа
func QuickRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryFunc представляет функцию для повторной попытки
type RetryFunc func(ctx context.Context) error

// WithRetry выполняет функцию с retry логикой
func WithRetry(ctx context.Context, config RetryConfig, operation RetryFunc) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if config.ShouldRetry != nil && !config.ShouldRetry(err) {
			return err
		}

		if attempt < config.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateDelay(attempt, config)):
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// calculateDelay вычисляет задержку для retry
func calculateDelay(attempt int, config RetryConfig) time.Duration {
	multiplier := config.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	delay := time.Duration(float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	// ±25%
	if config.Jitter && delay > 0 {
		delta := float64(delay) * 0.25
		delay = time.Duration(float64(delay) - delta + rand.Float64()*2*delta)
	}

	return delay
}
