// Package mocks testify-моки для компонентов pkg.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tonakai-s/toktok/pkg/health"
	"github.com/tonakai-s/toktok/pkg/rabbitmq"
)

// MockRateLimiter имитирует ratelimit.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

// MockPublisher имитирует rabbitmq.Producer
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, body []byte, options ...rabbitmq.PublishOption) error {
	args := m.Called(ctx, body, options)
	return args.Error(0)
}

// MockHealthChecker имитирует health.HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) Check(ctx context.Context) *health.HealthStatus {
	args := m.Called(ctx)
	if status, ok := args.Get(0).(*health.HealthStatus); ok {
		return status
	}
	return nil
}
