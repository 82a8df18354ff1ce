package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tonakai-s/toktok/internal/domain"
)

// MockChecker - мок для domain.Checker
type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) Check(ctx context.Context, serviceName string) domain.CheckerResult {
	args := m.Called(ctx, serviceName)
	return args.Get(0).(domain.CheckerResult)
}

// MockNotifier - мок для domain.NamedNotifier
type MockNotifier struct {
	mock.Mock
	NotifierName string
}

func (m *MockNotifier) Notify(ctx context.Context, result domain.CheckerResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockNotifier) Name() string {
	if m.NotifierName == "" {
		return "mock"
	}
	return m.NotifierName
}

// MockSink - мок для domain.ResultSink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Log(result domain.CheckerResult) {
	m.Called(result)
}
