package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/tonakai-s/toktok/pkg/logger"
)

// MockLogger - мок для logger.Logger
type MockLogger struct {
	mock.Mock
}

// NewMockLogger создает мок, который принимает любые вызовы
func NewMockLogger() *MockLogger {
	m := &MockLogger{}
	m.On("Debug", mock.AnythingOfType("string"), mock.Anything).Maybe()
	m.On("Info", mock.AnythingOfType("string"), mock.Anything).Maybe()
	m.On("Warn", mock.AnythingOfType("string"), mock.Anything).Maybe()
	m.On("Error", mock.AnythingOfType("string"), mock.Anything).Maybe()
	m.On("With", mock.Anything).Return(m).Maybe()
	m.On("Sync").Return(nil).Maybe()
	return m
}

func (m *MockLogger) Debug(msg string, fields ...logger.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields ...logger.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields ...logger.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields ...logger.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) With(fields ...logger.Field) logger.Logger {
	args := m.Called(fields)
	if l, ok := args.Get(0).(logger.Logger); ok {
		return l
	}
	return m
}

func (m *MockLogger) Sync() error {
	args := m.Called()
	return args.Error(0)
}
