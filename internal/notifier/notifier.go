// Package notifier каналы доставки неуспешных результатов проверок.
package notifier

import (
	"fmt"
	"time"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// Event сериализуемое представление результата для внешних систем
type Event struct {
	ExecutionID string        `json:"execution_id,omitempty"`
	Service     string        `json:"service"`
	Status      domain.Status `json:"status"`
	Message     string        `json:"message"`
	ReportedAt  time.Time     `json:"reported_at"`
}

// NewEvent строит событие из результата. Если планировщик не проставил CheckedAt,
// используется now.
func NewEvent(result domain.CheckerResult, now time.Time) Event {
	at := result.CheckedAt
	if at.IsZero() {
		at = now
	}
	return Event{
		ExecutionID: result.ExecutionID,
		Service:     result.ServiceName,
		Status:      result.Status,
		Message:     result.Message,
		ReportedAt:  at.UTC(),
	}
}

// AlertSubject тема письма об инциденте
const AlertSubject = "Toktok Service Alert!"

// AlertBody текст уведомления для людей
func AlertBody(result domain.CheckerResult) string {
	return fmt.Sprintf("Hello, the service %s reported with status '%s' in the last verification: %s",
		result.ServiceName, result.Status, result.Message)
}

// base общая часть notifier'ов: имя канала и логгер с ним
type base struct {
	name   string
	logger logger.Logger
}

func newBase(name string, log logger.Logger) base {
	if log == nil {
		log = logger.NewNop()
	}
	return base{name: name, logger: log.With(logger.String("notifier", name))}
}

// Name имя канала доставки
func (b base) Name() string {
	return b.name
}

// fail логирует ошибку доставки и возвращает ее обернутой
func (b base) fail(result domain.CheckerResult, err error) error {
	b.logger.Error("Failed to deliver notification",
		logger.String("service", result.ServiceName),
		logger.String("status", result.Status.String()),
		logger.String("execution_id", result.ExecutionID),
		logger.Error(err),
	)
	return fmt.Errorf("%s notifier: %w", b.name, err)
}

func (b base) delivered(result domain.CheckerResult) {
	b.logger.Debug("Notification delivered",
		logger.String("service", result.ServiceName),
		logger.String("execution_id", result.ExecutionID),
	)
}
