package domain

import (
	"fmt"
	"time"
)

// Status итог одной проверки
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusTimeout
)

// String возвращает имя статуса
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusError:
		return "Error"
	case StatusTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText реализует encoding.TextMarshaler, в JSON статус пишется строкой
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Success":
		*s = StatusSuccess
	case "Error":
		*s = StatusError
	case "Timeout":
		*s = StatusTimeout
	default:
		return fmt.Errorf("unknown status %q", string(text))
	}
	return nil
}

// CheckerResult результат одной проверки. Checker заполняет ServiceName, Status и Message,
// планировщик дописывает ExecutionID и CheckedAt.
type CheckerResult struct {
	ServiceName string    `json:"service"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	ExecutionID string    `json:"execution_id,omitempty"`
	CheckedAt   time.Time `json:"checked_at,omitempty"`
}

// NewResult создает результат проверки
func NewResult(serviceName string, status Status, message string) CheckerResult {
	return CheckerResult{ServiceName: serviceName, Status: status, Message: message}
}

// IsSuccess сообщает, прошла ли проверка
func (r CheckerResult) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// String форматирует результат для логов и уведомлений
func (r CheckerResult) String() string {
	return fmt.Sprintf("Service: %s - Status: %s - Message: %s", r.ServiceName, r.Status, r.Message)
}
