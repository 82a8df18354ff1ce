package domain

import (
	"context"
	"errors"
)

// ErrThrottled уведомление отброшено ограничителем частоты
var ErrThrottled = errors.New("notification throttled")

// Checker выполняет проверку одного сервиса.
// Реализация не возвращает ошибок и не паникует: любая неудача
// описывается статусом Error или Timeout и сообщением.
type Checker interface {
	Check(ctx context.Context, serviceName string) CheckerResult
}

// Notifier доставляет неуспешный результат проверки по своему каналу.
// Ошибку доставки реализация логирует сама и возвращает вызывающему.
type Notifier interface {
	Notify(ctx context.Context, result CheckerResult) error
}

// NamedNotifier дает имя каналу доставки для логов и метрик
type NamedNotifier interface {
	Notifier
	Name() string
}

// ResultSink журнал результатов одной задачи
type ResultSink interface {
	Log(result CheckerResult)
}

// CheckerFunc адаптер функции к Checker
type CheckerFunc func(ctx context.Context, serviceName string) CheckerResult

// Check вызывает f
func (f CheckerFunc) Check(ctx context.Context, serviceName string) CheckerResult {
	return f(ctx, serviceName)
}

// NopSink журнал, который ничего не пишет
type NopSink struct{}

// Log ничего не делает
func (NopSink) Log(CheckerResult) {}

// NotifierName возвращает имя notifier'а, либо "notifier", если оно не задано
func NotifierName(n Notifier) string {
	if named, ok := n.(NamedNotifier); ok {
		return named.Name()
	}
	return "notifier"
}
