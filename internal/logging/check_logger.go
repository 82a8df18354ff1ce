package logging

import (
	"context"
	"time"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// CheckLogger обертка над pkg/logger для событий планировщика
type CheckLogger struct {
	base logger.Logger
}

// NewCheckLogger создает новый экземпляр логгера проверок
func NewCheckLogger(baseLogger logger.Logger) *CheckLogger {
	if baseLogger == nil {
		baseLogger = logger.NewNop()
	}
	return &CheckLogger{base: baseLogger}
}

// LogCheckStart логирует начало проверки
func (cl *CheckLogger) LogCheckStart(ctx context.Context, service, executionID string) {
	cl.base.With(
		logger.CtxField(ctx),
		logger.String("event", "check_started"),
		logger.String("check_service", service),
		logger.String("execution_id", executionID),
		logger.String("component", "scheduler"),
	).Debug("Starting check")
}

// LogCheckComplete логирует результат проверки. Неуспешный результат пишется с уровнем warn.
func (cl *CheckLogger) LogCheckComplete(ctx context.Context, result domain.CheckerResult, duration time.Duration) {
	l := cl.base.With(
		logger.CtxField(ctx),
		logger.String("event", "check_completed"),
		logger.String("check_service", result.ServiceName),
		logger.String("execution_id", result.ExecutionID),
		logger.String("status", result.Status.String()),
		logger.String("message", result.Message),
		logger.Float64("duration_seconds", duration.Seconds()),
		logger.String("component", "scheduler"),
	)

	if result.IsSuccess() {
		l.Info("Check completed")
		return
	}
	l.Warn("Check completed")
}

// LogNotifyFailure логирует ошибку доставки уведомления
func (cl *CheckLogger) LogNotifyFailure(ctx context.Context, notifier string, result domain.CheckerResult, err error) {
	cl.base.With(
		logger.CtxField(ctx),
		logger.String("event", "notify_failed"),
		logger.String("notifier", notifier),
		logger.String("check_service", result.ServiceName),
		logger.String("execution_id", result.ExecutionID),
		logger.String("component", "notify_stage"),
		logger.Error(err),
	).Error("Notification failed")
}

// LogRescheduled логирует возврат задачи в очередь
func (cl *CheckLogger) LogRescheduled(ctx context.Context, info domain.TaskInfo) {
	cl.base.With(
		logger.CtxField(ctx),
		logger.String("event", "task_rescheduled"),
		logger.String("check_service", info.Name),
		logger.Time("last_execution_at", info.LastExecutionAt),
		logger.Time("next_execution_at", info.NextExecutionAt),
		logger.String("component", "reschedule_stage"),
	).Debug("Task rescheduled")
}
