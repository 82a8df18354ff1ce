package domain

import (
	"fmt"
	"time"
)

// TaskInfo идентичность и расписание задачи
type TaskInfo struct {
	Name            string        `json:"name"`
	Interval        time.Duration `json:"interval"`
	LastExecutionAt time.Time     `json:"last_execution_at"`
	NextExecutionAt time.Time     `json:"next_execution_at"`
}

// Due сообщает, пора ли выполнять задачу к моменту now
func (i TaskInfo) Due(now time.Time) bool {
	return !i.NextExecutionAt.After(now)
}

// Task периодическая проверка одного сервиса.
// Checker и Sink не меняются за время жизни задачи.
type Task struct {
	Info    TaskInfo
	Checker Checker
	Sink    ResultSink
}

// NewTask создает задачу. Пустой sink заменяется на NopSink.
func NewTask(name string, interval time.Duration, checker Checker, sink ResultSink) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("task name is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("task %s: interval must be greater than 0, got %s", name, interval)
	}
	if checker == nil {
		return nil, fmt.Errorf("task %s: checker is required", name)
	}
	if sink == nil {
		sink = NopSink{}
	}

	return &Task{
		Info:    TaskInfo{Name: name, Interval: interval},
		Checker: checker,
		Sink:    sink,
	}, nil
}

// Name возвращает имя задачи
func (t *Task) Name() string {
	return t.Info.Name
}

// MarkStarted фиксирует время начала выполнения
func (t *Task) MarkStarted(at time.Time) {
	t.Info.LastExecutionAt = at
}

// ScheduleNext назначает следующее выполнение через Interval от now
func (t *Task) ScheduleNext(now time.Time) {
	t.Info.NextExecutionAt = now.Add(t.Info.Interval)
}
