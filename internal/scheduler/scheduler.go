// Package scheduler периодический запуск проверок по очереди с приоритетом
// по времени следующего выполнения.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/internal/logging"
	"github.com/tonakai-s/toktok/internal/metrics"
	"github.com/tonakai-s/toktok/internal/queue"
	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// Config параметры планировщика
type Config struct {
	// Период опроса очереди
	Tick time.Duration
	// Максимум одновременных проверок, 0 без ограничения
	MaxConcurrent int
	// Буфер каналов между исполнителями и стадиями
	ChannelBuffer int
	// Таймаут одного вызова notifier'а
	NotifyTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Tick:          time.Second,
		MaxConcurrent: 0,
		ChannelBuffer: 64,
		NotifyTimeout: 30 * time.Second,
	}
}

// Option настраивает Scheduler
type Option func(*Scheduler)

// WithClock подменяет часы
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithMetrics задает получателя метрик
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		s.metrics = r
	}
}

// WithTracer задает tracer для span'ов проверок и уведомлений
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) {
		s.tracer = t
	}
}

// Scheduler владеет очередью задач и запускает проверки, когда подходит их время
type Scheduler struct {
	cfg       Config
	notifiers []domain.Notifier

	mu    sync.Mutex
	queue *queue.PriorityQueue

	clock    clockwork.Clock
	logger   logger.Logger
	checkLog *logging.CheckLogger
	metrics  metrics.Recorder
	tracer   trace.Tracer
	sem      *semaphore.Weighted

	running  atomic.Bool
	inFlight atomic.Int64
	units    sync.WaitGroup

	notifyCh     chan domain.CheckerResult
	rescheduleCh chan *domain.Task
	stagesDone   chan struct{}
}

// New создает планировщик. Все задачи сразу попадают в очередь и выполняются
// на первом такте. Задачи с одинаковыми именами недопустимы.
func New(cfg Config, tasks []*domain.Task, notifiers []domain.Notifier, log logger.Logger, opts ...Option) (*Scheduler, error) {
	def := DefaultConfig()
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.ChannelBuffer <= 0 {
		cfg.ChannelBuffer = def.ChannelBuffer
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = def.NotifyTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &Scheduler{
		cfg:       cfg,
		notifiers: append([]domain.Notifier(nil), notifiers...),
		queue:     queue.New(),
		clock:     clockwork.NewRealClock(),
		logger:    log.With(logger.String("component", "scheduler")),
		metrics:   metrics.Nop{},
		tracer:    otel.Tracer("toktok/scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.checkLog = logging.NewCheckLogger(s.logger)

	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}

	now := s.clock.Now()
	for _, task := range tasks {
		if task.Info.NextExecutionAt.IsZero() {
			task.Info.NextExecutionAt = now
		}
		if err := s.queue.Push(task); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfig, "failed to enqueue task").
				WithDetails(fmt.Sprintf("service %q", task.Name()))
		}
	}
	s.metrics.SetQueueSize(s.queue.Len())

	return s, nil
}

// Run запускает цикл диспетчеризации и стадии уведомления и перепланирования.
// Блокируется до отмены ctx. Перед возвратом дожидается выполняющихся проверок
// и обработки всех их результатов, после чего все задачи снова в очереди.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New(errors.ErrInternal, "scheduler is already running")
	}
	defer s.running.Store(false)

	s.notifyCh = make(chan domain.CheckerResult, s.cfg.ChannelBuffer)
	s.rescheduleCh = make(chan *domain.Task, s.cfg.ChannelBuffer)
	s.stagesDone = make(chan struct{})

	var stages errgroup.Group
	stages.Go(s.rescheduleStage)
	stages.Go(s.notifyStage)

	s.logger.Info("Scheduler started",
		logger.Int("tasks", s.QueueLen()),
		logger.Int("notifiers", len(s.notifiers)),
		logger.Duration("tick", s.cfg.Tick),
		logger.Int("max_concurrent", s.cfg.MaxConcurrent),
	)

	s.dispatchLoop(ctx)

	s.logger.Info("Scheduler stopping, waiting for in-flight checks",
		logger.Int64("in_flight", s.inFlight.Load()),
	)
	s.units.Wait()

	close(s.notifyCh)
	close(s.rescheduleCh)
	err := stages.Wait()
	close(s.stagesDone)

	s.logger.Info("Scheduler stopped", logger.Int("tasks", s.QueueLen()))
	return err
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	s.dispatchDue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.dispatchDue(ctx)
		}
	}
}

// dispatchDue извлекает все задачи, время которых подошло, и запускает
// по горутине на каждую. Блокировка держится на всю пачку.
func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	dispatched := 0
	for {
		task, ok := s.queue.Peek()
		if !ok || !task.Info.Due(now) {
			break
		}
		s.queue.Pop()

		s.units.Add(1)
		go s.execute(ctx, task)
		dispatched++
	}
	size := s.queue.Len()
	s.mu.Unlock()

	s.metrics.SetQueueSize(size)
	if dispatched > 0 {
		s.logger.Debug("Dispatched due tasks",
			logger.Int("dispatched", dispatched),
			logger.Int("queue_size", size),
		)
	}
}

// execute выполняет одну проверку. Контекст не отменяется вместе с планировщиком,
// проверку ограничивает только собственный таймаут checker'а.
func (s *Scheduler) execute(parent context.Context, task *domain.Task) {
	defer s.units.Done()

	name := task.Name()
	executionID := uuid.NewString()

	ctx, span := s.tracer.Start(context.WithoutCancel(parent), "check "+name,
		trace.WithAttributes(
			attribute.String("toktok.service", name),
			attribute.String("toktok.execution_id", executionID),
		),
	)
	defer span.End()

	if s.sem != nil {
		// ctx не отменяется, Acquire вернет ошибку только при отмене
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.logger.Error("Failed to acquire execution slot", logger.String("task", name), logger.Error(err))
			send(s, s.rescheduleCh, task, "reschedule")
			return
		}
		defer s.sem.Release(1)
	}

	s.inFlight.Add(1)
	s.metrics.CheckStarted()
	defer func() {
		s.inFlight.Add(-1)
		s.metrics.CheckFinished()
	}()

	started := s.clock.Now()
	s.metrics.ObserveDispatchLag(started.Sub(task.Info.NextExecutionAt))
	task.MarkStarted(started)
	s.checkLog.LogCheckStart(ctx, name, executionID)

	result := s.check(ctx, task)
	if result.ServiceName == "" {
		result.ServiceName = name
	}
	result.ExecutionID = executionID
	result.CheckedAt = started

	duration := s.clock.Since(started)
	s.metrics.ObserveCheck(name, result.Status, duration)
	s.checkLog.LogCheckComplete(ctx, result, duration)

	span.SetAttributes(attribute.String("toktok.status", result.Status.String()))
	if !result.IsSuccess() {
		span.SetStatus(codes.Error, result.Message)
	}

	task.Sink.Log(result)

	if !result.IsSuccess() {
		send(s, s.notifyCh, result, "notify")
	}
	send(s, s.rescheduleCh, task, "reschedule")
}

// check вызывает checker. Паника превращается в результат со статусом Error,
// чтобы задача все равно вернулась в очередь.
func (s *Scheduler) check(ctx context.Context, task *domain.Task) (result domain.CheckerResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Checker panicked",
				logger.String("task", task.Name()),
				logger.Any("panic", r),
			)
			result = domain.NewResult(task.Name(), domain.StatusError, fmt.Sprintf("checker panic: %v", r))
		}
	}()
	return task.Checker.Check(ctx, task.Name())
}

// send доставляет значение стадии. Если стадии уже завершились, значение
// отбрасывается с записью в лог.
func send[T any](s *Scheduler, ch chan<- T, v T, stage string) bool {
	select {
	case ch <- v:
		return true
	case <-s.stagesDone:
		s.logger.Warn("Receiver gone, dropping value", logger.String("stage", stage))
		return false
	}
}

// rescheduleStage возвращает выполненные задачи в очередь
func (s *Scheduler) rescheduleStage() error {
	for task := range s.rescheduleCh {
		task.ScheduleNext(s.clock.Now())
		// после Push задачей владеет очередь
		info := task.Info

		s.mu.Lock()
		err := s.queue.Push(task)
		size := s.queue.Len()
		s.mu.Unlock()

		if err != nil {
			// одна и та же задача не может выполняться дважды, сюда попадать не должны
			s.logger.Error("Failed to reschedule task", logger.String("task", info.Name), logger.Error(err))
			continue
		}

		s.metrics.Rescheduled()
		s.metrics.SetQueueSize(size)
		s.checkLog.LogRescheduled(context.Background(), info)
	}
	return nil
}

// notifyStage рассылает неуспешные результаты всем notifier'ам по порядку
func (s *Scheduler) notifyStage() error {
	for result := range s.notifyCh {
		for _, n := range s.notifiers {
			s.notify(n, result)
		}
	}
	return nil
}

func (s *Scheduler) notify(n domain.Notifier, result domain.CheckerResult) {
	name := domain.NotifierName(n)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "notify "+name,
		trace.WithAttributes(
			attribute.String("toktok.notifier", name),
			attribute.String("toktok.service", result.ServiceName),
			attribute.String("toktok.execution_id", result.ExecutionID),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("notifier panic: %v", r)
			span.SetStatus(codes.Error, err.Error())
			s.metrics.NotificationSent(name, metrics.OutcomePanic)
			s.checkLog.LogNotifyFailure(ctx, name, result, err)
		}
	}()

	err := n.Notify(ctx, result)
	switch {
	case err == nil:
		s.metrics.NotificationSent(name, metrics.OutcomeDelivered)
	case stderrors.Is(err, domain.ErrThrottled):
		s.metrics.NotificationSent(name, metrics.OutcomeThrottled)
	default:
		span.SetStatus(codes.Error, err.Error())
		s.metrics.NotificationSent(name, metrics.OutcomeFailed)
		s.checkLog.LogNotifyFailure(ctx, name, result, err)
	}
}

// Snapshot возвращает задачи, ожидающие в очереди, в порядке выполнения
func (s *Scheduler) Snapshot() []domain.TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Snapshot()
}

// QueueLen число задач в очереди
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// InFlight число выполняющихся проверок
func (s *Scheduler) InFlight() int64 {
	return s.inFlight.Load()
}

// Running сообщает, запущен ли цикл диспетчеризации
func (s *Scheduler) Running() bool {
	return s.running.Load()
}
