// Package app собирает toktok из конфигурации и управляет его жизненным циклом.
package app

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/tonakai-s/toktok/internal/domain"
	internalmetrics "github.com/tonakai-s/toktok/internal/metrics"
	"github.com/tonakai-s/toktok/internal/scheduler"
	"github.com/tonakai-s/toktok/internal/tasklog"
	"github.com/tonakai-s/toktok/pkg/config"
	"github.com/tonakai-s/toktok/pkg/logger"
	"github.com/tonakai-s/toktok/pkg/metrics"
)

// Version версия сборки, задается через -ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// App собранное приложение
type App struct {
	config    *config.Config
	logger    logger.Logger
	tasks     []*domain.Task
	notifiers []domain.Notifier
	closers   Closers

	scheduler *scheduler.Scheduler
	tasklog   *tasklog.Manager
	server    *http.Server
}

// New собирает приложение. Любая ошибка здесь фатальна для запуска.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{config: cfg, logger: log}

	if cfg.Tracing.Enabled {
		shutdown, err := metrics.InitializeOpenTelemetry("toktok", Version, cfg.Tracing.SampleRatio)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return shutdown(ctx)
		})
	}

	var sinks SinkFactory
	if cfg.TaskLog.Enabled {
		manager, err := tasklog.NewManager(afero.NewOsFs(), cfg.TaskLog.Dir, clockwork.NewRealClock(), log)
		if err != nil {
			a.closers.Close()
			return nil, err
		}
		a.tasklog = manager
		a.closers = append(a.closers, manager.Close)
		sinks = func(task string) (domain.ResultSink, error) {
			return manager.Sink(task)
		}
	}

	tasks, err := BuildTasks(cfg, sinks, log)
	if err != nil {
		a.closers.Close()
		return nil, err
	}
	a.tasks = tasks
	for _, task := range tasks {
		if c, ok := task.Checker.(io.Closer); ok {
			a.closers = append(a.closers, c.Close)
		}
	}

	notifiers, closers, err := BuildNotifiers(ctx, cfg, log)
	if err != nil {
		a.closers.Close()
		return nil, err
	}
	a.notifiers = notifiers
	a.closers = append(a.closers, closers...)

	a.scheduler, err = scheduler.New(scheduler.Config{
		Tick:          cfg.Scheduler.Tick,
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
		ChannelBuffer: cfg.Scheduler.ChannelBuffer,
		NotifyTimeout: cfg.Notification.Timeout,
	}, tasks, notifiers, log, scheduler.WithMetrics(internalmetrics.NewSchedulerMetrics()))
	if err != nil {
		a.closers.Close()
		return nil, err
	}

	if cfg.Server.Enabled {
		a.server = &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:           NewOpsHandler(NewHealthChecker(a.scheduler, notifiers), metrics.NewMetrics("toktok")),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return a, nil
}

// Tasks собранные задачи
func (a *App) Tasks() []*domain.Task {
	return a.tasks
}

// Notifiers собранные каналы уведомлений
func (a *App) Notifiers() []domain.Notifier {
	return a.notifiers
}

// Scheduler планировщик приложения
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Run запускает планировщик, служебный сервер и ротацию журналов.
// Останавливается по отмене ctx, SIGINT или SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})

	if a.tasklog != nil {
		g.Go(func() error {
			return a.tasklog.RunRotation(gctx)
		})
	}

	if a.server != nil {
		g.Go(func() error {
			a.logger.Info("Starting ops server", logger.String("addr", a.server.Addr))
			if err := a.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()

	if closeErr := a.Close(); closeErr != nil {
		a.logger.Error("Failed to release resources", logger.Error(closeErr))
	}
	a.logger.Info("toktok stopped")

	return err
}

// Close освобождает ресурсы приложения
func (a *App) Close() error {
	closers := a.closers
	a.closers = nil
	return closers.Close()
}
