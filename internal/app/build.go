package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/tonakai-s/toktok/internal/checker"
	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/internal/notifier"
	"github.com/tonakai-s/toktok/pkg/config"
	"github.com/tonakai-s/toktok/pkg/database"
	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/logger"
	"github.com/tonakai-s/toktok/pkg/rabbitmq"
	"github.com/tonakai-s/toktok/pkg/ratelimit"
	"github.com/tonakai-s/toktok/pkg/redis"
)

// SinkFactory создает журнал результатов для задачи
type SinkFactory func(task string) (domain.ResultSink, error)

// Closers ресурсы, которые нужно освободить при остановке
type Closers []func() error

// Close освобождает ресурсы в обратном порядке
func (c Closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// BuildTasks создает по задаче на каждый сервис в порядке имен.
// Без sinks задачи пишут результаты в никуда.
func BuildTasks(cfg *config.Config, sinks SinkFactory, log logger.Logger) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0, len(cfg.Services))

	for _, name := range cfg.ServiceNames() {
		svc := cfg.Services[name]

		check, err := checker.New(name, svc.Configuration, log)
		if err != nil {
			return nil, err
		}

		var sink domain.ResultSink
		if sinks != nil {
			sink, err = sinks(name)
			if err != nil {
				return nil, err
			}
		}

		task, err := domain.NewTask(name, svc.IntervalDuration(), check, sink)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfig, "invalid service").WithDetails(fmt.Sprintf("service %q", name))
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// BuildNotifiers создает включенные в конфигурации каналы уведомлений.
// При ошибке уже открытые подключения закрываются.
func BuildNotifiers(ctx context.Context, cfg *config.Config, log logger.Logger) (notifiers []domain.Notifier, closers Closers, err error) {
	defer func() {
		if err != nil {
			closers.Close()
			notifiers, closers = nil, nil
		}
	}()

	n := cfg.Notification

	if n.Mailer != nil {
		user, pass, err := notifier.LoadCredentials(os.ExpandEnv(n.Mailer.SMTPCredentials))
		if err != nil {
			return notifiers, closers, err
		}
		mailer, err := notifier.NewMailer(notifier.MailerConfig{
			Host:     n.Mailer.SMTPDomain,
			Port:     n.Mailer.SMTPPort,
			Username: user,
			Password: pass,
			From:     n.Mailer.From,
			To:       n.Mailer.To,
			Cc:       n.Mailer.Cc,
			Bcc:      n.Mailer.Bcc,
		}, log)
		if err != nil {
			return notifiers, closers, err
		}
		notifiers = append(notifiers, mailer)
	}

	if n.File != nil {
		file, err := notifier.NewFileNotifier(afero.NewOsFs(), os.ExpandEnv(n.File.Path), clockwork.NewRealClock(), log)
		if err != nil {
			return notifiers, closers, err
		}
		notifiers = append(notifiers, file)
	}

	if n.Webhook != nil {
		notifiers = append(notifiers, notifier.NewWebhookNotifier(notifier.WebhookConfig{
			URL:     n.Webhook.URL,
			Secret:  n.Webhook.Secret,
			Headers: n.Webhook.Headers,
			Timeout: n.Timeout,
		}, log))
	}

	if n.Telegram != nil {
		tg, err := notifier.NewTelegramNotifier(notifier.TelegramConfig{
			Token:   n.Telegram.Token,
			ChatID:  n.Telegram.ChatID,
			APIURL:  n.Telegram.APIURL,
			Timeout: n.Timeout,
		}, log)
		if err != nil {
			return notifiers, closers, errors.Wrap(err, errors.ErrConfig, "invalid telegram notifier")
		}
		notifiers = append(notifiers, tg)
	}

	if n.RabbitMQ != nil {
		rmqConfig := rabbitmq.NewConfig()
		rmqConfig.URL = n.RabbitMQ.URL
		rmqConfig.Exchange = n.RabbitMQ.Exchange
		rmqConfig.RoutingKey = n.RabbitMQ.RoutingKey

		conn, err := rabbitmq.Connect(ctx, rmqConfig)
		if err != nil {
			return notifiers, closers, errors.Wrap(err, errors.ErrUnavailable, "failed to set up rabbitmq notifier")
		}
		closers = append(closers, conn.Close)
		notifiers = append(notifiers, notifier.NewRabbitMQNotifier(rabbitmq.NewProducer(conn, rmqConfig), log))
	}

	if n.Redis != nil {
		client, err := connectRedis(ctx, n.Redis.Addr, n.Redis.Password, n.Redis.DB)
		if err != nil {
			return notifiers, closers, errors.Wrap(err, errors.ErrUnavailable, "failed to set up redis notifier")
		}
		closers = append(closers, client.Close)
		notifiers = append(notifiers, notifier.NewRedisNotifier(client.Client, notifier.RedisConfig{
			Channel:     n.Redis.Channel,
			HistoryKey:  n.Redis.HistoryKey,
			HistorySize: n.Redis.HistorySize,
		}, log))
	}

	if n.Journal != nil {
		store, err := openJournal(ctx, n.Journal)
		if err != nil {
			return notifiers, closers, errors.Wrap(err, errors.ErrUnavailable, "failed to open incident journal")
		}
		journal, err := notifier.NewJournalNotifier(ctx, store, log)
		if err != nil {
			store.Close()
			return notifiers, closers, errors.Wrap(err, errors.ErrUnavailable, "failed to open incident journal")
		}
		closers = append(closers, journal.Close)
		notifiers = append(notifiers, journal)
	}

	if n.RateLimit.Enabled && len(notifiers) > 0 {
		limiter, closer, err := newLimiter(ctx, n.RateLimit)
		if err != nil {
			return notifiers, closers, errors.Wrap(err, errors.ErrUnavailable, "failed to set up notification rate limit")
		}
		if closer != nil {
			closers = append(closers, closer.Close)
		}
		for i, inner := range notifiers {
			notifiers[i] = notifier.NewThrottled(inner, limiter, n.RateLimit.Limit, n.RateLimit.Window, log)
		}
	}

	return notifiers, closers, nil
}

func connectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	redisConfig := redis.NewConfig()
	redisConfig.Addr = addr
	redisConfig.Password = password
	redisConfig.DB = db
	return redis.Connect(ctx, redisConfig)
}

func openJournal(ctx context.Context, cfg *config.JournalConfig) (notifier.JournalStore, error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := database.Connect(ctx, database.NewConfig(cfg.DSN))
		if err != nil {
			return nil, err
		}
		return notifier.NewPostgresJournal(pg.Pool), nil
	case "sqlite":
		return notifier.OpenSQLiteJournal(os.ExpandEnv(cfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported journal driver %q", cfg.Driver)
	}
}

func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.RateLimiter, io.Closer, error) {
	if cfg.Backend != "redis" {
		return ratelimit.NewLocalRateLimiter(), nil, nil
	}

	client, err := connectRedis(ctx, cfg.RedisAddr, "", 0)
	if err != nil {
		return nil, nil, err
	}
	return ratelimit.NewRedisRateLimiter(client.Client), client, nil
}
