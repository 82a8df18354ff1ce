package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/health"
	"github.com/tonakai-s/toktok/pkg/metrics"
)

// SchedulerState то, что readiness знает о планировщике
type SchedulerState interface {
	Running() bool
	QueueLen() int
	InFlight() int64
}

type pinger interface {
	Ping(ctx context.Context) error
}

type unwrapper interface {
	Unwrap() domain.Notifier
}

// NewHealthChecker собирает readiness: планировщик и backend'ы notifier'ов с Ping
func NewHealthChecker(state SchedulerState, notifiers []domain.Notifier) *health.CompositeHealthChecker {
	checker := health.NewCompositeHealthChecker(Version, 0)

	checker.AddProbe("scheduler", func(context.Context) health.Status {
		details := fmt.Sprintf("queue_size=%d in_flight=%d", state.QueueLen(), state.InFlight())
		if !state.Running() {
			return health.Status{Status: health.StatusUnhealthy, Details: "not running; " + details}
		}
		return health.Status{Status: health.StatusHealthy, Details: details}
	})

	for _, n := range notifiers {
		inner := n
		for {
			u, ok := inner.(unwrapper)
			if !ok {
				break
			}
			inner = u.Unwrap()
		}
		if p, ok := inner.(pinger); ok {
			checker.AddProbe("notifier:"+domain.NotifierName(n), health.PingProbe(p.Ping))
		}
	}

	return checker
}

// NewOpsHandler служебные эндпоинты: health, ready, live и metrics
func NewOpsHandler(checker health.HealthChecker, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", health.Handler(checker))
	mux.HandleFunc("/ready", health.ReadyHandler(checker))
	mux.HandleFunc("/live", health.LiveHandler())
	mux.Handle("/metrics", m.GetHandler())

	return errors.Middleware(m.Middleware(mux))
}
