package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/metrics"
)

// Namespace пространство имен метрик планировщика
const Namespace = "toktok"

// Исходы доставки уведомления
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeThrottled = "throttled"
	OutcomePanic     = "panic"
)

// Recorder точки наблюдения планировщика
type Recorder interface {
	ObserveCheck(service string, status domain.Status, duration time.Duration)
	CheckStarted()
	CheckFinished()
	SetQueueSize(n int)
	ObserveDispatchLag(lag time.Duration)
	NotificationSent(notifier, outcome string)
	Rescheduled()
}

// SchedulerMetrics метрики планировщика в Prometheus
type SchedulerMetrics struct {
	checkDuration *prometheus.HistogramVec
	checkTotal    *prometheus.CounterVec
	inFlight      prometheus.Gauge
	queueSize     prometheus.Gauge
	dispatchLag   prometheus.Histogram
	notifications *prometheus.CounterVec
	rescheduled   prometheus.Counter
}

// NewSchedulerMetrics создает и регистрирует метрики планировщика
func NewSchedulerMetrics() *SchedulerMetrics {
	checkDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of health checks in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)

	checkTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "check_total",
			Help:      "Total number of health checks performed",
		},
		[]string{"service", "status"},
	)

	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "checks_in_flight",
			Help:      "Number of checks currently executing",
		},
	)

	queueSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queue_size",
			Help:      "Number of tasks waiting in the queue",
		},
	)

	dispatchLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "dispatch_lag_seconds",
			Help:      "Delay between the scheduled and actual start of a check",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	notifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notifications_total",
			Help:      "Total number of notification attempts by outcome",
		},
		[]string{"notifier", "outcome"},
	)

	rescheduled := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reschedule_total",
			Help:      "Total number of tasks returned to the queue",
		},
	)

	return &SchedulerMetrics{
		checkDuration: metrics.Register(checkDuration),
		checkTotal:    metrics.Register(checkTotal),
		inFlight:      metrics.Register(inFlight),
		queueSize:     metrics.Register(queueSize),
		dispatchLag:   metrics.Register(dispatchLag),
		notifications: metrics.Register(notifications),
		rescheduled:   metrics.Register(rescheduled),
	}
}

// ObserveCheck записывает длительность и результат проверки
func (m *SchedulerMetrics) ObserveCheck(service string, status domain.Status, duration time.Duration) {
	m.checkDuration.WithLabelValues(service, status.String()).Observe(duration.Seconds())
	m.checkTotal.WithLabelValues(service, status.String()).Inc()
}

// CheckStarted увеличивает число выполняющихся проверок
func (m *SchedulerMetrics) CheckStarted() {
	m.inFlight.Inc()
}

// CheckFinished уменьшает число выполняющихся проверок
func (m *SchedulerMetrics) CheckFinished() {
	m.inFlight.Dec()
}

// SetQueueSize устанавливает размер очереди
func (m *SchedulerMetrics) SetQueueSize(n int) {
	m.queueSize.Set(float64(n))
}

// ObserveDispatchLag записывает задержку запуска относительно расписания
func (m *SchedulerMetrics) ObserveDispatchLag(lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	m.dispatchLag.Observe(lag.Seconds())
}

// NotificationSent считает попытку доставки
func (m *SchedulerMetrics) NotificationSent(notifier, outcome string) {
	m.notifications.WithLabelValues(notifier, outcome).Inc()
}

// Rescheduled считает возврат задачи в очередь
func (m *SchedulerMetrics) Rescheduled() {
	m.rescheduled.Inc()
}

// Nop Recorder, который ничего не делает
type Nop struct{}

func (Nop) ObserveCheck(string, domain.Status, time.Duration) {}
func (Nop) CheckStarted()                                     {}
func (Nop) CheckFinished()                                    {}
func (Nop) SetQueueSize(int)                                  {}
func (Nop) ObserveDispatchLag(time.Duration)                  {}
func (Nop) NotificationSent(string, string)                   {}
func (Nop) Rescheduled()                                      {}
