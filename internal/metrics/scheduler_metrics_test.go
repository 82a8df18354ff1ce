package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tonakai-s/toktok/internal/domain"
)

func TestNewSchedulerMetrics_Idempotent(t *testing.T) {
	first := NewSchedulerMetrics()
	second := NewSchedulerMetrics()

	// повторная регистрация возвращает уже зарегистрированные коллекторы
	assert.Same(t, first.checkTotal, second.checkTotal)
	assert.Equal(t, first.rescheduled, second.rescheduled)
}

func TestSchedulerMetrics_Checks(t *testing.T) {
	m := NewSchedulerMetrics()

	before := testutil.ToFloat64(m.checkTotal.WithLabelValues("metrics-web", "Error"))
	m.ObserveCheck("metrics-web", domain.StatusError, 250*time.Millisecond)
	m.ObserveCheck("metrics-web", domain.StatusError, time.Second)
	assert.Equal(t, before+2, testutil.ToFloat64(m.checkTotal.WithLabelValues("metrics-web", "Error")))

	inFlight := testutil.ToFloat64(m.inFlight)
	m.CheckStarted()
	m.CheckStarted()
	m.CheckFinished()
	assert.Equal(t, inFlight+1, testutil.ToFloat64(m.inFlight))
	m.CheckFinished()

	m.SetQueueSize(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueSize))
}

func TestSchedulerMetrics_Notifications(t *testing.T) {
	m := NewSchedulerMetrics()

	before := testutil.ToFloat64(m.notifications.WithLabelValues("mailer", OutcomeFailed))
	m.NotificationSent("mailer", OutcomeFailed)
	assert.Equal(t, before+1, testutil.ToFloat64(m.notifications.WithLabelValues("mailer", OutcomeFailed)))

	rescheduled := testutil.ToFloat64(m.rescheduled)
	m.Rescheduled()
	assert.Equal(t, rescheduled+1, testutil.ToFloat64(m.rescheduled))

	m.ObserveDispatchLag(-time.Second)
	m.ObserveDispatchLag(30 * time.Millisecond)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveCheck("web", domain.StatusSuccess, time.Second)
	r.CheckStarted()
	r.CheckFinished()
	r.SetQueueSize(1)
	r.ObserveDispatchLag(time.Second)
	r.NotificationSent("file", OutcomeDelivered)
	r.Rescheduled()
}
