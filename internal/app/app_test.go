package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/internal/notifier"
	"github.com/tonakai-s/toktok/pkg/config"
	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/health"
	"github.com/tonakai-s/toktok/pkg/logger"
	"github.com/tonakai-s/toktok/pkg/metrics"
	"github.com/tonakai-s/toktok/pkg/mocks"
)

func webService(url string, interval int) config.ServiceConfig {
	return config.ServiceConfig{
		Interval: interval,
		Configuration: config.CheckConfig{
			Type:             config.CheckTypeWeb,
			URL:              url,
			Method:           "GET",
			ExpectedHTTPCode: 200,
		},
	}
}

func testConfig(services map[string]config.ServiceConfig) *config.Config {
	cfg := config.Default()
	cfg.Server.Enabled = false
	cfg.TaskLog.Enabled = false
	cfg.Services = services
	return cfg
}

func TestBuildTasks(t *testing.T) {
	cfg := testConfig(map[string]config.ServiceConfig{
		"web": webService("https://example.com/health", 10),
		"api": {
			Interval:      5,
			Configuration: config.CheckConfig{Type: config.CheckTypeServer, Socket: "localhost:8080"},
		},
	})

	var created []string
	sinks := func(task string) (domain.ResultSink, error) {
		created = append(created, task)
		return domain.NopSink{}, nil
	}

	tasks, err := BuildTasks(cfg, sinks, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "api", tasks[0].Name())
	assert.Equal(t, 5*time.Second, tasks[0].Info.Interval)
	assert.Equal(t, "web", tasks[1].Name())
	assert.Equal(t, 10*time.Second, tasks[1].Info.Interval)
	assert.Equal(t, []string{"api", "web"}, created)
}

func TestBuildTasks_Errors(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		cfg := testConfig(map[string]config.ServiceConfig{
			"ftp": {Interval: 5, Configuration: config.CheckConfig{Type: "ftp"}},
		})
		_, err := BuildTasks(cfg, nil, logger.NewNop())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfig))
	})

	t.Run("sink failure", func(t *testing.T) {
		cfg := testConfig(map[string]config.ServiceConfig{"web": webService("https://example.com", 5)})
		sinks := func(string) (domain.ResultSink, error) {
			return nil, errors.New(errors.ErrConfig, "read-only file system")
		}
		_, err := BuildTasks(cfg, sinks, logger.NewNop())
		require.Error(t, err)
	})

	t.Run("zero interval", func(t *testing.T) {
		cfg := testConfig(map[string]config.ServiceConfig{"web": webService("https://example.com", 0)})
		_, err := BuildTasks(cfg, nil, logger.NewNop())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfig))
	})
}

func TestBuildNotifiers(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(nil)
	cfg.Notification.File = &config.FileNotifierConfig{Path: filepath.Join(dir, "alerts", "toktok.log")}
	cfg.Notification.Webhook = &config.WebhookConfig{URL: "https://hooks.example.com/toktok"}
	cfg.Notification.Journal = &config.JournalConfig{Driver: "sqlite", DSN: ":memory:"}

	notifiers, closers, err := BuildNotifiers(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer closers.Close()

	names := make([]string, 0, len(notifiers))
	for _, n := range notifiers {
		names = append(names, domain.NotifierName(n))
	}
	assert.Equal(t, []string{"file", "webhook", "journal"}, names)
	assert.Len(t, closers, 1)
}

func TestBuildNotifiers_RateLimited(t *testing.T) {
	cfg := testConfig(nil)
	cfg.Notification.File = &config.FileNotifierConfig{Path: filepath.Join(t.TempDir(), "alerts.log")}
	cfg.Notification.RateLimit.Enabled = true
	cfg.Notification.RateLimit.Limit = 1
	cfg.Notification.RateLimit.Window = time.Hour

	notifiers, closers, err := BuildNotifiers(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer closers.Close()

	require.Len(t, notifiers, 1)
	throttled, ok := notifiers[0].(*notifier.Throttled)
	require.True(t, ok)
	assert.Equal(t, "file", throttled.Name())

	result := domain.NewResult("web", domain.StatusError, "down")
	require.NoError(t, throttled.Notify(context.Background(), result))
	assert.ErrorIs(t, throttled.Notify(context.Background(), result), notifier.ErrThrottled)
}

func TestBuildNotifiers_MissingCredentials(t *testing.T) {
	cfg := testConfig(nil)
	cfg.Notification.File = &config.FileNotifierConfig{Path: filepath.Join(t.TempDir(), "alerts.log")}
	cfg.Notification.Mailer = &config.MailerConfig{
		SMTPDomain:      "smtp.example.com",
		SMTPPort:        587,
		SMTPCredentials: filepath.Join(t.TempDir(), "missing"),
		From:            "toktok@example.com",
		To:              config.Recipients{"ops@example.com"},
	}

	notifiers, closers, err := BuildNotifiers(context.Background(), cfg, logger.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
	assert.Nil(t, notifiers)
	assert.Nil(t, closers)
}

func TestClosers_ReverseOrder(t *testing.T) {
	var order []int
	c := Closers{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return io.ErrClosedPipe },
	}

	err := c.Close()
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, []int{2, 1}, order)
}

type fakeState struct {
	running  bool
	queue    int
	inFlight int64
}

func (f fakeState) Running() bool   { return f.running }
func (f fakeState) QueueLen() int   { return f.queue }
func (f fakeState) InFlight() int64 { return f.inFlight }

func TestNewHealthChecker(t *testing.T) {
	store, err := notifier.OpenSQLiteJournal(":memory:")
	require.NoError(t, err)
	journal, err := notifier.NewJournalNotifier(context.Background(), store, logger.NewNop())
	require.NoError(t, err)
	defer journal.Close()

	checker := NewHealthChecker(fakeState{running: true, queue: 3, inFlight: 1}, []domain.Notifier{journal})
	status := checker.Check(context.Background())

	assert.True(t, status.Healthy())
	assert.Equal(t, "queue_size=3 in_flight=1", status.Services["scheduler"].Details)
	assert.Equal(t, health.StatusHealthy, status.Services["notifier:journal"].Status)

	stopped := NewHealthChecker(fakeState{}, nil).Check(context.Background())
	assert.False(t, stopped.Healthy())
}

func TestOpsHandler(t *testing.T) {
	handler := NewOpsHandler(NewHealthChecker(fakeState{}, nil), metrics.NewMetrics("toktok"))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	var status health.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, health.StatusUnhealthy, status.Status)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "toktok_http_requests_total")
}

func TestOpsHandler_ReadyHealthy(t *testing.T) {
	checker := &mocks.MockHealthChecker{}
	checker.On("Check", mock.Anything).Return(&health.HealthStatus{
		Status:    health.StatusHealthy,
		Timestamp: time.Now(),
		Version:   Version,
	})

	srv := httptest.NewServer(NewOpsHandler(checker, metrics.NewMetrics("toktok")))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	checker.AssertExpectations(t)
}

func TestCheckOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(map[string]config.ServiceConfig{"web": webService(srv.URL, 5)})

	result, err := CheckOnce(context.Background(), cfg, "web", logger.NewNop())
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, "Service available with status 200 OK", result.Message)

	_, err = CheckOnce(context.Background(), cfg, "missing", logger.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestApp_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	alerts := filepath.Join(dir, "alerts.log")

	cfg := testConfig(map[string]config.ServiceConfig{"web": webService(srv.URL, 60)})
	cfg.TaskLog.Enabled = true
	cfg.TaskLog.Dir = filepath.Join(dir, "tasks")
	cfg.Scheduler.Tick = 10 * time.Millisecond
	cfg.Notification.File = &config.FileNotifierConfig{Path: alerts}

	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, a.Tasks(), 1)
	require.Len(t, a.Notifiers(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(alerts)
		return err == nil && len(data) > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}

	data, err := os.ReadFile(alerts)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Service: web - Status Error: Service unavailable with status 503 Service Unavailable")

	logs, err := filepath.Glob(filepath.Join(dir, "tasks", "web", "*-web.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	content, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(content), "Error - Service unavailable with status 503 Service Unavailable\n"))
	assert.Equal(t, 1, a.Scheduler().QueueLen())
}
