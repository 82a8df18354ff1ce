package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker интерфейс для проверки здоровья сервиса
type HealthChecker interface {
	Check(ctx context.Context) *HealthStatus
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]Status `json:"services,omitempty"`
	Version   string            `json:"version,omitempty"`
}

// Healthy сообщает, что все компоненты в порядке
func (h *HealthStatus) Healthy() bool {
	return h.Status == StatusHealthy
}

// Status представляет статус компонента
type Status struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Probe проверяет один компонент
type Probe func(ctx context.Context) Status

// PingProbe превращает функцию ping в Probe
func PingProbe(ping func(ctx context.Context) error) Probe {
	return func(ctx context.Context) Status {
		if err := ping(ctx); err != nil {
			return Status{Status: StatusUnhealthy, Details: err.Error()}
		}
		return Status{Status: StatusHealthy}
	}
}

// CompositeHealthChecker опрашивает зарегистрированные компоненты
type CompositeHealthChecker struct {
	version string
	timeout time.Duration

	mu     sync.RWMutex
	probes map[string]Probe
}

// NewCompositeHealthChecker создает проверку с таймаутом на каждый компонент
func NewCompositeHealthChecker(version string, timeout time.Duration) *CompositeHealthChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &CompositeHealthChecker{
		version: version,
		timeout: timeout,
		probes:  make(map[string]Probe),
	}
}

// AddProbe регистрирует компонент
func (c *CompositeHealthChecker) AddProbe(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// Check опрашивает компоненты по очереди, в порядке имен
func (c *CompositeHealthChecker) Check(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.probes))
	for name := range c.probes {
		names = append(names, name)
	}
	probes := c.probes
	c.mu.RUnlock()
	sort.Strings(names)

	result := &HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   c.version,
	}
	if len(names) == 0 {
		return result
	}

	result.Services = make(map[string]Status, len(names))
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		status := probes[name](probeCtx)
		cancel()

		result.Services[name] = status
		if status.Status != StatusHealthy {
			result.Status = StatusUnhealthy
		}
	}

	return result
}

// Handler создает HTTP обработчик для health check эндпоинта
func Handler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checker.Check(r.Context()))
	}
}

// ReadyHandler создает HTTP обработчик для ready check эндпоинта.
// Возвращает 503, если хотя бы один компонент нездоров.
func ReadyHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := checker.Check(r.Context())
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

// LiveHandler создает HTTP обработчик для live check эндпоинта
// Возвращает 200 если сервис жив
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
