package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

const userAgent = "toktok/1.0"

// WebOptions параметры HTTP проверки
type WebOptions struct {
	URL          string
	Method       string
	ExpectedCode int
	Headers      map[string]string
	Timeout      time.Duration
}

// WebChecker проверяет, что HTTP эндпоинт отвечает ожидаемым кодом
type WebChecker struct {
	BaseChecker
	opts   WebOptions
	client *http.Client
}

// NewWebChecker создает HTTP checker
func NewWebChecker(opts WebOptions, log logger.Logger) *WebChecker {
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	if opts.ExpectedCode == 0 {
		opts.ExpectedCode = http.StatusOK
	}

	base := NewBaseChecker(log, opts.Timeout)
	return &WebChecker{
		BaseChecker: base,
		opts:        opts,
		client: &http.Client{
			Timeout: base.Timeout(),
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Check выполняет запрос и сравнивает код ответа с ожидаемым
func (w *WebChecker) Check(ctx context.Context, serviceName string) domain.CheckerResult {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(w.opts.Method), w.opts.URL, nil)
	if err != nil {
		return domain.NewResult(serviceName, domain.StatusError, fmt.Sprintf("Service unavailable with error %s", err))
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range w.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.logFailure(serviceName, w.opts.URL, err, started)
		return domain.NewResult(serviceName, statusFor(err), fmt.Sprintf("Service unavailable with error %s", err))
	}
	// дочитываем тело, чтобы соединение вернулось в пул
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	code := statusText(resp.StatusCode)
	if resp.StatusCode != w.opts.ExpectedCode {
		w.logger.Debug("Unexpected status code",
			logger.String("service", serviceName),
			logger.Int("expected", w.opts.ExpectedCode),
			logger.Int("actual", resp.StatusCode),
		)
		return domain.NewResult(serviceName, domain.StatusError, "Service unavailable with status "+code)
	}

	return domain.NewResult(serviceName, domain.StatusSuccess, "Service available with status "+code)
}

// statusText форматирует код как "200 OK"
func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("%d %s", code, text)
	}
	return fmt.Sprintf("%d", code)
}
