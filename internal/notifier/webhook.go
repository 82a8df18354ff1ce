package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// WebhookConfig параметры HTTP webhook
type WebhookConfig struct {
	URL     string
	Secret  string
	Headers map[string]string
	Timeout time.Duration
}

// alertClaims полезная нагрузка подписи webhook'а
type alertClaims struct {
	Status string `json:"status"`
	jwt.RegisteredClaims
}

// WebhookNotifier отправляет событие POST запросом в JSON.
// С секретом добавляет Authorization: Bearer <HS256 JWT>.
type WebhookNotifier struct {
	base
	config WebhookConfig
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier создает webhook notifier
func NewWebhookNotifier(config WebhookConfig, log logger.Logger) *WebhookNotifier {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		base:   newBase("webhook", log),
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		now:    time.Now,
	}
}

// Notify отправляет событие, ответ вне 2xx считается ошибкой
func (w *WebhookNotifier) Notify(ctx context.Context, result domain.CheckerResult) error {
	body, err := json.Marshal(NewEvent(result, w.now()))
	if err != nil {
		return w.fail(result, fmt.Errorf("failed to marshal event: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return w.fail(result, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "toktok/1.0")
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	if w.config.Secret != "" {
		token, err := w.sign(result)
		if err != nil {
			return w.fail(result, fmt.Errorf("failed to sign request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return w.fail(result, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return w.fail(result, fmt.Errorf("unexpected response status %d", resp.StatusCode))
	}

	w.delivered(result)
	return nil
}

func (w *WebhookNotifier) sign(result domain.CheckerResult) (string, error) {
	claims := alertClaims{
		Status: result.Status.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  result.ServiceName,
			IssuedAt: jwt.NewNumericDate(w.now()),
			Issuer:   "toktok",
		},
	}
	if result.ExecutionID != "" {
		claims.ID = result.ExecutionID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(w.config.Secret))
}
