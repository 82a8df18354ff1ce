package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

func TestWebhookNotifier_SignedDelivery(t *testing.T) {
	var (
		gotAuth   string
		gotHeader string
		gotEvent  map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotHeader = r.Header.Get("X-Team")
		json.NewDecoder(r.Body).Decode(&gotEvent)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{
		URL:     srv.URL,
		Secret:  "top-secret",
		Headers: map[string]string{"X-Team": "sre"},
	}, logger.NewNop())

	result := domain.NewResult("web", domain.StatusError, "connection refused")
	result.ExecutionID = "exec-42"
	require.NoError(t, n.Notify(context.Background(), result))

	assert.Equal(t, "sre", gotHeader)
	assert.Equal(t, "web", gotEvent["service"])
	assert.Equal(t, "Error", gotEvent["status"])
	assert.Equal(t, "connection refused", gotEvent["message"])
	assert.Equal(t, "exec-42", gotEvent["execution_id"])

	require.True(t, strings.HasPrefix(gotAuth, "Bearer "))
	claims := &alertClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(gotAuth, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("top-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "web", claims.Subject)
	assert.Equal(t, "Error", claims.Status)
	assert.Equal(t, "exec-42", claims.ID)
}

func TestWebhookNotifier_NoSecret(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL}, logger.NewNop())
	require.NoError(t, n.Notify(context.Background(), domain.NewResult("web", domain.StatusTimeout, "slow")))
	assert.Empty(t, gotAuth)
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL}, logger.NewNop())
	err := n.Notify(context.Background(), domain.NewResult("web", domain.StatusError, "down"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response status 502")
}
