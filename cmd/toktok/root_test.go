package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, url string) string {
	t.Helper()
	content := fmt.Sprintf(`environment: dev
logger:
  level: error
server:
  enabled: false
  host: 127.0.0.1
  port: 9090
tasklog:
  enabled: false
services:
  web:
    interval: 10
    configuration:
      type: web
      url: %s
  cache:
    interval: 30
    configuration:
      type: server
      socket: localhost:6379
notification:
  file:
    path: %s
`, url, filepath.Join(t.TempDir(), "alerts.log"))

	path := filepath.Join(t.TempDir(), "toktok.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, "https://example.com/health")

	out, err := execute("validate", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Configuration OK: 2 services, 1 notifiers")
	assert.Contains(t, out, "service  cache (server) every 30s")
	assert.Contains(t, out, "service  web (web) every 10s")
	assert.Contains(t, out, "notifier file")
}

func TestValidateCommand_MissingConfig(t *testing.T) {
	_, err := execute("validate", "-c", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateCommand_BadOverride(t *testing.T) {
	path := writeConfig(t, "https://example.com/health")

	_, err := execute("validate", "--config", path, "--environment", "qa")
	require.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := writeConfig(t, srv.URL)

	out, err := execute("check", "web", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Service: web - Status: Success - Message: Service available with status 200 OK")
}

func TestCheckCommand_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := writeConfig(t, srv.URL)

	out, err := execute("check", "web", "--config", path)
	require.Error(t, err)
	assert.Contains(t, out, "Status: Error")
}

func TestCheckCommand_UnknownService(t *testing.T) {
	path := writeConfig(t, "https://example.com/health")

	_, err := execute("check", "ftp", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
