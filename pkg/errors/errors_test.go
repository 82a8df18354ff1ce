package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ctxKey string

// TestNewError проверяет создание новой ошибки
func TestNewError(t *testing.T) {
	e := New(ErrNotFound, "service not found")
	if e == nil {
		t.Fatal("Expected error, got nil")
	}
	if e.Code != ErrNotFound {
		t.Errorf("Expected code %s, got %s", ErrNotFound, e.Code)
	}
	if e.Error() != "service not found" {
		t.Errorf("Expected message 'service not found', got %s", e.Error())
	}
	if e.Cause != nil {
		t.Error("Expected cause to be nil")
	}
}

// TestWrapError проверяет оборачивание существующей ошибки
func TestWrapError(t *testing.T) {
	originalErr := fmt.Errorf("open toktok.yaml: no such file")
	e := Wrap(originalErr, ErrConfig, "failed to load config")

	if e.Code != ErrConfig {
		t.Errorf("Expected code %s, got %s", ErrConfig, e.Code)
	}
	if e.Error() != "failed to load config: open toktok.yaml: no such file" {
		t.Errorf("Unexpected message: %s", e.Error())
	}
	if Wrap(nil, ErrConfig, "nothing") != nil {
		t.Error("Expected nil when wrapping nil")
	}
}

// TestWithDetails проверяет, что детали не меняют исходную ошибку
func TestWithDetails(t *testing.T) {
	e := New(ErrValidation, "invalid service")
	withDetails := e.WithDetails("interval must be positive")

	if withDetails.Details != "interval must be positive" {
		t.Errorf("Unexpected details %s", withDetails.Details)
	}
	if e.Details != "" {
		t.Error("Original error should not have details")
	}
	if withDetails.Error() != "invalid service (interval must be positive)" {
		t.Errorf("Unexpected message: %s", withDetails.Error())
	}
}

// TestWithContext проверяет добавление контекста к ошибке
func TestWithContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey("execution_id"), "123")
	e := New(ErrInternal, "dispatch failed")
	withCtx := e.WithContext(ctx)

	if withCtx.Context.Value(ctxKey("execution_id")) != "123" {
		t.Error("Expected context to contain execution_id")
	}
	if e.Context != nil {
		t.Error("Original error should not have context")
	}
}

// TestErrorIs проверяет сравнение по коду через цепочку
func TestErrorIs(t *testing.T) {
	e := New(ErrNotFound, "service not found")
	if !e.Is(New(ErrNotFound, "another message")) {
		t.Error("Expected error to be ErrNotFound")
	}
	if e.Is(New(ErrInternal, "internal error")) {
		t.Error("Expected error not to be ErrInternal")
	}

	wrapped := fmt.Errorf("build tasks: %w", Wrap(fmt.Errorf("bad type"), ErrValidation, "invalid checker"))
	if !Is(wrapped, ErrValidation) {
		t.Error("Expected wrapped chain to carry ErrValidation")
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("Expected empty code for plain error")
	}
}

// TestFromGRPCErr проверяет преобразование из gRPC ошибки
func TestFromGRPCErr(t *testing.T) {
	testCases := []struct {
		code     codes.Code
		expected ErrorCode
	}{
		{codes.DeadlineExceeded, ErrTimeout},
		{codes.Unavailable, ErrUnavailable},
		{codes.NotFound, ErrNotFound},
		{codes.InvalidArgument, ErrValidation},
		{codes.Internal, ErrInternal},
	}

	for _, tc := range testCases {
		e := FromGRPCErr(status.Error(tc.code, "boom"))
		if e.Code != tc.expected {
			t.Errorf("For %s expected %s, got %s", tc.code, tc.expected, e.Code)
		}
		if e.Message != "boom" {
			t.Errorf("Expected message 'boom', got %s", e.Message)
		}
	}

	if FromGRPCErr(nil) != nil {
		t.Error("Expected nil for nil error")
	}
	if e := FromGRPCErr(context.DeadlineExceeded); e.Code != ErrTimeout {
		t.Errorf("Expected ErrTimeout for context deadline, got %s", e.Code)
	}
}

// TestHTTPStatus проверяет соответствие HTTP статусов
func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrValidation, http.StatusBadRequest},
		{ErrConfig, http.StatusBadRequest},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{ErrTimeout, http.StatusGatewayTimeout},
		{ErrInternal, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		e := New(tc.code, "test message")
		if got := e.HTTPStatus(); got != tc.expected {
			t.Errorf("For code %s, expected HTTP status %d, got %d", tc.code, tc.expected, got)
		}
	}
}

// TestMiddleware проверяет перехват паники
func TestMiddleware(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("queue corrupted")
	}))

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, w.Code)
	}

	var body map[string]map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["error"]["code"] != string(ErrInternal) {
		t.Errorf("Expected INTERNAL_ERROR, got %s", body["error"]["code"])
	}
	if body["error"]["details"] != "panic: queue corrupted" {
		t.Errorf("Unexpected details %s", body["error"]["details"])
	}
}
