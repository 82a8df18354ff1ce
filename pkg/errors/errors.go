package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error представляет кастомную ошибку с дополнительной информацией
type Error struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
	Cause   error           `json:"-"`
	Context context.Context `json:"-"`
}

// ErrorCode представляет код ошибки
type ErrorCode string

// Определение кодов ошибок
const (
	ErrNotFound    ErrorCode = "NOT_FOUND"
	ErrValidation  ErrorCode = "VALIDATION_ERROR"
	ErrConfig      ErrorCode = "CONFIG_ERROR"
	ErrInternal    ErrorCode = "INTERNAL_ERROR"
	ErrUnavailable ErrorCode = "UNAVAILABLE"
	ErrTimeout     ErrorCode = "TIMEOUT"
)

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// New создает новую кастомную ошибку
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку в кастомную
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails возвращает копию ошибки с деталями
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Details = details
	return &cp
}

// WithContext возвращает копию ошибки с контекстом
func (e *Error) WithContext(ctx context.Context) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Context = ctx
	return &cp
}

// Is проверяет, содержит ли цепочка ошибок кастомную ошибку с кодом code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode возвращает код первой кастомной ошибки в цепочке, либо пустую строку
func GetCode(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// FromGRPCCode переводит gRPC код в код ошибки
func FromGRPCCode(code codes.Code) ErrorCode {
	switch code {
	case codes.DeadlineExceeded:
		return ErrTimeout
	case codes.Unavailable, codes.Canceled:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument, codes.FailedPrecondition:
		return ErrValidation
	default:
		return ErrInternal
	}
}

// FromGRPCErr преобразует gRPC ошибку в кастомную ошибку
func FromGRPCErr(err error) *Error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return &Error{
			Code:    FromGRPCCode(st.Code()),
			Message: st.Message(),
			Cause:   err,
		}
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrTimeout, "deadline exceeded")
	}
	return Wrap(err, ErrInternal, "internal error")
}

// HTTPStatus возвращает соответствующий HTTP статус для ошибки
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}

	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation, ErrConfig:
		return http.StatusBadRequest
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	case ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Middleware перехватывает панику в HTTP обработчиках и отдает JSON ошибку
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err := New(ErrInternal, "Internal server error").
					WithDetails(fmt.Sprintf("panic: %v", recovered))
				WriteJSON(w, err)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// WriteJSON отправляет JSON ответ с ошибкой
func WriteJSON(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())

	response := map[string]interface{}{
		"error": map[string]interface{}{
			"code":    err.Code,
			"message": err.Message,
			"details": err.Details,
		},
	}

	jsonData, jsonErr := json.Marshal(response)
	if jsonErr != nil {
		w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`))
		return
	}

	w.Write(jsonData)
}
