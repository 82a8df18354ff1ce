package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// Validator предоставляет общие функции валидации
type Validator struct {
	structs *validator.Validate
}

// NewValidator создает новый Validator
func NewValidator() *Validator {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(yamlTagName)
	})
	return &Validator{structs: structValidator}
}

// yamlTagName подставляет имя yaml поля в сообщения об ошибках,
// чтобы пользователь видел ключи из своего toktok.yaml
func yamlTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// ValidateStruct проверяет структуру по тегам validate и возвращает
// одно читаемое сообщение на все нарушения
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.structs.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	// Namespace начинается с имени корневой структуры, оно пользователю не нужно
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", field, fe.Param(), fe.Value())
	case "gte", "min":
		return fmt.Sprintf("%s must be >= %s, got %v", field, fe.Param(), fe.Value())
	case "lte", "max":
		return fmt.Sprintf("%s must be <= %s, got %v", field, fe.Param(), fe.Value())
	case "email":
		return fmt.Sprintf("%s must be a valid email address, got %v", field, fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL, got %v", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed on %s validation", field, fe.Tag())
	}
}

// ValidateURL проверяет корректность URL
func (v *Validator) ValidateURL(target string, allowedSchemes []string) error {
	if target == "" {
		return fmt.Errorf("target is required")
	}

	if strings.ContainsAny(target, " \t\n\r") {
		return fmt.Errorf("URL contains invalid whitespace characters")
	}

	parsedURL, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if len(allowedSchemes) > 0 {
		schemeValid := false
		for _, scheme := range allowedSchemes {
			if parsedURL.Scheme == scheme {
				schemeValid = true
				break
			}
		}
		if !schemeValid {
			return fmt.Errorf("URL must use one of allowed schemes %v, got: %q", allowedSchemes, parsedURL.Scheme)
		}
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a valid host")
	}

	return nil
}

// ValidateHostPort проверяет корректность host:port формата
func (v *Validator) ValidateHostPort(target string) error {
	if target == "" {
		return fmt.Errorf("target is required")
	}

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return fmt.Errorf("target should not include http/https scheme")
	}

	host, port, err := net.SplitHostPort(target)
	if err != nil {
		return fmt.Errorf("invalid socket %q: %w", target, err)
	}
	if host == "" {
		return fmt.Errorf("invalid socket %q: host is empty", target)
	}

	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid socket %q: port must be between 1 and 65535", target)
	}

	return nil
}

// ValidateInterval проверяет корректность интервала
func (v *Validator) ValidateInterval(interval, min, max time.Duration) error {
	if interval < min {
		return fmt.Errorf("interval must be at least %s, got: %s", min, interval)
	}
	if max > 0 && interval > max {
		return fmt.Errorf("interval must not exceed %s, got: %s", max, interval)
	}
	return nil
}

// ValidateHTTPCode проверяет, что код попадает в диапазон HTTP статусов
func (v *Validator) ValidateHTTPCode(code int) error {
	if code < 100 || code > 599 {
		return fmt.Errorf("must be a valid HTTP status code (100-599), got %d", code)
	}
	return nil
}

// ValidateEnum проверяет значение на соответствие enum
func (v *Validator) ValidateEnum(value string, allowedValues []string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}

	return fmt.Errorf("invalid %s: %s, allowed values: %v", fieldName, value, allowedValues)
}
