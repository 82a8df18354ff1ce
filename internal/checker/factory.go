package checker

import (
	"fmt"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/config"
	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/logger"
	"github.com/tonakai-s/toktok/pkg/validation"
)

// SupportedTypes типы проверок, которые умеет создавать New
var SupportedTypes = []string{
	config.CheckTypeWeb,
	config.CheckTypeServer,
	config.CheckTypeGRPC,
	config.CheckTypeRedis,
	config.CheckTypePostgres,
}

// New создает checker по конфигурации сервиса name
func New(name string, cfg config.CheckConfig, log logger.Logger) (domain.Checker, error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.String("service", name), logger.String("check_type", cfg.Type))

	v := validation.NewValidator()
	if err := v.ValidateEnum(cfg.Type, SupportedTypes, "type"); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, fmt.Sprintf("type '%s' is not valid", cfg.Type)).
			WithDetails(fmt.Sprintf("service %q", name))
	}

	timeout := cfg.TimeoutDuration()

	switch cfg.Type {
	case config.CheckTypeWeb:
		url := cfg.ResolvedURL()
		if err := v.ValidateURL(url, []string{"http", "https"}); err != nil {
			return nil, configError(name, err)
		}
		return NewWebChecker(WebOptions{
			URL:          url,
			Method:       cfg.Method,
			ExpectedCode: cfg.ExpectedHTTPCode,
			Headers:      cfg.Headers,
			Timeout:      timeout,
		}, log), nil
	case config.CheckTypeServer:
		if err := v.ValidateHostPort(cfg.Socket); err != nil {
			return nil, configError(name, err)
		}
		return NewServerChecker(cfg.Socket, timeout, cfg.Retries, log), nil
	case config.CheckTypeGRPC:
		if err := v.ValidateHostPort(cfg.Target); err != nil {
			return nil, configError(name, err)
		}
		return NewGRPCChecker(cfg.Target, cfg.Service, timeout, log), nil
	case config.CheckTypeRedis:
		if err := v.ValidateHostPort(cfg.Addr); err != nil {
			return nil, configError(name, err)
		}
		return NewRedisChecker(cfg.Addr, cfg.Password, cfg.DB, timeout, log), nil
	default:
		c, err := NewPostgresChecker(cfg.DSN, timeout, log)
		if err != nil {
			return nil, configError(name, err)
		}
		return c, nil
	}
}

func configError(name string, err error) error {
	return errors.Wrap(err, errors.ErrConfig, "invalid checker configuration").
		WithDetails(fmt.Sprintf("service %q", name))
}
