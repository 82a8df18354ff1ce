package app

import (
	"context"
	"fmt"
	"io"

	"github.com/tonakai-s/toktok/internal/checker"
	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/config"
	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// CheckOnce выполняет одну проверку сервиса name вне планировщика
func CheckOnce(ctx context.Context, cfg *config.Config, name string, log logger.Logger) (domain.CheckerResult, error) {
	svc, ok := cfg.Services[name]
	if !ok {
		return domain.CheckerResult{}, errors.New(errors.ErrNotFound, fmt.Sprintf("service %q is not configured", name))
	}

	check, err := checker.New(name, svc.Configuration, log)
	if err != nil {
		return domain.CheckerResult{}, err
	}
	if c, ok := check.(io.Closer); ok {
		defer c.Close()
	}

	return check.Check(ctx, name), nil
}
