package checker

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/errors"
	pkggrpc "github.com/tonakai-s/toktok/pkg/grpc"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// GRPCChecker опрашивает стандартный grpc.health.v1 сервис
type GRPCChecker struct {
	BaseChecker
	target  string
	service string
}

// NewGRPCChecker создает gRPC checker. Пустой service проверяет сервер целиком.
func NewGRPCChecker(target, service string, timeout time.Duration, log logger.Logger) *GRPCChecker {
	return &GRPCChecker{
		BaseChecker: NewBaseChecker(log, timeout),
		target:      target,
		service:     service,
	}
}

// Check вызывает Health/Check с таймаутом проверки
func (g *GRPCChecker) Check(ctx context.Context, serviceName string) domain.CheckerResult {
	started := time.Now()

	conn, err := pkggrpc.NewClient(g.target, g.logger)
	if err != nil {
		return domain.NewResult(serviceName, domain.StatusError, fmt.Sprintf("Service unavailable with error %s", err))
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, g.Timeout())
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: g.service})
	if err != nil {
		g.logFailure(serviceName, g.target, err, started)

		rpcErr := errors.FromGRPCErr(err)
		resultStatus := domain.StatusError
		if rpcErr.Code == errors.ErrTimeout {
			resultStatus = domain.StatusTimeout
		}
		return domain.NewResult(serviceName, resultStatus,
			fmt.Sprintf("Service unavailable with error %s: %s", status.Code(err), rpcErr.Message))
	}

	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return domain.NewResult(serviceName, domain.StatusError,
			fmt.Sprintf("Service unavailable with status %s", resp.GetStatus()))
	}

	return domain.NewResult(serviceName, domain.StatusSuccess, "Service available with status SERVING")
}
