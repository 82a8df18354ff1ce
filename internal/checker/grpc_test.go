package checker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

func startHealthServer(t *testing.T) (string, *health.Server) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)

	go srv.Serve(l)
	t.Cleanup(srv.Stop)

	return l.Addr().String(), hs
}

func TestGRPCChecker_Serving(t *testing.T) {
	addr, hs := startHealthServer(t)
	hs.SetServingStatus("payments", grpc_health_v1.HealthCheckResponse_SERVING)

	result := NewGRPCChecker(addr, "payments", 2*time.Second, logger.NewNop()).Check(context.Background(), "payments")

	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, "Service available with status SERVING", result.Message)
}

func TestGRPCChecker_WholeServer(t *testing.T) {
	addr, _ := startHealthServer(t)

	result := NewGRPCChecker(addr, "", 2*time.Second, logger.NewNop()).Check(context.Background(), "api")

	assert.Equal(t, domain.StatusSuccess, result.Status)
}

func TestGRPCChecker_NotServing(t *testing.T) {
	addr, hs := startHealthServer(t)
	hs.SetServingStatus("payments", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	result := NewGRPCChecker(addr, "payments", 2*time.Second, logger.NewNop()).Check(context.Background(), "payments")

	assert.Equal(t, domain.StatusError, result.Status)
	assert.Equal(t, "Service unavailable with status NOT_SERVING", result.Message)
}

func TestGRPCChecker_UnknownService(t *testing.T) {
	addr, _ := startHealthServer(t)

	result := NewGRPCChecker(addr, "missing", 2*time.Second, logger.NewNop()).Check(context.Background(), "missing")

	assert.Equal(t, domain.StatusError, result.Status)
	assert.Contains(t, result.Message, "NotFound")
}

func TestGRPCChecker_Unreachable(t *testing.T) {
	result := NewGRPCChecker(closedAddr(t), "", time.Second, logger.NewNop()).Check(context.Background(), "api")

	assert.NotEqual(t, domain.StatusSuccess, result.Status)
	assert.Contains(t, result.Message, "Service unavailable with error")
}

type slowHealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
}

func (slowHealthServer) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGRPCChecker_DeadlineIsTimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, slowHealthServer{})
	go srv.Serve(l)
	t.Cleanup(srv.Stop)

	result := NewGRPCChecker(l.Addr().String(), "", 100*time.Millisecond, logger.NewNop()).
		Check(context.Background(), "api")

	assert.Equal(t, domain.StatusTimeout, result.Status)
	assert.Contains(t, result.Message, "Service unavailable with error DeadlineExceeded")
}
