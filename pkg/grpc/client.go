package grpc

import (
	"context"
	"time"

	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/tonakai-s/toktok/pkg/logger"
)

// NewClient создает клиентское соединение без TLS с логированием вызовов.
// Соединение ленивое: сеть затрагивается только при первом RPC.
func NewClient(target string, log logger.Logger, opts ...ggrpc.DialOption) (*ggrpc.ClientConn, error) {
	if log == nil {
		log = logger.NewNop()
	}

	base := []ggrpc.DialOption{
		ggrpc.WithTransportCredentials(insecure.NewCredentials()),
		ggrpc.WithUnaryInterceptor(LoggingUnaryInterceptor(log)),
	}
	return ggrpc.NewClient(target, append(base, opts...)...)
}

// LoggingUnaryInterceptor пишет в Debug метод, код ответа и длительность вызова
func LoggingUnaryInterceptor(log logger.Logger) ggrpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *ggrpc.ClientConn, invoker ggrpc.UnaryInvoker, opts ...ggrpc.CallOption) error {
		started := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		log.Debug("gRPC call finished",
			logger.CtxField(ctx),
			logger.String("method", method),
			logger.String("target", cc.Target()),
			logger.String("code", status.Code(err).String()),
			logger.Duration("duration", time.Since(started)),
		)
		return err
	}
}
