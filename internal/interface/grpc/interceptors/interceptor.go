package interceptors

import (
	middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
)

// UnaryInterceptor returns the unary interceptors of the gRPC server.
func UnaryInterceptor(readiness *ReadinessService) grpc.ServerOption {
	return grpc.UnaryInterceptor(UnaryServerChain(readiness))
}

// StreamInterceptor returns the stream interceptors of the gRPC server.
func StreamInterceptor(readiness *ReadinessService) grpc.ServerOption {
	return grpc.StreamInterceptor(
		middleware.ChainStreamServer(
			streamPanicHandler,
			streamLogger,
			streamReadinessHandler(readiness),
		),
	)
}

// UnaryServerChain returns the unary interceptors folded into one, it is
// shared by the gRPC server and the HTTP gateway. errorConverter wraps the
// whole chain so that recovered panics are mapped too.
func UnaryServerChain(readiness *ReadinessService) grpc.UnaryServerInterceptor {
	return middleware.ChainUnaryServer(
		errorConverter,
		unaryPanicHandler,
		unaryLogger,
		unaryReadinessHandler(readiness),
		unaryCallerHandler,
	)
}
