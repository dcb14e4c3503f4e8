package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/lockbox-labs/lockd/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// recoverPanic turns a panic raised by the handler of the given method into an
// INTERNAL_ERROR.
func recoverPanic(method string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	log.WithFields(log.Fields{
		"method": method,
		"panic":  r,
	}).Errorf("recovered from panic in handler\n%s", debug.Stack())
	*err = errors.INTERNAL_ERROR.New("internal error while serving %s", method)
}

func unaryPanicHandler(
	ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (resp any, err error) {
	defer recoverPanic(info.FullMethod, &err)
	return handler(ctx, req)
}

func streamPanicHandler(
	srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler,
) (err error) {
	defer recoverPanic(info.FullMethod, &err)
	return handler(srv, stream)
}
