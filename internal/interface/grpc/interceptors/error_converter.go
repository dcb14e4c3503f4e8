package interceptors

import (
	"context"
	"errors"

	lockerrors "github.com/lockbox-labs/lockd/pkg/errors"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const errorDomain = "lockd"

// gRPCError wraps a typed error and implements GRPCStatus so that the server
// returns the mapped status code with an ErrorInfo detail attached.
type gRPCError struct {
	err lockerrors.Error
}

func (e gRPCError) Error() string {
	return e.err.Error()
}

func (e gRPCError) Unwrap() error {
	return e.err
}

func (e gRPCError) GRPCStatus() *status.Status {
	st := status.New(e.err.GrpcCode(), e.err.Error())

	stWithDetails, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   e.err.CodeName(),
		Domain:   errorDomain,
		Metadata: e.err.Metadata(),
	})
	if err != nil {
		return st
	}
	return stWithDetails
}

func errorConverter(
	ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		var structuredErr lockerrors.Error
		if errors.As(err, &structuredErr) {
			return nil, gRPCError{structuredErr}
		}
	}
	return resp, err
}

// ErrorInfo extracts the typed error name and metadata from a status error
// returned by the server. The boolean is false when the error carries none.
func ErrorInfo(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == errorDomain {
			return info, true
		}
	}
	return nil, false
}
