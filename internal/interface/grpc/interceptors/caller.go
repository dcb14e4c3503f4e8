package interceptors

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	lockdv1 "github.com/lockbox-labs/lockd/api-spec/lockd/v1"
	"github.com/lockbox-labs/lockd/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type callerKey struct{}

// methods acting on behalf of an account and thus requiring the caller header.
var callerRequired = map[string]struct{}{
	lockdv1.LedgerService_Lock_FullMethodName:     {},
	lockdv1.LedgerService_Unlock_FullMethodName:   {},
	lockdv1.LedgerService_Withdraw_FullMethodName: {},
}

// CallerFromContext returns the account attached to the context by the caller
// interceptor.
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(common.Address)
	return caller, ok
}

// WithCaller attaches the given account to the context.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func unaryCallerHandler(
	ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (any, error) {
	ctx, err := withCallerFromMetadata(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func withCallerFromMetadata(ctx context.Context, fullMethod string) (context.Context, error) {
	_, required := callerRequired[fullMethod]

	values := metadata.ValueFromIncomingContext(ctx, lockdv1.CallerHeader)
	if len(values) <= 0 || strings.TrimSpace(values[0]) == "" {
		if required {
			return nil, errors.NOT_AUTHORIZED.New(
				"missing %s header", lockdv1.CallerHeader,
			)
		}
		return ctx, nil
	}
	if len(values) > 1 {
		return nil, errors.INVALID_ARGUMENT.New(
			"multiple values for %s header", lockdv1.CallerHeader,
		)
	}

	value := strings.TrimSpace(values[0])
	if !common.IsHexAddress(value) {
		return nil, errors.INVALID_ARGUMENT.New(
			"invalid %s header %q", lockdv1.CallerHeader, value,
		)
	}
	return WithCaller(ctx, common.HexToAddress(value)), nil
}
