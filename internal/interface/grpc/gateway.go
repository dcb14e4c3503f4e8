package grpcservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	lockdv1 "github.com/lockbox-labs/lockd/api-spec/lockd/v1"
	"github.com/lockbox-labs/lockd/internal/interface/grpc/interceptors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const (
	gatewayPathPrefix = "/v1/"
	callerHttpHeader  = "X-Lockd-Caller"
	maxBodySize       = 1 << 20
)

type gatewayError struct {
	Code     int32             `json:"code"`
	Name     string            `json:"name,omitempty"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// newGateway serves every LedgerService method as JSON over HTTP at
// /v1/<Method> by proxying to the gRPC server behind conn. POST requests carry
// the request as body, GET requests as query params.
func newGateway(conn *grpc.ClientConn) (*runtime.ServeMux, error) {
	callerMatcher := func(key string) (string, bool) {
		switch key {
		case callerHttpHeader:
			return lockdv1.CallerHeader, true
		default:
			return runtime.DefaultHeaderMatcher(key)
		}
	}
	gwmux := runtime.NewServeMux(
		runtime.WithIncomingHeaderMatcher(callerMatcher),
		runtime.WithHealthzEndpoint(grpchealth.NewHealthClient(conn)),
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONBuiltin{}),
		runtime.WithErrorHandler(writeGatewayError),
	)

	client := lockdv1.NewLedgerServiceClient(conn)
	routes := map[string]runtime.HandlerFunc{
		"Lock":             handleUnary(gwmux, lockdv1.LedgerService_Lock_FullMethodName, client.Lock),
		"Unlock":           handleUnary(gwmux, lockdv1.LedgerService_Unlock_FullMethodName, client.Unlock),
		"Withdraw":         handleUnary(gwmux, lockdv1.LedgerService_Withdraw_FullMethodName, client.Withdraw),
		"GetInfo":          handleUnary(gwmux, lockdv1.LedgerService_GetInfo_FullMethodName, client.GetInfo),
		"GetRecord":        handleUnary(gwmux, lockdv1.LedgerService_GetRecord_FullMethodName, client.GetRecord),
		"ListRecords":      handleUnary(gwmux, lockdv1.LedgerService_ListRecords_FullMethodName, client.ListRecords),
		"GetFeePool":       handleUnary(gwmux, lockdv1.LedgerService_GetFeePool_FullMethodName, client.GetFeePool),
		"GetRecordHistory": handleUnary(gwmux, lockdv1.LedgerService_GetRecordHistory_FullMethodName, client.GetRecordHistory),
	}
	for name, handler := range routes {
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			if err := gwmux.HandlePath(method, gatewayPathPrefix+name, handler); err != nil {
				return nil, fmt.Errorf("failed to register gateway route %s %s: %w", method, name, err)
			}
		}
	}
	return gwmux, nil
}

func handleUnary[Req any, Resp any](
	gwmux *runtime.ServeMux, fullMethod string,
	call func(context.Context, *Req, ...grpc.CallOption) (*Resp, error),
) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		inbound, outbound := runtime.MarshalerForRequest(gwmux, r)

		ctx, err := runtime.AnnotateContext(r.Context(), gwmux, r, fullMethod)
		if err != nil {
			runtime.HTTPError(r.Context(), gwmux, outbound, w, r, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		req := new(Req)
		if err := decodeRequest(inbound, r, req); err != nil {
			runtime.HTTPError(ctx, gwmux, outbound, w, r, status.Errorf(codes.InvalidArgument, "invalid request: %s", err))
			return
		}

		resp, err := call(ctx, req)
		if err != nil {
			runtime.HTTPError(ctx, gwmux, outbound, w, r, err)
			return
		}

		buf, err := outbound.Marshal(resp)
		if err != nil {
			runtime.HTTPError(ctx, gwmux, outbound, w, r, status.Errorf(codes.Internal, "failed to marshal response: %s", err))
			return
		}
		w.Header().Set("Content-Type", outbound.ContentType(resp))
		if _, err := w.Write(buf); err != nil {
			log.WithError(err).Warn("failed to write gateway response")
		}
	}
}

func decodeRequest(inbound runtime.Marshaler, r *http.Request, req any) error {
	if r.Method == http.MethodGet {
		buf, err := queryToJSON(r)
		if err != nil || len(buf) <= 0 {
			return err
		}
		return inbound.Unmarshal(buf, req)
	}

	err := inbound.NewDecoder(r.Body).Decode(req)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// queryToJSON turns the query params into a flat JSON object of strings,
// numeric request fields are encoded as strings and thus decode as well.
func queryToJSON(r *http.Request) ([]byte, error) {
	query := r.URL.Query()
	if len(query) <= 0 {
		return nil, nil
	}
	fields := make(map[string]string, len(query))
	for key, values := range query {
		if len(values) > 1 {
			return nil, fmt.Errorf("multiple values for %s", key)
		}
		fields[key] = values[0]
	}
	return json.Marshal(fields)
}

func writeGatewayError(
	_ context.Context, _ *runtime.ServeMux, marshaler runtime.Marshaler,
	w http.ResponseWriter, _ *http.Request, err error,
) {
	st := status.Convert(err)
	resp := gatewayError{
		Code:    int32(st.Code()),
		Message: st.Message(),
	}
	if info, ok := interceptors.ErrorInfo(err); ok {
		resp.Name = info.GetReason()
		resp.Metadata = info.GetMetadata()
	}

	buf, mErr := marshaler.Marshal(resp)
	if mErr != nil {
		log.WithError(mErr).Warn("failed to marshal gateway error")
		buf = []byte(`{"code":13,"message":"failed to marshal error"}`)
	}
	w.Header().Set("Content-Type", marshaler.ContentType(resp))
	w.WriteHeader(runtime.HTTPStatusFromCode(st.Code()))
	if _, err := w.Write(buf); err != nil {
		log.WithError(err).Warn("failed to write gateway error")
	}
}
