package lockdv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	LedgerService_Lock_FullMethodName             = "/lockd.v1.LedgerService/Lock"
	LedgerService_Unlock_FullMethodName           = "/lockd.v1.LedgerService/Unlock"
	LedgerService_Withdraw_FullMethodName         = "/lockd.v1.LedgerService/Withdraw"
	LedgerService_GetInfo_FullMethodName          = "/lockd.v1.LedgerService/GetInfo"
	LedgerService_GetRecord_FullMethodName        = "/lockd.v1.LedgerService/GetRecord"
	LedgerService_ListRecords_FullMethodName      = "/lockd.v1.LedgerService/ListRecords"
	LedgerService_GetFeePool_FullMethodName       = "/lockd.v1.LedgerService/GetFeePool"
	LedgerService_GetRecordHistory_FullMethodName = "/lockd.v1.LedgerService/GetRecordHistory"
)

// CallerHeader is the metadata key identifying the account on whose behalf a
// call is made.
const CallerHeader = "x-lockd-caller"

type LedgerServiceClient interface {
	Lock(ctx context.Context, in *LockRequest, opts ...grpc.CallOption) (*LockResponse, error)
	Unlock(ctx context.Context, in *UnlockRequest, opts ...grpc.CallOption) (*UnlockResponse, error)
	Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*WithdrawResponse, error)
	GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*GetInfoResponse, error)
	GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error)
	ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error)
	GetFeePool(ctx context.Context, in *GetFeePoolRequest, opts ...grpc.CallOption) (*GetFeePoolResponse, error)
	GetRecordHistory(ctx context.Context, in *GetRecordHistoryRequest, opts ...grpc.CallOption) (*GetRecordHistoryResponse, error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc}
}

func (c *ledgerServiceClient) invoke(
	ctx context.Context, method string, in, out any, opts []grpc.CallOption,
) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *ledgerServiceClient) Lock(ctx context.Context, in *LockRequest, opts ...grpc.CallOption) (*LockResponse, error) {
	out := new(LockResponse)
	if err := c.invoke(ctx, LedgerService_Lock_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) Unlock(ctx context.Context, in *UnlockRequest, opts ...grpc.CallOption) (*UnlockResponse, error) {
	out := new(UnlockResponse)
	if err := c.invoke(ctx, LedgerService_Unlock_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*WithdrawResponse, error) {
	out := new(WithdrawResponse)
	if err := c.invoke(ctx, LedgerService_Withdraw_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*GetInfoResponse, error) {
	out := new(GetInfoResponse)
	if err := c.invoke(ctx, LedgerService_GetInfo_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error) {
	out := new(GetRecordResponse)
	if err := c.invoke(ctx, LedgerService_GetRecord_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) ListRecords(ctx context.Context, in *ListRecordsRequest, opts ...grpc.CallOption) (*ListRecordsResponse, error) {
	out := new(ListRecordsResponse)
	if err := c.invoke(ctx, LedgerService_ListRecords_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) GetFeePool(ctx context.Context, in *GetFeePoolRequest, opts ...grpc.CallOption) (*GetFeePoolResponse, error) {
	out := new(GetFeePoolResponse)
	if err := c.invoke(ctx, LedgerService_GetFeePool_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) GetRecordHistory(ctx context.Context, in *GetRecordHistoryRequest, opts ...grpc.CallOption) (*GetRecordHistoryResponse, error) {
	out := new(GetRecordHistoryResponse)
	if err := c.invoke(ctx, LedgerService_GetRecordHistory_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

type LedgerServiceServer interface {
	Lock(context.Context, *LockRequest) (*LockResponse, error)
	Unlock(context.Context, *UnlockRequest) (*UnlockResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*WithdrawResponse, error)
	GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error)
	GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error)
	ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error)
	GetFeePool(context.Context, *GetFeePoolRequest) (*GetFeePoolResponse, error)
	GetRecordHistory(context.Context, *GetRecordHistoryRequest) (*GetRecordHistoryResponse, error)
}

// UnimplementedLedgerServiceServer can be embedded to have forward compatible
// implementations.
type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) Lock(context.Context, *LockRequest) (*LockResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Lock not implemented")
}
func (UnimplementedLedgerServiceServer) Unlock(context.Context, *UnlockRequest) (*UnlockResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Unlock not implemented")
}
func (UnimplementedLedgerServiceServer) Withdraw(context.Context, *WithdrawRequest) (*WithdrawResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Withdraw not implemented")
}
func (UnimplementedLedgerServiceServer) GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetInfo not implemented")
}
func (UnimplementedLedgerServiceServer) GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetRecord not implemented")
}
func (UnimplementedLedgerServiceServer) ListRecords(context.Context, *ListRecordsRequest) (*ListRecordsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListRecords not implemented")
}
func (UnimplementedLedgerServiceServer) GetFeePool(context.Context, *GetFeePoolRequest) (*GetFeePoolResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetFeePool not implemented")
}
func (UnimplementedLedgerServiceServer) GetRecordHistory(context.Context, *GetRecordHistoryRequest) (*GetRecordHistoryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetRecordHistory not implemented")
}

func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

// unaryHandler adapts a typed method of LedgerServiceServer to a grpc.MethodDesc
// handler.
func unaryHandler[Req any, Resp any](
	fullMethod string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(
		srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor,
	) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "lockd.v1.LedgerService",
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Lock",
			Handler: unaryHandler(
				LedgerService_Lock_FullMethodName, LedgerServiceServer.Lock,
			),
		},
		{
			MethodName: "Unlock",
			Handler: unaryHandler(
				LedgerService_Unlock_FullMethodName, LedgerServiceServer.Unlock,
			),
		},
		{
			MethodName: "Withdraw",
			Handler: unaryHandler(
				LedgerService_Withdraw_FullMethodName, LedgerServiceServer.Withdraw,
			),
		},
		{
			MethodName: "GetInfo",
			Handler: unaryHandler(
				LedgerService_GetInfo_FullMethodName, LedgerServiceServer.GetInfo,
			),
		},
		{
			MethodName: "GetRecord",
			Handler: unaryHandler(
				LedgerService_GetRecord_FullMethodName, LedgerServiceServer.GetRecord,
			),
		},
		{
			MethodName: "ListRecords",
			Handler: unaryHandler(
				LedgerService_ListRecords_FullMethodName, LedgerServiceServer.ListRecords,
			),
		},
		{
			MethodName: "GetFeePool",
			Handler: unaryHandler(
				LedgerService_GetFeePool_FullMethodName, LedgerServiceServer.GetFeePool,
			),
		},
		{
			MethodName: "GetRecordHistory",
			Handler: unaryHandler(
				LedgerService_GetRecordHistory_FullMethodName, LedgerServiceServer.GetRecordHistory,
			),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api-spec/lockd/v1/ledger.go",
}
