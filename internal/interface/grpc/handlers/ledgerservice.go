package handlers

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	lockdv1 "github.com/lockbox-labs/lockd/api-spec/lockd/v1"
	"github.com/lockbox-labs/lockd/internal/core/application"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/interface/grpc/interceptors"
	"github.com/lockbox-labs/lockd/pkg/errors"
)

type handler struct {
	version string

	svc application.Service
}

func NewLedgerServiceHandler(version string, service application.Service) lockdv1.LedgerServiceServer {
	return &handler{
		version: version,
		svc:     service,
	}
}

func (h *handler) Lock(
	ctx context.Context, req *lockdv1.LockRequest,
) (*lockdv1.LockResponse, error) {
	depositor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	amounts, addresses, err := parseLockTokens(req.Tokens)
	if err != nil {
		return nil, errors.INVALID_ARGUMENT.Wrap(err)
	}

	recordId, err := h.svc.Lock(ctx, application.LockRequest{
		Depositor:      depositor,
		TokenAmounts:   amounts,
		TokenAddresses: addresses,
		Duration:       req.DurationSeconds,
		NativeValue:    req.NativeValue,
	})
	if err != nil {
		return nil, err
	}

	return &lockdv1.LockResponse{RecordId: recordId}, nil
}

func (h *handler) Unlock(
	ctx context.Context, req *lockdv1.UnlockRequest,
) (*lockdv1.UnlockResponse, error) {
	depositor, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.Unlock(ctx, application.UnlockRequest{
		Caller: depositor,
		Index:  req.Index,
	})
	if err != nil {
		return nil, err
	}

	return &lockdv1.UnlockResponse{
		RecordId: result.RecordId,
		Payouts:  legList(result.Payouts).toProto(),
	}, nil
}

func (h *handler) Withdraw(
	ctx context.Context, req *lockdv1.WithdrawRequest,
) (*lockdv1.WithdrawResponse, error) {
	owner, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	amounts, addresses, err := parseWithdrawTokens(req.Tokens)
	if err != nil {
		return nil, errors.INVALID_ARGUMENT.Wrap(err)
	}

	result, err := h.svc.Withdraw(ctx, application.WithdrawRequest{
		Caller:         owner,
		NativeAmount:   req.NativeAmount,
		TokenAmounts:   amounts,
		TokenAddresses: addresses,
	})
	if err != nil {
		return nil, err
	}

	return &lockdv1.WithdrawResponse{Amounts: legList(result.Amounts).toProto()}, nil
}

func (h *handler) GetInfo(
	ctx context.Context, _ *lockdv1.GetInfoRequest,
) (*lockdv1.GetInfoResponse, error) {
	info, err := h.svc.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &lockdv1.GetInfoResponse{
		Version:      h.version,
		Owner:        info.Owner.Hex(),
		FeePercent:   info.FeePercent,
		TotalRecords: info.TotalRecords,
		Custody:      info.Custody.Hex(),
		FeePools:     feePools(info.FeePools).toProto(),
		CreatedAt:    info.CreatedAt,
	}, nil
}

func (h *handler) GetRecord(
	ctx context.Context, req *lockdv1.GetRecordRequest,
) (*lockdv1.GetRecordResponse, error) {
	depositor, err := depositorOrCaller(ctx, req.Depositor)
	if err != nil {
		return nil, err
	}

	r, err := h.svc.GetRecord(ctx, depositor, req.Index)
	if err != nil {
		return nil, err
	}

	return &lockdv1.GetRecordResponse{Record: record(*r).toProto()}, nil
}

func (h *handler) ListRecords(
	ctx context.Context, req *lockdv1.ListRecordsRequest,
) (*lockdv1.ListRecordsResponse, error) {
	depositor, err := depositorOrCaller(ctx, req.Depositor)
	if err != nil {
		return nil, err
	}

	records, err := h.svc.ListRecords(ctx, depositor)
	if err != nil {
		return nil, err
	}

	return &lockdv1.ListRecordsResponse{Records: recordList(records).toProto()}, nil
}

func (h *handler) GetFeePool(
	ctx context.Context, req *lockdv1.GetFeePoolRequest,
) (*lockdv1.GetFeePoolResponse, error) {
	asset, err := domain.ParseAsset(req.Asset)
	if err != nil {
		return nil, errors.INVALID_ARGUMENT.Wrap(err)
	}

	amount, err := h.svc.GetFeePool(ctx, asset)
	if err != nil {
		return nil, err
	}

	return &lockdv1.GetFeePoolResponse{
		Asset:  asset.String(),
		Amount: amount,
	}, nil
}

func (h *handler) GetRecordHistory(
	ctx context.Context, req *lockdv1.GetRecordHistoryRequest,
) (*lockdv1.GetRecordHistoryResponse, error) {
	events, err := h.svc.GetRecordHistory(ctx, req.RecordId)
	if err != nil {
		return nil, err
	}

	return &lockdv1.GetRecordHistoryResponse{Events: eventList(events).toProto()}, nil
}

func caller(ctx context.Context) (common.Address, error) {
	addr, ok := interceptors.CallerFromContext(ctx)
	if !ok {
		return common.Address{}, errors.NOT_AUTHORIZED.New(
			"missing %s header", lockdv1.CallerHeader,
		)
	}
	return addr, nil
}

// depositorOrCaller falls back to the caller when the depositor is omitted.
func depositorOrCaller(ctx context.Context, depositor string) (common.Address, error) {
	if len(strings.TrimSpace(depositor)) <= 0 {
		return caller(ctx)
	}
	addr, err := parseAddress(depositor, "depositor")
	if err != nil {
		return common.Address{}, errors.INVALID_ARGUMENT.Wrap(err)
	}
	return addr, nil
}
