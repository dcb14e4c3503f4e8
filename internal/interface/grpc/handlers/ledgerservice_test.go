package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	lockdv1 "github.com/lockbox-labs/lockd/api-spec/lockd/v1"
	"github.com/lockbox-labs/lockd/internal/core/application"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/interface/grpc/interceptors"
	"github.com/lockbox-labs/lockd/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	owner   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	alice   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	custody = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	tokenA  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	tokenB  = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

func TestLock(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Lock", mock.Anything, application.LockRequest{
			Depositor:      alice,
			TokenAmounts:   [domain.TokenSlots]uint64{500, 0},
			TokenAddresses: [domain.TokenSlots]common.Address{tokenA, {}},
			Duration:       60,
			NativeValue:    1000,
		}).Return(uint64(7), nil)
		h := NewLedgerServiceHandler("test", svc)

		resp, err := h.Lock(interceptors.WithCaller(context.Background(), alice), &lockdv1.LockRequest{
			Tokens: []lockdv1.TokenAmount{
				{Address: tokenA.Hex(), Amount: 500},
				{Address: "native", Amount: 0},
			},
			DurationSeconds: 60,
			NativeValue:     1000,
		})
		require.NoError(t, err)
		require.Equal(t, uint64(7), resp.RecordId)
		svc.AssertExpectations(t)
	})

	t.Run("invalid", func(t *testing.T) {
		h := NewLedgerServiceHandler("test", &mockService{})

		_, err := h.Lock(context.Background(), &lockdv1.LockRequest{NativeValue: 1})
		require.True(t, errors.NOT_AUTHORIZED.Is(err))

		ctx := interceptors.WithCaller(context.Background(), alice)
		_, err = h.Lock(ctx, &lockdv1.LockRequest{
			Tokens: []lockdv1.TokenAmount{
				{Address: tokenA.Hex(), Amount: 1},
				{Address: tokenB.Hex(), Amount: 1},
				{Address: tokenA.Hex(), Amount: 1},
			},
		})
		require.True(t, errors.INVALID_ARGUMENT.Is(err))

		_, err = h.Lock(ctx, &lockdv1.LockRequest{
			Tokens: []lockdv1.TokenAmount{{Address: "0xnope", Amount: 1}},
		})
		require.True(t, errors.INVALID_ARGUMENT.Is(err))
	})

	t.Run("service error is returned as is", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Lock", mock.Anything, mock.Anything).
			Return(uint64(0), errors.EMPTY_DEPOSIT.New("nothing to lock"))
		h := NewLedgerServiceHandler("test", svc)

		_, err := h.Lock(interceptors.WithCaller(context.Background(), alice), &lockdv1.LockRequest{})
		require.True(t, errors.EMPTY_DEPOSIT.Is(err))
	})
}

func TestUnlock(t *testing.T) {
	svc := &mockService{}
	svc.On("Unlock", mock.Anything, application.UnlockRequest{Caller: alice, Index: 3}).
		Return(&application.UnlockResult{
			RecordId: 9,
			Payouts: []domain.Leg{
				{Asset: domain.NativeAsset, Amount: 950},
				{Asset: domain.NewAsset(tokenA), Amount: 475},
			},
		}, nil)
	h := NewLedgerServiceHandler("test", svc)

	resp, err := h.Unlock(
		interceptors.WithCaller(context.Background(), alice), &lockdv1.UnlockRequest{Index: 3},
	)
	require.NoError(t, err)
	require.Equal(t, uint64(9), resp.RecordId)
	require.Equal(t, []lockdv1.AssetAmount{
		{Asset: "native", Amount: 950},
		{Asset: tokenA.Hex(), Amount: 475},
	}, resp.Payouts)
}

func TestWithdraw(t *testing.T) {
	svc := &mockService{}
	svc.On("Withdraw", mock.Anything, application.WithdrawRequest{
		Caller:         owner,
		NativeAmount:   30,
		TokenAmounts:   []uint64{5},
		TokenAddresses: []common.Address{tokenA},
	}).Return(&application.WithdrawResult{
		Amounts: []domain.Leg{
			{Asset: domain.NativeAsset, Amount: 30},
			{Asset: domain.NewAsset(tokenA), Amount: 5},
		},
	}, nil)
	h := NewLedgerServiceHandler("test", svc)

	resp, err := h.Withdraw(interceptors.WithCaller(context.Background(), owner), &lockdv1.WithdrawRequest{
		NativeAmount: 30,
		Tokens:       []lockdv1.TokenAmount{{Address: tokenA.Hex(), Amount: 5}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Amounts, 2)
	svc.AssertExpectations(t)
}

func TestGetInfo(t *testing.T) {
	svc := &mockService{}
	svc.On("GetInfo", mock.Anything).Return(&application.LedgerInfo{
		Owner:        owner,
		FeePercent:   5,
		TotalRecords: 2,
		Custody:      custody,
		FeePools: map[domain.Asset]uint64{
			domain.NewAsset(tokenB): 3,
			domain.NewAsset(tokenA): 2,
			domain.NativeAsset:      50,
		},
		CreatedAt: 1_700_000_000,
	}, nil)
	h := NewLedgerServiceHandler("v0.1.0", svc)

	resp, err := h.GetInfo(context.Background(), &lockdv1.GetInfoRequest{})
	require.NoError(t, err)
	require.Equal(t, "v0.1.0", resp.Version)
	require.Equal(t, owner.Hex(), resp.Owner)
	require.Equal(t, custody.Hex(), resp.Custody)
	require.Equal(t, []lockdv1.AssetAmount{
		{Asset: "native", Amount: 50},
		{Asset: tokenA.Hex(), Amount: 2},
		{Asset: tokenB.Hex(), Amount: 3},
	}, resp.FeePools)
}

func TestGetRecord(t *testing.T) {
	r := domain.DepositRecord{
		Id:             4,
		Depositor:      alice,
		Index:          1,
		NativeAmount:   1000,
		TokenAmounts:   [domain.TokenSlots]uint64{0, 20},
		TokenAddresses: [domain.TokenSlots]common.Address{{}, tokenB},
		Duration:       60,
		CreatedAt:      100,
		UnlockTime:     160,
		Status:         domain.RecordStatusReleased,
		ReleasedAt:     170,
	}
	svc := &mockService{}
	svc.On("GetRecord", mock.Anything, alice, uint64(1)).Return(&r, nil)
	svc.On("GetRecord", mock.Anything, owner, uint64(1)).
		Return(nil, errors.NO_SUCH_RECORD.New("no record"))
	h := NewLedgerServiceHandler("test", svc)

	t.Run("explicit depositor", func(t *testing.T) {
		resp, err := h.GetRecord(context.Background(), &lockdv1.GetRecordRequest{
			Depositor: alice.Hex(), Index: 1,
		})
		require.NoError(t, err)
		require.Equal(t, &lockdv1.Record{
			Id:           4,
			Depositor:    alice.Hex(),
			Index:        1,
			NativeAmount: 1000,
			Tokens: []lockdv1.TokenAmount{
				{Address: "native", Amount: 0},
				{Address: tokenB.Hex(), Amount: 20},
			},
			DurationSeconds: 60,
			CreatedAt:       100,
			UnlockTime:      160,
			Released:        true,
			ReleasedAt:      170,
		}, resp.Record)
	})

	t.Run("caller as depositor", func(t *testing.T) {
		_, err := h.GetRecord(
			interceptors.WithCaller(context.Background(), owner), &lockdv1.GetRecordRequest{Index: 1},
		)
		require.True(t, errors.NO_SUCH_RECORD.Is(err))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := h.GetRecord(context.Background(), &lockdv1.GetRecordRequest{Index: 1})
		require.True(t, errors.NOT_AUTHORIZED.Is(err))

		_, err = h.GetRecord(context.Background(), &lockdv1.GetRecordRequest{Depositor: "alice"})
		require.True(t, errors.INVALID_ARGUMENT.Is(err))
	})
}

func TestListRecords(t *testing.T) {
	svc := &mockService{}
	svc.On("ListRecords", mock.Anything, alice).Return([]domain.DepositRecord{
		{Id: 1, Depositor: alice, Index: 0, NativeAmount: 10},
		{Id: 5, Depositor: alice, Index: 1, NativeAmount: 20},
	}, nil)
	h := NewLedgerServiceHandler("test", svc)

	resp, err := h.ListRecords(context.Background(), &lockdv1.ListRecordsRequest{Depositor: alice.Hex()})
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)
	require.Equal(t, uint64(0), resp.Records[0].Index)
	require.Equal(t, uint64(1), resp.Records[1].Index)
	require.False(t, resp.Records[1].Released)
}

func TestGetFeePool(t *testing.T) {
	svc := &mockService{}
	svc.On("GetFeePool", mock.Anything, domain.NativeAsset).Return(uint64(50), nil)
	svc.On("GetFeePool", mock.Anything, domain.NewAsset(tokenA)).Return(uint64(0), nil)
	h := NewLedgerServiceHandler("test", svc)

	resp, err := h.GetFeePool(context.Background(), &lockdv1.GetFeePoolRequest{})
	require.NoError(t, err)
	require.Equal(t, &lockdv1.GetFeePoolResponse{Asset: "native", Amount: 50}, resp)

	resp, err = h.GetFeePool(context.Background(), &lockdv1.GetFeePoolRequest{Asset: tokenA.Hex()})
	require.NoError(t, err)
	require.Zero(t, resp.Amount)

	_, err = h.GetFeePool(context.Background(), &lockdv1.GetFeePoolRequest{Asset: "nope"})
	require.True(t, errors.INVALID_ARGUMENT.Is(err))
}

func TestGetRecordHistory(t *testing.T) {
	r := domain.DepositRecord{Id: 3, Depositor: alice, NativeAmount: 1000, CreatedAt: 100}
	deposited := domain.NewDeposited(r)
	svc := &mockService{}
	svc.On("GetRecordHistory", mock.Anything, uint64(3)).Return([]domain.Event{deposited}, nil)
	h := NewLedgerServiceHandler("test", svc)

	resp, err := h.GetRecordHistory(context.Background(), &lockdv1.GetRecordHistoryRequest{RecordId: 3})
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	require.Equal(t, deposited.Id, resp.Events[0].Id)
	require.Equal(t, "Deposited", resp.Events[0].Type)
	require.Equal(t, int64(100), resp.Events[0].Timestamp)

	event, err := domain.UnmarshalEvent(resp.Events[0].Data)
	require.NoError(t, err)
	require.Equal(t, deposited, event)

	buf, err := json.Marshal(resp)
	require.NoError(t, err)
	require.Contains(t, string(buf), `"timestamp":"100"`)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) Start() error { return nil }
func (m *mockService) Stop()        {}

func (m *mockService) Initialize(ctx context.Context, owner common.Address, feePercent uint32) error {
	args := m.Called(ctx, owner, feePercent)
	return args.Error(0)
}

func (m *mockService) Lock(ctx context.Context, req application.LockRequest) (uint64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockService) Unlock(
	ctx context.Context, req application.UnlockRequest,
) (*application.UnlockResult, error) {
	args := m.Called(ctx, req)
	var res *application.UnlockResult
	if a := args.Get(0); a != nil {
		res = a.(*application.UnlockResult)
	}
	return res, args.Error(1)
}

func (m *mockService) Withdraw(
	ctx context.Context, req application.WithdrawRequest,
) (*application.WithdrawResult, error) {
	args := m.Called(ctx, req)
	var res *application.WithdrawResult
	if a := args.Get(0); a != nil {
		res = a.(*application.WithdrawResult)
	}
	return res, args.Error(1)
}

func (m *mockService) GetInfo(ctx context.Context) (*application.LedgerInfo, error) {
	args := m.Called(ctx)
	var res *application.LedgerInfo
	if a := args.Get(0); a != nil {
		res = a.(*application.LedgerInfo)
	}
	return res, args.Error(1)
}

func (m *mockService) FeePercent(ctx context.Context) (uint32, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *mockService) TotalRecordsCreated(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockService) GetRecord(
	ctx context.Context, depositor common.Address, index uint64,
) (*domain.DepositRecord, error) {
	args := m.Called(ctx, depositor, index)
	var res *domain.DepositRecord
	if a := args.Get(0); a != nil {
		res = a.(*domain.DepositRecord)
	}
	return res, args.Error(1)
}

func (m *mockService) ListRecords(
	ctx context.Context, depositor common.Address,
) ([]domain.DepositRecord, error) {
	args := m.Called(ctx, depositor)
	var res []domain.DepositRecord
	if a := args.Get(0); a != nil {
		res = a.([]domain.DepositRecord)
	}
	return res, args.Error(1)
}

func (m *mockService) GetFeePool(ctx context.Context, asset domain.Asset) (uint64, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockService) GetRecordHistory(ctx context.Context, recordId uint64) ([]domain.Event, error) {
	args := m.Called(ctx, recordId)
	var res []domain.Event
	if a := args.Get(0); a != nil {
		res = a.([]domain.Event)
	}
	return res, args.Error(1)
}
