package application

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()
	// Initialize creates the ledger on first start. If a ledger already
	// exists its stored configuration is kept.
	Initialize(ctx context.Context, owner common.Address, feePercent uint32) error
	Lock(ctx context.Context, req LockRequest) (uint64, error)
	Unlock(ctx context.Context, req UnlockRequest) (*UnlockResult, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error)
	GetInfo(ctx context.Context) (*LedgerInfo, error)
	FeePercent(ctx context.Context) (uint32, error)
	TotalRecordsCreated(ctx context.Context) (uint64, error)
	GetRecord(ctx context.Context, depositor common.Address, index uint64) (*domain.DepositRecord, error)
	ListRecords(ctx context.Context, depositor common.Address) ([]domain.DepositRecord, error)
	GetFeePool(ctx context.Context, asset domain.Asset) (uint64, error)
	GetRecordHistory(ctx context.Context, recordId uint64) ([]domain.Event, error)
}

type LockRequest struct {
	Depositor      common.Address
	TokenAmounts   [domain.TokenSlots]uint64
	TokenAddresses [domain.TokenSlots]common.Address
	// Duration is expressed in seconds.
	Duration    int64
	NativeValue uint64
}

type UnlockRequest struct {
	Caller common.Address
	Index  uint64
}

type UnlockResult struct {
	RecordId uint64
	Payouts  []domain.Leg
}

type WithdrawRequest struct {
	Caller         common.Address
	NativeAmount   uint64
	TokenAmounts   []uint64
	TokenAddresses []common.Address
}

type WithdrawResult struct {
	Amounts []domain.Leg
}

type LedgerInfo struct {
	Owner        common.Address
	FeePercent   uint32
	TotalRecords uint64
	Custody      common.Address
	FeePools     map[domain.Asset]uint64
	CreatedAt    int64
}
