package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	ledgerStoreDir = "ledger"
	ledgerKey      = "ledger"
)

type ledgerRepository struct {
	store *badgerhold.Store
}

type ledgerDTO struct {
	Owner        string
	FeePercent   uint32
	TotalRecords uint64
	FeePools     map[string]uint64
	CreatedAt    int64
	UpdatedAt    int64
}

type recordDTO struct {
	Id             uint64
	Depositor      string
	Index          uint64
	NativeAmount   uint64
	TokenAmounts   []uint64
	TokenAddresses []string
	Duration       int64
	CreatedAt      int64
	UnlockTime     int64
	Released       bool
	ReleasedAt     int64
}

func NewLedgerRepository(config ...interface{}) (domain.LedgerRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, ledgerStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %s", err)
	}

	return &ledgerRepository{store}, nil
}

func (r *ledgerRepository) Get(_ context.Context) (*domain.Ledger, error) {
	var dto ledgerDTO
	err := r.store.Get(ledgerKey, &dto)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	return dto.toLedger(), nil
}

func (r *ledgerRepository) Apply(
	_ context.Context, ledger domain.Ledger, records ...domain.DepositRecord,
) error {
	ledgerDto := toLedgerDTO(ledger)
	return withRetry(r.store, func(tx *badger.Txn) error {
		if err := r.store.TxUpsert(tx, ledgerKey, ledgerDto); err != nil {
			return fmt.Errorf("failed to upsert ledger: %w", err)
		}
		for _, record := range records {
			if err := r.store.TxUpsert(tx, record.Id, toRecordDTO(record)); err != nil {
				return fmt.Errorf("failed to upsert record %d: %w", record.Id, err)
			}
		}
		return nil
	})
}

func (r *ledgerRepository) GetRecord(
	_ context.Context, depositor common.Address, index uint64,
) (*domain.DepositRecord, error) {
	query := badgerhold.Where("Depositor").Eq(depositor.Hex()).And("Index").Eq(index)
	records, err := r.findRecords(query)
	if err != nil {
		return nil, err
	}
	if len(records) <= 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (r *ledgerRepository) GetRecordsByDepositor(
	_ context.Context, depositor common.Address,
) ([]domain.DepositRecord, error) {
	query := badgerhold.Where("Depositor").Eq(depositor.Hex()).SortBy("Index")
	return r.findRecords(query)
}

func (r *ledgerRepository) CountRecords(
	_ context.Context, depositor common.Address,
) (uint64, error) {
	query := badgerhold.Where("Depositor").Eq(depositor.Hex())
	count, err := r.store.Count(&recordDTO{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (r *ledgerRepository) GetLockedRecords(_ context.Context) ([]domain.DepositRecord, error) {
	query := badgerhold.Where("Released").Eq(false).SortBy("Id")
	return r.findRecords(query)
}

func (r *ledgerRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *ledgerRepository) findRecords(query *badgerhold.Query) ([]domain.DepositRecord, error) {
	var dtos []recordDTO
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, fmt.Errorf("failed to find records: %w", err)
	}
	records := make([]domain.DepositRecord, 0, len(dtos))
	for _, dto := range dtos {
		records = append(records, dto.toRecord())
	}
	return records, nil
}

func toLedgerDTO(ledger domain.Ledger) ledgerDTO {
	feePools := make(map[string]uint64, len(ledger.FeePools))
	for asset, amount := range ledger.FeePools {
		feePools[asset.Hex()] = amount
	}
	return ledgerDTO{
		Owner:        ledger.Owner.Hex(),
		FeePercent:   ledger.FeePercent,
		TotalRecords: ledger.TotalRecords,
		FeePools:     feePools,
		CreatedAt:    ledger.CreatedAt,
		UpdatedAt:    ledger.UpdatedAt,
	}
}

func (d ledgerDTO) toLedger() *domain.Ledger {
	feePools := make(map[domain.Asset]uint64, len(d.FeePools))
	for asset, amount := range d.FeePools {
		feePools[domain.NewAsset(common.HexToAddress(asset))] = amount
	}
	return &domain.Ledger{
		Owner:        common.HexToAddress(d.Owner),
		FeePercent:   d.FeePercent,
		TotalRecords: d.TotalRecords,
		FeePools:     feePools,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func toRecordDTO(record domain.DepositRecord) recordDTO {
	addresses := make([]string, 0, domain.TokenSlots)
	for _, addr := range record.TokenAddresses {
		addresses = append(addresses, addr.Hex())
	}
	return recordDTO{
		Id:             record.Id,
		Depositor:      record.Depositor.Hex(),
		Index:          record.Index,
		NativeAmount:   record.NativeAmount,
		TokenAmounts:   record.TokenAmounts[:],
		TokenAddresses: addresses,
		Duration:       record.Duration,
		CreatedAt:      record.CreatedAt,
		UnlockTime:     record.UnlockTime,
		Released:       record.IsReleased(),
		ReleasedAt:     record.ReleasedAt,
	}
}

func (d recordDTO) toRecord() domain.DepositRecord {
	record := domain.DepositRecord{
		Id:           d.Id,
		Depositor:    common.HexToAddress(d.Depositor),
		Index:        d.Index,
		NativeAmount: d.NativeAmount,
		Duration:     d.Duration,
		CreatedAt:    d.CreatedAt,
		UnlockTime:   d.UnlockTime,
		Status:       domain.RecordStatusLocked,
		ReleasedAt:   d.ReleasedAt,
	}
	copy(record.TokenAmounts[:], d.TokenAmounts)
	for i := 0; i < len(d.TokenAddresses) && i < domain.TokenSlots; i++ {
		record.TokenAddresses[i] = common.HexToAddress(d.TokenAddresses[i])
	}
	if d.Released {
		record.Status = domain.RecordStatusReleased
	}
	return record
}
