package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
)

const (
	selectLedger = `SELECT owner, fee_percent, total_records, created_at, updated_at
FROM ledger WHERE id = 1`

	selectFeePools = `SELECT asset, amount FROM fee_pool`

	upsertLedger = `INSERT INTO ledger (id, owner, fee_percent, total_records, created_at, updated_at)
VALUES (1, $1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    owner = excluded.owner,
    fee_percent = excluded.fee_percent,
    total_records = excluded.total_records,
    updated_at = excluded.updated_at`

	upsertFeePool = `INSERT INTO fee_pool (asset, amount) VALUES ($1, $2)
ON CONFLICT (asset) DO UPDATE SET amount = excluded.amount`

	upsertRecord = `INSERT INTO deposit_record (
    id, depositor, idx, native_amount,
    token_amount_0, token_address_0, token_amount_1, token_address_1,
    duration, created_at, unlock_time, released, released_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
    released = excluded.released,
    released_at = excluded.released_at`

	selectRecordColumns = `SELECT id, depositor, idx, native_amount,
    token_amount_0, token_address_0, token_amount_1, token_address_1,
    duration, created_at, unlock_time, released, released_at
FROM deposit_record`
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(config ...interface{}) (domain.LedgerRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open ledger repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &ledgerRepository{db}, nil
}

func (r *ledgerRepository) Get(ctx context.Context) (*domain.Ledger, error) {
	var (
		ledger domain.Ledger
		owner  string
	)
	err := r.db.QueryRowContext(ctx, selectLedger).Scan(
		&owner, &ledger.FeePercent, &ledger.TotalRecords, &ledger.CreatedAt, &ledger.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	ledger.Owner = common.HexToAddress(owner)

	rows, err := r.db.QueryContext(ctx, selectFeePools)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee pools: %w", err)
	}
	// nolint
	defer rows.Close()

	ledger.FeePools = make(map[domain.Asset]uint64)
	for rows.Next() {
		var (
			asset  string
			amount uint64
		)
		if err := rows.Scan(&asset, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan fee pool: %w", err)
		}
		ledger.FeePools[domain.NewAsset(common.HexToAddress(asset))] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ledger, nil
}

func (r *ledgerRepository) Apply(
	ctx context.Context, ledger domain.Ledger, records ...domain.DepositRecord,
) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, upsertLedger,
			ledger.Owner.Hex(), ledger.FeePercent, strconv.FormatUint(ledger.TotalRecords, 10),
			ledger.CreatedAt, ledger.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert ledger: %w", err)
		}

		for asset, amount := range ledger.FeePools {
			if _, err := tx.ExecContext(
				ctx, upsertFeePool, asset.Hex(), strconv.FormatUint(amount, 10),
			); err != nil {
				return fmt.Errorf("failed to upsert fee pool of %s: %w", asset, err)
			}
		}

		for _, record := range records {
			if _, err := tx.ExecContext(
				ctx, upsertRecord,
				strconv.FormatUint(record.Id, 10), record.Depositor.Hex(),
				strconv.FormatUint(record.Index, 10),
				strconv.FormatUint(record.NativeAmount, 10),
				strconv.FormatUint(record.TokenAmounts[0], 10), record.TokenAddresses[0].Hex(),
				strconv.FormatUint(record.TokenAmounts[1], 10), record.TokenAddresses[1].Hex(),
				record.Duration, record.CreatedAt, record.UnlockTime,
				record.IsReleased(), record.ReleasedAt,
			); err != nil {
				return fmt.Errorf("failed to upsert record %d: %w", record.Id, err)
			}
		}
		return nil
	})
}

func (r *ledgerRepository) GetRecord(
	ctx context.Context, depositor common.Address, index uint64,
) (*domain.DepositRecord, error) {
	records, err := r.queryRecords(
		ctx, selectRecordColumns+` WHERE depositor = $1 AND idx = $2`,
		depositor.Hex(), strconv.FormatUint(index, 10),
	)
	if err != nil {
		return nil, err
	}
	if len(records) <= 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (r *ledgerRepository) GetRecordsByDepositor(
	ctx context.Context, depositor common.Address,
) ([]domain.DepositRecord, error) {
	return r.queryRecords(
		ctx, selectRecordColumns+` WHERE depositor = $1 ORDER BY idx ASC`, depositor.Hex(),
	)
}

func (r *ledgerRepository) CountRecords(
	ctx context.Context, depositor common.Address,
) (uint64, error) {
	var count uint64
	if err := r.db.QueryRowContext(
		ctx, `SELECT COUNT(*) FROM deposit_record WHERE depositor = $1`, depositor.Hex(),
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (r *ledgerRepository) GetLockedRecords(ctx context.Context) ([]domain.DepositRecord, error) {
	return r.queryRecords(ctx, selectRecordColumns+` WHERE released = FALSE ORDER BY id ASC`)
}

func (r *ledgerRepository) Close() {
	_ = r.db.Close()
}

func (r *ledgerRepository) queryRecords(
	ctx context.Context, query string, args ...any,
) ([]domain.DepositRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	// nolint
	defer rows.Close()

	records := make([]domain.DepositRecord, 0)
	for rows.Next() {
		var (
			record                 domain.DepositRecord
			depositor              string
			tokenAddr0, tokenAddr1 string
			released               bool
		)
		if err := rows.Scan(
			&record.Id, &depositor, &record.Index, &record.NativeAmount,
			&record.TokenAmounts[0], &tokenAddr0, &record.TokenAmounts[1], &tokenAddr1,
			&record.Duration, &record.CreatedAt, &record.UnlockTime, &released, &record.ReleasedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.Depositor = common.HexToAddress(depositor)
		record.TokenAddresses[0] = common.HexToAddress(tokenAddr0)
		record.TokenAddresses[1] = common.HexToAddress(tokenAddr1)
		record.Status = domain.RecordStatusLocked
		if released {
			record.Status = domain.RecordStatusReleased
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
