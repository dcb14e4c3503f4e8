package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type LedgerRepository interface {
	// Get returns nil if the ledger was never initialized.
	Get(ctx context.Context) (*Ledger, error)
	// Apply persists the ledger together with the given records atomically.
	Apply(ctx context.Context, ledger Ledger, records ...DepositRecord) error
	// GetRecord returns nil if the depositor has no record at the given index.
	GetRecord(ctx context.Context, depositor common.Address, index uint64) (*DepositRecord, error)
	GetRecordsByDepositor(ctx context.Context, depositor common.Address) ([]DepositRecord, error)
	CountRecords(ctx context.Context, depositor common.Address) (uint64, error)
	GetLockedRecords(ctx context.Context) ([]DepositRecord, error)
	Close()
}

type EventRepository interface {
	Save(ctx context.Context, events ...Event) error
	// History returns the events of a record in publication order. Only
	// available on durable buses.
	History(ctx context.Context, recordId uint64) ([]Event, error)
	RegisterEventsHandler(topic string, handler func(events []Event))
	ClearRegisteredHandlers(topics ...string)
	Close()
}
