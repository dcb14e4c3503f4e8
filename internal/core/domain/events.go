package domain

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const LedgerTopic = "ledger"

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypeDeposited
	EventTypeUnlocked
	EventTypeWithdrawn
	EventTypeMatured
)

func (t EventType) String() string {
	return []string{
		"Undefined",
		"Deposited",
		"Unlocked",
		"Withdrawn",
		"Matured",
	}[t]
}

type Event interface {
	GetTopic() string
	GetType() EventType
}

type LedgerEvent struct {
	Id        string
	Type      EventType
	Timestamp int64
}

func (e LedgerEvent) GetTopic() string   { return LedgerTopic }
func (e LedgerEvent) GetType() EventType { return e.Type }

func newLedgerEvent(typ EventType, timestamp int64) LedgerEvent {
	return LedgerEvent{
		Id:        uuid.New().String(),
		Type:      typ,
		Timestamp: timestamp,
	}
}

type Deposited struct {
	LedgerEvent
	RecordId  uint64
	Depositor common.Address
	Duration  int64
	Amounts   []Leg
}

type Unlocked struct {
	LedgerEvent
	RecordId  uint64
	Depositor common.Address
	Duration  int64
	Payouts   []Leg
}

type Withdrawn struct {
	LedgerEvent
	Owner   common.Address
	Amounts []Leg
}

// Matured is emitted once a locked record reaches its unlock time.
type Matured struct {
	LedgerEvent
	RecordId   uint64
	Depositor  common.Address
	UnlockTime int64
}

func NewDeposited(record DepositRecord) Deposited {
	return Deposited{
		LedgerEvent: newLedgerEvent(EventTypeDeposited, record.CreatedAt),
		RecordId:    record.Id,
		Depositor:   record.Depositor,
		Duration:    record.Duration,
		Amounts:     record.Legs(),
	}
}

func NewUnlocked(record DepositRecord, payouts []Leg) Unlocked {
	return Unlocked{
		LedgerEvent: newLedgerEvent(EventTypeUnlocked, record.ReleasedAt),
		RecordId:    record.Id,
		Depositor:   record.Depositor,
		Duration:    record.Duration,
		Payouts:     payouts,
	}
}

func NewWithdrawn(owner common.Address, amounts []Leg, timestamp int64) Withdrawn {
	return Withdrawn{
		LedgerEvent: newLedgerEvent(EventTypeWithdrawn, timestamp),
		Owner:       owner,
		Amounts:     amounts,
	}
}

func NewMatured(record DepositRecord, timestamp int64) Matured {
	return Matured{
		LedgerEvent: newLedgerEvent(EventTypeMatured, timestamp),
		RecordId:    record.Id,
		Depositor:   record.Depositor,
		UnlockTime:  record.UnlockTime,
	}
}

// UnmarshalEvent decodes the JSON form of any ledger event into its concrete
// type.
func UnmarshalEvent(buf []byte) (Event, error) {
	var eventType struct {
		Type EventType
	}
	if err := json.Unmarshal(buf, &eventType); err != nil {
		return nil, err
	}

	switch eventType.Type {
	case EventTypeDeposited:
		var event Deposited
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	case EventTypeUnlocked:
		var event Unlocked
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	case EventTypeWithdrawn:
		var event Withdrawn
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	case EventTypeMatured:
		var event Matured
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	}

	return nil, fmt.Errorf("unknown event type %d", eventType.Type)
}
