package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/pkg/errors"
)

// TokenSlots is the number of token balances a single deposit can carry.
const TokenSlots = 2

type RecordStatus uint8

const (
	RecordStatusLocked RecordStatus = iota
	RecordStatusReleased
)

func (s RecordStatus) String() string {
	return []string{
		"Locked",
		"Released",
	}[s]
}

type DepositRecord struct {
	Id             uint64
	Depositor      common.Address
	Index          uint64
	NativeAmount   uint64
	TokenAmounts   [TokenSlots]uint64
	TokenAddresses [TokenSlots]common.Address
	Duration       int64
	CreatedAt      int64
	UnlockTime     int64
	Status         RecordStatus
	ReleasedAt     int64
}

func (r DepositRecord) IsReleased() bool {
	return r.Status == RecordStatusReleased
}

func (r DepositRecord) IsMatured(now int64) bool {
	return now >= r.UnlockTime
}

// Legs returns the amounts held by the record, native first. Token slots
// pointing at the native sentinel are carried by the native amount and skipped.
func (r DepositRecord) Legs() []Leg {
	legs := make([]Leg, 0, TokenSlots+1)
	if r.NativeAmount > 0 {
		legs = append(legs, Leg{Asset: NativeAsset, Amount: r.NativeAmount})
	}
	for i, amount := range r.TokenAmounts {
		asset := NewAsset(r.TokenAddresses[i])
		if amount == 0 || asset.IsNative() {
			continue
		}
		legs = append(legs, Leg{Asset: asset, Amount: amount})
	}
	return legs
}

// Payouts returns what the depositor receives back on release, net of the fee.
func (r DepositRecord) Payouts(feePercent uint32) []Leg {
	legs := r.Legs()
	payouts := make([]Leg, 0, len(legs))
	for _, leg := range legs {
		payouts = append(payouts, Leg{
			Asset:  leg.Asset,
			Amount: mulPercent(leg.Amount, 100-feePercent),
		})
	}
	return payouts
}

// Release marks the record as released at the given time.
func (r *DepositRecord) Release(now int64) error {
	if r.IsReleased() {
		return errors.ALREADY_RELEASED.New("record %d already released", r.Id).
			WithMetadata(errors.RecordMetadata{
				Depositor: r.Depositor.Hex(),
				Index:     r.Index,
				RecordId:  r.Id,
			})
	}
	if !r.IsMatured(now) {
		return errors.TOO_EARLY.New(
			"record %d is locked until %d", r.Id, r.UnlockTime,
		).WithMetadata(errors.TooEarlyMetadata{
			RecordId:   r.Id,
			UnlockTime: r.UnlockTime,
			Now:        now,
		})
	}

	r.Status = RecordStatusReleased
	r.ReleasedAt = now
	return nil
}

func (r DepositRecord) String() string {
	return fmt.Sprintf(
		"record %d (%s #%d, %s, unlocks at %d)",
		r.Id, r.Depositor.Hex(), r.Index, r.Status, r.UnlockTime,
	)
}
