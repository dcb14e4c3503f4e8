package domain

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/pkg/errors"
)

const MaxFeePercent = 100

// Ledger is the singleton custody state: the owner, its fee terms and the
// fees accrued so far on every asset.
type Ledger struct {
	Owner        common.Address
	FeePercent   uint32
	TotalRecords uint64
	FeePools     map[Asset]uint64
	CreatedAt    int64
	UpdatedAt    int64
}

func NewLedger(owner common.Address, feePercent uint32, now int64) (*Ledger, error) {
	if feePercent > MaxFeePercent {
		return nil, errors.INVALID_ARGUMENT.New(
			"fee percent must be in range [0, %d], got %d", MaxFeePercent, feePercent,
		).WithMetadata(map[string]any{"fee_percent": feePercent})
	}
	return &Ledger{
		Owner:      owner,
		FeePercent: feePercent,
		FeePools:   make(map[Asset]uint64),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (l *Ledger) IsOwner(addr common.Address) bool {
	return l.Owner == addr
}

// Fee returns the owner's share of the given amount, truncated.
func (l *Ledger) Fee(amount uint64) uint64 {
	return mulPercent(amount, l.FeePercent)
}

func (l *Ledger) FeePool(asset Asset) uint64 {
	return l.FeePools[asset]
}

// Clone returns a deep copy so that callers can stage changes.
func (l *Ledger) Clone() *Ledger {
	clone := *l
	clone.FeePools = make(map[Asset]uint64, len(l.FeePools))
	for asset, amount := range l.FeePools {
		clone.FeePools[asset] = amount
	}
	return &clone
}

// AddDeposit validates the deposit, appends a new record for it and accrues
// the owner fee on every leg.
func (l *Ledger) AddDeposit(d Deposit, index uint64, now int64) (*DepositRecord, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if now > 0 && d.Duration > math.MaxInt64-now {
		return nil, errors.INVALID_ARGUMENT.New(
			"duration %d overflows the unlock time", d.Duration,
		).WithMetadata(map[string]any{"duration": d.Duration, "now": now})
	}

	accrued := make(map[Asset]uint64)
	for _, leg := range d.Legs() {
		fee := l.Fee(leg.Amount)
		pool := l.FeePools[leg.Asset] + accrued[leg.Asset]
		if pool > math.MaxUint64-fee {
			return nil, errors.INVALID_ARGUMENT.New(
				"fee pool of %s would overflow", leg.Asset,
			).WithMetadata(map[string]any{"asset": leg.Asset.String()})
		}
		accrued[leg.Asset] += fee
	}

	if l.FeePools == nil {
		l.FeePools = make(map[Asset]uint64)
	}
	for asset, fee := range accrued {
		if fee == 0 {
			continue
		}
		l.FeePools[asset] += fee
	}

	l.TotalRecords++
	l.UpdatedAt = now

	return &DepositRecord{
		Id:             l.TotalRecords,
		Depositor:      d.Depositor,
		Index:          index,
		NativeAmount:   d.NativeValue,
		TokenAmounts:   d.TokenAmounts,
		TokenAddresses: d.TokenAddresses,
		Duration:       d.Duration,
		CreatedAt:      now,
		UnlockTime:     now + d.Duration,
		Status:         RecordStatusLocked,
	}, nil
}

// PlanWithdrawal authorizes the caller, folds the requested amounts into one
// leg per asset (native first) and checks each leg against the accrued pool,
// then against checkLiquidity if given.
func (l *Ledger) PlanWithdrawal(w Withdrawal, checkLiquidity func(Leg) error) ([]Leg, error) {
	if !l.IsOwner(w.Caller) {
		return nil, errors.NOT_AUTHORIZED.New("only the owner can withdraw fees").
			WithMetadata(errors.CallerMetadata{Caller: w.Caller.Hex()})
	}

	legs, err := w.Legs()
	if err != nil {
		return nil, err
	}

	for _, leg := range legs {
		if err := l.CheckEntitlement(leg); err != nil {
			return nil, err
		}
		if checkLiquidity == nil || leg.Amount == 0 {
			continue
		}
		if err := checkLiquidity(leg); err != nil {
			return nil, err
		}
	}
	return legs, nil
}

func (l *Ledger) CheckEntitlement(leg Leg) error {
	available := l.FeePools[leg.Asset]
	if leg.Amount > available {
		return errors.EXCEEDS_ENTITLEMENT.New(
			"requested %d of %s but only %d accrued", leg.Amount, leg.Asset, available,
		).WithMetadata(errors.AmountMetadata{
			Asset:     leg.Asset.String(),
			Requested: leg.Amount,
			Available: available,
		})
	}
	return nil
}

// DebitFees removes the withdrawn legs from the fee pools.
func (l *Ledger) DebitFees(legs []Leg, now int64) error {
	for _, leg := range legs {
		if err := l.CheckEntitlement(leg); err != nil {
			return err
		}
	}
	for _, leg := range legs {
		if leg.Amount == 0 {
			continue
		}
		l.FeePools[leg.Asset] -= leg.Amount
	}
	l.UpdatedAt = now
	return nil
}

// Deposit is a request to lock funds.
type Deposit struct {
	Depositor      common.Address
	NativeValue    uint64
	TokenAmounts   [TokenSlots]uint64
	TokenAddresses [TokenSlots]common.Address
	Duration       int64
}

func (d Deposit) IsEmpty() bool {
	if d.NativeValue > 0 {
		return false
	}
	for _, amount := range d.TokenAmounts {
		if amount > 0 {
			return false
		}
	}
	return true
}

// Validate checks the deposit in isolation. Balance checks against the
// depositor's funds are left to the caller.
func (d Deposit) Validate() error {
	if d.IsEmpty() {
		return errors.EMPTY_DEPOSIT.New("submitted 0 token or native value")
	}
	if d.Duration < 0 {
		return errors.INVALID_ARGUMENT.New("duration must not be negative, got %d", d.Duration).
			WithMetadata(map[string]any{"duration": d.Duration})
	}

	var declared uint64
	for i, amount := range d.TokenAmounts {
		if amount == 0 || !NewAsset(d.TokenAddresses[i]).IsNative() {
			continue
		}
		if declared > math.MaxUint64-amount {
			return errors.INVALID_ARGUMENT.New("declared native amount overflows").
				WithMetadata(map[string]any{"slot": i})
		}
		declared += amount
	}
	if declared > 0 && declared > d.NativeValue {
		return errors.INSUFFICIENT_FUNDS.New(
			"token slots declare %d native but only %d was submitted",
			declared, d.NativeValue,
		).WithMetadata(errors.AmountMetadata{
			Asset:     NativeAsset.String(),
			Requested: declared,
			Available: d.NativeValue,
		})
	}
	return nil
}

// Legs returns the deposit amounts that are actually moved, native first.
// Token slots pointing at the native sentinel are carried by NativeValue.
func (d Deposit) Legs() []Leg {
	record := DepositRecord{
		NativeAmount:   d.NativeValue,
		TokenAmounts:   d.TokenAmounts,
		TokenAddresses: d.TokenAddresses,
	}
	return record.Legs()
}

// Withdrawal is a request by the owner to claim accrued fees.
type Withdrawal struct {
	Caller         common.Address
	NativeAmount   uint64
	TokenAmounts   []uint64
	TokenAddresses []common.Address
}

// Legs folds the request into one leg per asset, native first and then in
// order of first appearance. Zero legs are kept.
func (w Withdrawal) Legs() ([]Leg, error) {
	if len(w.TokenAmounts) != len(w.TokenAddresses) {
		return nil, errors.INVALID_ARGUMENT.New(
			"got %d token amounts for %d token addresses",
			len(w.TokenAmounts), len(w.TokenAddresses),
		).WithMetadata(map[string]any{
			"amounts":   len(w.TokenAmounts),
			"addresses": len(w.TokenAddresses),
		})
	}

	legs := []Leg{{Asset: NativeAsset, Amount: w.NativeAmount}}
	position := map[Asset]int{NativeAsset: 0}
	for i, amount := range w.TokenAmounts {
		asset := NewAsset(w.TokenAddresses[i])
		idx, ok := position[asset]
		if !ok {
			position[asset] = len(legs)
			legs = append(legs, Leg{Asset: asset, Amount: amount})
			continue
		}
		if legs[idx].Amount > math.MaxUint64-amount {
			return nil, errors.INVALID_ARGUMENT.New("requested amount of %s overflows", asset).
				WithMetadata(map[string]any{"asset": asset.String()})
		}
		legs[idx].Amount += amount
	}
	return legs, nil
}
