package inmemorybank

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
)

type bank struct {
	lock     sync.RWMutex
	custody  common.Address
	balances map[domain.Asset]map[common.Address]uint64
	genesis  bool
}

func NewBank(custody common.Address) ports.AssetService {
	return &bank{
		custody:  custody,
		balances: make(map[domain.Asset]map[common.Address]uint64),
	}
}

func (b *bank) Asset(asset domain.Asset) ports.Asset {
	return &assetHandle{b, asset}
}

func (b *bank) Custody() common.Address {
	return b.custody
}

func (b *bank) Mint(
	_ context.Context, asset domain.Asset, holder common.Address, amount uint64,
) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	balances := b.balancesOf(asset)
	if balances[holder] > math.MaxUint64-amount {
		return fmt.Errorf("balance of %s in %s would overflow", holder.Hex(), asset)
	}
	balances[holder] += amount
	return nil
}

func (b *bank) Genesis(_ context.Context, balances []ports.Balance) (bool, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.genesis {
		return false, nil
	}

	updated := make(map[domain.Asset]map[common.Address]uint64)
	for _, bal := range balances {
		if _, ok := updated[bal.Asset]; !ok {
			updated[bal.Asset] = make(map[common.Address]uint64)
		}
		current, ok := updated[bal.Asset][bal.Holder]
		if !ok {
			current = b.balances[bal.Asset][bal.Holder]
		}
		if current > math.MaxUint64-bal.Amount {
			return false, fmt.Errorf(
				"balance of %s in %s would overflow", bal.Holder.Hex(), bal.Asset,
			)
		}
		updated[bal.Asset][bal.Holder] = current + bal.Amount
	}

	for asset, holders := range updated {
		current := b.balancesOf(asset)
		for holder, amount := range holders {
			current[holder] = amount
		}
	}
	b.genesis = true
	return true, nil
}

func (b *bank) Close() {}

func (b *bank) move(asset domain.Asset, from, to common.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	balances := b.balancesOf(asset)
	if balances[from] < amount {
		return fmt.Errorf(
			"%w: %s holds %d of %s, need %d",
			ports.ErrInsufficientBalance, from.Hex(), balances[from], asset, amount,
		)
	}
	if balances[to] > math.MaxUint64-amount {
		return fmt.Errorf("balance of %s in %s would overflow", to.Hex(), asset)
	}

	balances[from] -= amount
	balances[to] += amount
	return nil
}

func (b *bank) balanceOf(asset domain.Asset, holder common.Address) uint64 {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.balances[asset][holder]
}

// balancesOf must be called with the lock held.
func (b *bank) balancesOf(asset domain.Asset) map[common.Address]uint64 {
	balances, ok := b.balances[asset]
	if !ok {
		balances = make(map[common.Address]uint64)
		b.balances[asset] = balances
	}
	return balances
}

type assetHandle struct {
	bank  *bank
	asset domain.Asset
}

func (a *assetHandle) TransferIn(_ context.Context, from common.Address, amount uint64) error {
	return a.bank.move(a.asset, from, a.bank.custody, amount)
}

func (a *assetHandle) TransferOut(_ context.Context, to common.Address, amount uint64) error {
	return a.bank.move(a.asset, a.bank.custody, to, amount)
}

func (a *assetHandle) BalanceOf(_ context.Context, holder common.Address) (uint64, error) {
	return a.bank.balanceOf(a.asset, holder), nil
}
