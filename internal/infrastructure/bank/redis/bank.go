package redisbank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	balancesKeyPrefix = "bank:balances"
	genesisKey        = "bank:genesis"
)

type bank struct {
	rdb          *redis.Client
	custody      common.Address
	numOfRetries int
	retryDelay   time.Duration
}

// NewBank returns an asset service keeping one redis hash of balances per
// asset. Balance updates run in WATCH/MULTI transactions and are retried on
// conflict up to numOfRetries times.
func NewBank(rdb *redis.Client, custody common.Address, numOfRetries int) ports.AssetService {
	if numOfRetries <= 0 {
		numOfRetries = 1
	}
	return &bank{
		rdb:          rdb,
		custody:      custody,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (b *bank) Asset(asset domain.Asset) ports.Asset {
	return &assetHandle{b, asset}
}

func (b *bank) Custody() common.Address {
	return b.custody
}

func (b *bank) Mint(
	ctx context.Context, asset domain.Asset, holder common.Address, amount uint64,
) error {
	key := balancesKey(asset)
	return b.withRetry(ctx, func(tx *redis.Tx) error {
		balance, err := getBalance(ctx, tx, key, holder)
		if err != nil {
			return err
		}
		if balance > math.MaxUint64-amount {
			return fmt.Errorf("balance of %s in %s would overflow", holder.Hex(), asset)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, holder.Hex(), balance+amount)
			return nil
		})
		return err
	}, key)
}

// Genesis mints the balances and sets the genesis marker in one transaction,
// A bank whose db already carries the marker mints nothing.
func (b *bank) Genesis(ctx context.Context, balances []ports.Balance) (bool, error) {
	keys := []string{genesisKey}
	seen := make(map[domain.Asset]struct{})
	for _, bal := range balances {
		if _, ok := seen[bal.Asset]; ok {
			continue
		}
		seen[bal.Asset] = struct{}{}
		keys = append(keys, balancesKey(bal.Asset))
	}

	var minted bool
	err := b.withRetry(ctx, func(tx *redis.Tx) error {
		minted = false
		done, err := tx.Exists(ctx, genesisKey).Result()
		if err != nil {
			return fmt.Errorf("failed to read genesis marker: %w", err)
		}
		if done > 0 {
			return nil
		}

		updated := make(map[string]map[string]uint64)
		for _, bal := range balances {
			key := balancesKey(bal.Asset)
			if _, ok := updated[key]; !ok {
				updated[key] = make(map[string]uint64)
			}
			current, ok := updated[key][bal.Holder.Hex()]
			if !ok {
				if current, err = getBalance(ctx, tx, key, bal.Holder); err != nil {
					return err
				}
			}
			if current > math.MaxUint64-bal.Amount {
				return fmt.Errorf(
					"balance of %s in %s would overflow", bal.Holder.Hex(), bal.Asset,
				)
			}
			updated[key][bal.Holder.Hex()] = current + bal.Amount
		}

		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, holders := range updated {
				values := make([]any, 0, 2*len(holders))
				for holder, amount := range holders {
					values = append(values, holder, amount)
				}
				pipe.HSet(ctx, key, values...)
			}
			pipe.Set(ctx, genesisKey, time.Now().Unix(), 0)
			return nil
		}); err != nil {
			return err
		}
		minted = true
		return nil
	}, keys...)
	return minted, err
}

func (b *bank) Close() {
	if err := b.rdb.Close(); err != nil {
		log.WithError(err).Warn("failed to close redis connection")
	}
}

func (b *bank) move(
	ctx context.Context, asset domain.Asset, from, to common.Address, amount uint64,
) error {
	if amount == 0 || from == to {
		return nil
	}

	key := balancesKey(asset)
	return b.withRetry(ctx, func(tx *redis.Tx) error {
		fromBalance, err := getBalance(ctx, tx, key, from)
		if err != nil {
			return err
		}
		if fromBalance < amount {
			return fmt.Errorf(
				"%w: %s holds %d of %s, need %d",
				ports.ErrInsufficientBalance, from.Hex(), fromBalance, asset, amount,
			)
		}
		toBalance, err := getBalance(ctx, tx, key, to)
		if err != nil {
			return err
		}
		if toBalance > math.MaxUint64-amount {
			return fmt.Errorf("balance of %s in %s would overflow", to.Hex(), asset)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(
				ctx, key,
				from.Hex(), fromBalance-amount,
				to.Hex(), toBalance+amount,
			)
			return nil
		})
		return err
	}, key)
}

func (b *bank) balanceOf(
	ctx context.Context, asset domain.Asset, holder common.Address,
) (uint64, error) {
	balance, err := b.rdb.HGet(ctx, balancesKey(asset), holder.Hex()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", holder.Hex(), err)
	}
	return balance, nil
}

// withRetry runs fn in a transaction watching keys, retrying only when one
// of them was modified concurrently.
func (b *bank) withRetry(
	ctx context.Context, fn func(tx *redis.Tx) error, keys ...string,
) error {
	var err error
	for range b.numOfRetries {
		err = b.rdb.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		time.Sleep(b.retryDelay)
	}
	return fmt.Errorf("failed to update balances after max num of retries: %w", err)
}

func getBalance(
	ctx context.Context, tx *redis.Tx, key string, holder common.Address,
) (uint64, error) {
	balance, err := tx.HGet(ctx, key, holder.Hex()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", holder.Hex(), err)
	}
	return balance, nil
}

func balancesKey(asset domain.Asset) string {
	return fmt.Sprintf("%s:%s", balancesKeyPrefix, asset.Hex())
}

type assetHandle struct {
	bank  *bank
	asset domain.Asset
}

func (a *assetHandle) TransferIn(ctx context.Context, from common.Address, amount uint64) error {
	return a.bank.move(ctx, a.asset, from, a.bank.custody, amount)
}

func (a *assetHandle) TransferOut(ctx context.Context, to common.Address, amount uint64) error {
	return a.bank.move(ctx, a.asset, a.bank.custody, to, amount)
}

func (a *assetHandle) BalanceOf(ctx context.Context, holder common.Address) (uint64, error) {
	return a.bank.balanceOf(ctx, a.asset, holder)
}
