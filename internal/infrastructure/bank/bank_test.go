package bank_test

import (
	"os"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	inmemorybank "github.com/lockbox-labs/lockd/internal/infrastructure/bank/inmemory"
	redisbank "github.com/lockbox-labs/lockd/internal/infrastructure/bank/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var (
	custody = common.HexToAddress("0x00000000000000000000000000000000000c0de5")
	alice   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bob     = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	token   = domain.NewAsset(common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
)

func TestBankImplementations(t *testing.T) {
	banks := []struct {
		name string
		bank func(t *testing.T) ports.AssetService
	}{
		{"inmemory", func(t *testing.T) ports.AssetService {
			return inmemorybank.NewBank(custody)
		}},
		{"redis", newRedisBank},
	}

	for _, tt := range banks {
		t.Run(tt.name, func(t *testing.T) {
			runBankTests(t, tt.bank)
		})
	}
}

func newRedisBank(t *testing.T) ports.AssetService {
	url := os.Getenv("LOCKD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LOCKD_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	require.NoError(t, rdb.FlushDB(t.Context()).Err())

	svc := redisbank.NewBank(rdb, custody, 5)
	t.Cleanup(svc.Close)
	return svc
}

func TestRedisGenesisSurvivesRestart(t *testing.T) {
	ctx := t.Context()
	first := newRedisBank(t)
	balances := []ports.Balance{{Asset: token, Holder: alice, Amount: 1000}}

	minted, err := first.Genesis(ctx, balances)
	require.NoError(t, err)
	require.True(t, minted)

	opts, err := redis.ParseURL(os.Getenv("LOCKD_TEST_REDIS_URL"))
	require.NoError(t, err)
	second := redisbank.NewBank(redis.NewClient(opts), custody, 5)
	t.Cleanup(second.Close)

	minted, err = second.Genesis(ctx, balances)
	require.NoError(t, err)
	require.False(t, minted)

	balance, err := second.Asset(token).BalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), balance)
}

func runBankTests(t *testing.T, newBank func(t *testing.T) ports.AssetService) {
	t.Run("mint and balance", func(t *testing.T) {
		ctx := t.Context()
		bank := newBank(t)

		balance, err := bank.Asset(token).BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.Zero(t, balance)

		require.NoError(t, bank.Mint(ctx, token, alice, 1000))
		require.NoError(t, bank.Mint(ctx, token, alice, 500))

		balance, err = bank.Asset(token).BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, uint64(1500), balance)

		balance, err = bank.Asset(domain.NativeAsset).BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.Zero(t, balance)
	})

	t.Run("genesis is minted once", func(t *testing.T) {
		ctx := t.Context()
		bank := newBank(t)
		balances := []ports.Balance{
			{Asset: domain.NativeAsset, Holder: alice, Amount: 1000},
			{Asset: domain.NativeAsset, Holder: alice, Amount: 500},
			{Asset: token, Holder: bob, Amount: 250},
		}

		minted, err := bank.Genesis(ctx, balances)
		require.NoError(t, err)
		require.True(t, minted)

		minted, err = bank.Genesis(ctx, balances)
		require.NoError(t, err)
		require.False(t, minted)

		balance, err := bank.Asset(domain.NativeAsset).BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, uint64(1500), balance)

		balance, err = bank.Asset(token).BalanceOf(ctx, bob)
		require.NoError(t, err)
		require.Equal(t, uint64(250), balance)
	})

	t.Run("transfer in and out", func(t *testing.T) {
		ctx := t.Context()
		bank := newBank(t)
		require.Equal(t, custody, bank.Custody())

		asset := bank.Asset(domain.NativeAsset)
		require.NoError(t, bank.Mint(ctx, domain.NativeAsset, alice, 1000))

		require.NoError(t, asset.TransferIn(ctx, alice, 1000))
		requireBalance(t, asset, alice, 0)
		requireBalance(t, asset, custody, 1000)

		require.NoError(t, asset.TransferOut(ctx, bob, 950))
		requireBalance(t, asset, bob, 950)
		requireBalance(t, asset, custody, 50)

		require.NoError(t, asset.TransferIn(ctx, alice, 0))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		ctx := t.Context()
		bank := newBank(t)
		asset := bank.Asset(token)
		require.NoError(t, bank.Mint(ctx, token, alice, 10))

		err := asset.TransferIn(ctx, alice, 11)
		require.ErrorIs(t, err, ports.ErrInsufficientBalance)
		requireBalance(t, asset, alice, 10)

		err = asset.TransferOut(ctx, bob, 1)
		require.ErrorIs(t, err, ports.ErrInsufficientBalance)
		requireBalance(t, asset, custody, 0)
	})

	t.Run("concurrent transfers", func(t *testing.T) {
		ctx := t.Context()
		bank := newBank(t)
		asset := bank.Asset(token)
		require.NoError(t, bank.Mint(ctx, token, alice, 100))

		wg := sync.WaitGroup{}
		wg.Add(10)
		for range 10 {
			go func() {
				defer wg.Done()
				// nolint:errcheck
				asset.TransferIn(ctx, alice, 10)
			}()
		}
		wg.Wait()

		aliceBalance, err := asset.BalanceOf(ctx, alice)
		require.NoError(t, err)
		custodyBalance, err := asset.BalanceOf(ctx, custody)
		require.NoError(t, err)
		require.Equal(t, uint64(100), aliceBalance+custodyBalance)
	})
}

func requireBalance(t *testing.T, asset ports.Asset, holder common.Address, expected uint64) {
	t.Helper()
	balance, err := asset.BalanceOf(t.Context(), holder)
	require.NoError(t, err)
	require.Equal(t, expected, balance)
}
