package db_test

import (
	"context"
	"crypto/rand"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	"github.com/lockbox-labs/lockd/internal/infrastructure/db"
	"github.com/stretchr/testify/require"
)

var (
	owner  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	tokenA = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	now    = time.Now().Unix()
)

func TestService(t *testing.T) {
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "repo_manager_with_badger_stores",
			config: db.ServiceConfig{
				EventStoreType:   "badger",
				DataStoreType:    "badger",
				EventStoreConfig: []interface{}{"", nil},
				DataStoreConfig:  []interface{}{"", nil},
			},
		},
		{
			name: "repo_manager_with_sqlite_stores",
			config: db.ServiceConfig{
				EventStoreType:   "badger",
				DataStoreType:    "sqlite",
				EventStoreConfig: []interface{}{"", nil},
				DataStoreConfig:  []interface{}{t.TempDir()},
			},
		},
	}

	if pgDsn := os.Getenv("LOCKD_TEST_PG_URL"); pgDsn != "" {
		tests = append(tests, struct {
			name   string
			config db.ServiceConfig
		}{
			name: "repo_manager_with_postgres_stores",
			config: db.ServiceConfig{
				EventStoreType:   "postgres",
				DataStoreType:    "postgres",
				EventStoreConfig: []interface{}{pgDsn, true},
				DataStoreConfig:  []interface{}{pgDsn, true},
			},
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			require.NotNil(t, svc)
			defer svc.Close()

			testLedgerRepository(t, svc)
			testEventRepository(t, svc)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		fixtures := []db.ServiceConfig{
			{EventStoreType: "redis", DataStoreType: "badger"},
			{EventStoreType: "badger", DataStoreType: "mysql"},
			{
				EventStoreType:   "badger",
				DataStoreType:    "badger",
				EventStoreConfig: []interface{}{""},
				DataStoreConfig:  []interface{}{"", nil},
			},
			{
				EventStoreType:   "badger",
				DataStoreType:    "sqlite",
				EventStoreConfig: []interface{}{"", nil},
				DataStoreConfig:  []interface{}{42},
			},
		}
		for _, config := range fixtures {
			svc, err := db.NewService(config)
			require.Error(t, err)
			require.Nil(t, svc)
		}
	})
}

func testLedgerRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_ledger_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Ledger()
		depositor := randomAddress(t)
		other := randomAddress(t)
		baseId := uint64(now)

		ledger, err := domain.NewLedger(owner, 5, now)
		require.NoError(t, err)
		ledger.TotalRecords = baseId + 2
		ledger.FeePools[domain.NativeAsset] = math.MaxUint64
		ledger.FeePools[domain.NewAsset(tokenA)] = 25

		first := domain.DepositRecord{
			Id:             baseId,
			Depositor:      depositor,
			Index:          0,
			NativeAmount:   math.MaxUint64,
			TokenAmounts:   [domain.TokenSlots]uint64{500, 0},
			TokenAddresses: [domain.TokenSlots]common.Address{tokenA, {}},
			Duration:       60,
			CreatedAt:      now,
			UnlockTime:     now + 60,
			Status:         domain.RecordStatusLocked,
		}
		second := domain.DepositRecord{
			Id:           baseId + 1,
			Depositor:    depositor,
			Index:        1,
			NativeAmount: 10,
			CreatedAt:    now,
			UnlockTime:   now,
			Status:       domain.RecordStatusLocked,
		}
		third := domain.DepositRecord{
			Id:           baseId + 2,
			Depositor:    other,
			Index:        0,
			NativeAmount: 10,
			CreatedAt:    now,
			UnlockTime:   now,
			Status:       domain.RecordStatusLocked,
		}

		require.NoError(t, repo.Apply(ctx, *ledger, second, first, third))

		got, err := repo.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, owner, got.Owner)
		require.Equal(t, uint32(5), got.FeePercent)
		require.Equal(t, baseId+2, got.TotalRecords)
		require.Equal(t, uint64(math.MaxUint64), got.FeePools[domain.NativeAsset])
		require.Equal(t, uint64(25), got.FeePools[domain.NewAsset(tokenA)])

		record, err := repo.GetRecord(ctx, depositor, 0)
		require.NoError(t, err)
		require.NotNil(t, record)
		require.Equal(t, first, *record)

		record, err = repo.GetRecord(ctx, depositor, 2)
		require.NoError(t, err)
		require.Nil(t, record)

		record, err = repo.GetRecord(ctx, randomAddress(t), 0)
		require.NoError(t, err)
		require.Nil(t, record)

		records, err := repo.GetRecordsByDepositor(ctx, depositor)
		require.NoError(t, err)
		require.Equal(t, []domain.DepositRecord{first, second}, records)

		count, err := repo.CountRecords(ctx, depositor)
		require.NoError(t, err)
		require.Equal(t, uint64(2), count)

		count, err = repo.CountRecords(ctx, randomAddress(t))
		require.NoError(t, err)
		require.Zero(t, count)

		require.NoError(t, second.Release(now))
		ledger.FeePools[domain.NewAsset(tokenA)] = 0
		require.NoError(t, repo.Apply(ctx, *ledger, second))

		record, err = repo.GetRecord(ctx, depositor, 1)
		require.NoError(t, err)
		require.True(t, record.IsReleased())
		require.Equal(t, now, record.ReleasedAt)

		got, err = repo.Get(ctx)
		require.NoError(t, err)
		require.Zero(t, got.FeePools[domain.NewAsset(tokenA)])

		locked, err := repo.GetLockedRecords(ctx)
		require.NoError(t, err)
		lockedIds := make(map[uint64]struct{})
		for _, r := range locked {
			require.False(t, r.IsReleased())
			lockedIds[r.Id] = struct{}{}
		}
		require.Contains(t, lockedIds, first.Id)
		require.Contains(t, lockedIds, third.Id)
		require.NotContains(t, lockedIds, second.Id)
	})
}

func testEventRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_event_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Events()
		recordId := uint64(now) + 100

		record := domain.DepositRecord{
			Id:           recordId,
			Depositor:    randomAddress(t),
			NativeAmount: 1000,
			CreatedAt:    now,
			UnlockTime:   now,
			ReleasedAt:   now,
		}
		deposited := domain.NewDeposited(record)
		unlocked := domain.NewUnlocked(record, record.Payouts(5))
		withdrawn := domain.NewWithdrawn(
			owner, []domain.Leg{{Asset: domain.NativeAsset, Amount: 50}}, now,
		)

		wg := &sync.WaitGroup{}
		wg.Add(2)
		received := make([][]domain.Event, 0)
		lock := &sync.Mutex{}
		repo.RegisterEventsHandler(domain.LedgerTopic, func(events []domain.Event) {
			lock.Lock()
			defer lock.Unlock()
			received = append(received, events)
			wg.Done()
		})
		defer repo.ClearRegisteredHandlers(domain.LedgerTopic)

		require.NoError(t, repo.Save(ctx, deposited))
		require.NoError(t, repo.Save(ctx, unlocked, withdrawn))

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("handlers not called")
		}

		lock.Lock()
		total := 0
		for _, events := range received {
			total += len(events)
		}
		lock.Unlock()
		require.Equal(t, 3, total)

		history, err := repo.History(ctx, recordId)
		require.NoError(t, err)
		require.Equal(t, []domain.Event{deposited, unlocked}, history)

		history, err = repo.History(ctx, recordId+1)
		require.NoError(t, err)
		require.Empty(t, history)
	})
}

func randomAddress(t *testing.T) common.Address {
	t.Helper()
	var addr common.Address
	_, err := rand.Read(addr[:])
	require.NoError(t, err)
	return addr
}
