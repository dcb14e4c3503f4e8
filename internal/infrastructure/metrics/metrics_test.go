package metrics_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/infrastructure/db"
	"github.com/lockbox-labs/lockd/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLedgerMetrics(t *testing.T) {
	ctx := context.Background()
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	alice := common.HexToAddress("0x70997970C51812dc3A63C73F9E71b7656A0f3b8A")

	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)
	defer repoManager.Close()

	ledger, err := domain.NewLedger(owner, 5, 0)
	require.NoError(t, err)
	record, err := ledger.AddDeposit(domain.Deposit{Depositor: alice, NativeValue: 1000}, 0, 0)
	require.NoError(t, err)
	require.NoError(t, repoManager.Ledger().Apply(ctx, *ledger, *record))

	registry := prometheus.NewRegistry()
	m := metrics.NewLedgerMetrics(registry, repoManager)
	m.Start()

	m.HandleEvents([]domain.Event{domain.NewDeposited(*record)})

	require.NoError(t, record.Release(0))
	m.HandleEvents([]domain.Event{
		domain.NewUnlocked(*record, record.Payouts(ledger.FeePercent)),
		domain.NewMatured(*record, 0),
	})

	count, err := testutil.GatherAndCount(registry, "lockd_unlocks_total", "lockd_matured_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	families, err := registry.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[family.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[family.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}
	require.Equal(t, float64(1), values["lockd_deposits_total"])
	require.Equal(t, float64(1), values["lockd_unlocks_total"])
	require.Equal(t, float64(1), values["lockd_matured_total"])
	require.Equal(t, float64(0), values["lockd_locked_records"])
	require.Equal(t, float64(1000), values["lockd_deposited_amount_total"])
	require.Equal(t, float64(950), values["lockd_paid_out_amount_total"])
	require.Equal(t, float64(50), values["lockd_fee_pool"])
}
