package application

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestNewFeesWithdrawnAlert(t *testing.T) {
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	token := domain.NewAsset(common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))

	ledger, err := domain.NewLedger(owner, 5, 0)
	require.NoError(t, err)
	ledger.FeePools[domain.NativeAsset] = 10
	ledger.FeePools[token] = 0

	t.Run("native and token", func(t *testing.T) {
		alert := newFeesWithdrawnAlert(ledger, []domain.Leg{
			{Asset: domain.NativeAsset, Amount: 40},
			{Asset: token, Amount: 25},
		}, 1700000000)

		require.Equal(t, owner.Hex(), alert.Owner)
		require.Equal(t, int64(1700000000), alert.Timestamp)
		require.Equal(t, map[string]uint64{"native": 40, token.Hex(): 25}, alert.Amounts)
		require.Equal(t, map[string]uint64{"native": 10, token.Hex(): 0}, alert.Remaining)
	})

	t.Run("zero withdrawal", func(t *testing.T) {
		alert := newFeesWithdrawnAlert(ledger, []domain.Leg{{Asset: domain.NativeAsset}}, 0)
		require.Equal(t, map[string]uint64{"native": 0}, alert.Amounts)
		require.Equal(t, map[string]uint64{"native": 10}, alert.Remaining)
	})
}
