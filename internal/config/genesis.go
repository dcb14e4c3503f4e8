package config

import (
	"context"
	"fmt"

	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	"github.com/spf13/viper"
)

// GenesisBalance is an amount of asset minted to holder at start-up. Asset is
// either "native" or a token address.
type GenesisBalance struct {
	Holder string `mapstructure:"holder"`
	Asset  string `mapstructure:"asset"`
	Amount uint64 `mapstructure:"amount"`
}

// LoadGenesis reads the genesis balances from a json, yaml or toml file, the
// format is inferred from the file extension:
//
//	balances:
//	  - holder: 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
//	    asset: native
//	    amount: 1000000
func LoadGenesis(path string) ([]GenesisBalance, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read genesis file: %w", err)
	}

	var balances []GenesisBalance
	if err := v.UnmarshalKey("balances", &balances); err != nil {
		return nil, fmt.Errorf("failed to parse genesis balances: %w", err)
	}

	for i, b := range balances {
		if b.Holder == "" {
			return nil, fmt.Errorf("genesis balance %d: missing holder", i)
		}
		if b.Amount == 0 {
			return nil, fmt.Errorf("genesis balance %d: amount must be greater than 0", i)
		}
	}
	return balances, nil
}

// ApplyGenesis mints the balances into bank unless a genesis was already
// applied to it, and reports whether it minted.
func ApplyGenesis(
	ctx context.Context, bank ports.AssetService, balances []GenesisBalance,
) (bool, error) {
	mints := make([]ports.Balance, 0, len(balances))
	for _, b := range balances {
		asset, err := domain.ParseAsset(b.Asset)
		if err != nil {
			return false, fmt.Errorf("invalid genesis asset: %s", err)
		}
		holder, err := parseAddress(b.Holder)
		if err != nil {
			return false, fmt.Errorf("invalid genesis holder: %s", err)
		}
		mints = append(mints, ports.Balance{Asset: asset, Holder: holder, Amount: b.Amount})
	}

	minted, err := bank.Genesis(ctx, mints)
	if err != nil {
		return false, fmt.Errorf("failed to mint genesis balances: %w", err)
	}
	return minted, nil
}
