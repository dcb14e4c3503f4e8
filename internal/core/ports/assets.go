package ports

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// AssetService gives access to the balances of every asset kind. Funds held
// by the ledger sit under the custody address.
type AssetService interface {
	Asset(asset domain.Asset) Asset
	Custody() common.Address
	// Mint credits new funds to holder.
	Mint(ctx context.Context, asset domain.Asset, holder common.Address, amount uint64) error
	// Genesis mints all the given balances at once, and only the first time
	// it is called on a bank. It reports whether the balances were minted.
	Genesis(ctx context.Context, balances []Balance) (bool, error)
	Close()
}

type Asset interface {
	// TransferIn moves amount from the given holder into custody.
	TransferIn(ctx context.Context, from common.Address, amount uint64) error
	// TransferOut moves amount from custody to the given holder.
	TransferOut(ctx context.Context, to common.Address, amount uint64) error
	BalanceOf(ctx context.Context, holder common.Address) (uint64, error)
}

type Balance struct {
	Asset  domain.Asset
	Holder common.Address
	Amount uint64
}
