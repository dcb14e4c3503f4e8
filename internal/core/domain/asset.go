package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAsset is the sentinel identifying the native currency.
var NativeAsset = Asset{}

// Asset identifies a kind of fungible balance held by the ledger.
type Asset common.Address

func NewAsset(addr common.Address) Asset {
	return Asset(addr)
}

// ParseAsset accepts a hex address, or "native"/"" for the native currency.
func ParseAsset(s string) (Asset, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "native") {
		return NativeAsset, nil
	}
	if !common.IsHexAddress(s) {
		return Asset{}, fmt.Errorf("invalid asset address %q", s)
	}
	return Asset(common.HexToAddress(s)), nil
}

func (a Asset) IsNative() bool {
	return a == NativeAsset
}

func (a Asset) Address() common.Address {
	return common.Address(a)
}

func (a Asset) Hex() string {
	return common.Address(a).Hex()
}

func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return a.Hex()
}

func (a Asset) MarshalText() ([]byte, error) {
	return common.Address(a).MarshalText()
}

func (a *Asset) UnmarshalText(input []byte) error {
	if string(input) == "native" {
		*a = NativeAsset
		return nil
	}
	return (*common.Address)(a).UnmarshalText(input)
}

// Leg is an amount of a single asset moved by an operation.
type Leg struct {
	Asset  Asset
	Amount uint64
}

// mulPercent returns floor(amount * percent / 100) without overflowing.
func mulPercent(amount uint64, percent uint32) uint64 {
	p := uint64(percent)
	q, r := amount/100, amount%100
	return q*p + r*p/100
}
