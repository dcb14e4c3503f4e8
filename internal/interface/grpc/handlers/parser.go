package handlers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	lockdv1 "github.com/lockbox-labs/lockd/api-spec/lockd/v1"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

func parseAddress(addr, field string) (common.Address, error) {
	addr = strings.TrimSpace(addr)
	if len(addr) <= 0 {
		return common.Address{}, fmt.Errorf("missing %s", field)
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid %s %q", field, addr)
	}
	return common.HexToAddress(addr), nil
}

// parseTokenAddress accepts the "native" alias and an empty string as the
// zero address.
func parseTokenAddress(addr string) (common.Address, error) {
	asset, err := domain.ParseAsset(addr)
	if err != nil {
		return common.Address{}, err
	}
	return asset.Address(), nil
}

func parseLockTokens(
	tokens []lockdv1.TokenAmount,
) ([domain.TokenSlots]uint64, [domain.TokenSlots]common.Address, error) {
	var (
		amounts   [domain.TokenSlots]uint64
		addresses [domain.TokenSlots]common.Address
	)
	if len(tokens) > domain.TokenSlots {
		return amounts, addresses, fmt.Errorf(
			"too many token legs, got %d, max %d", len(tokens), domain.TokenSlots,
		)
	}
	for i, token := range tokens {
		addr, err := parseTokenAddress(token.Address)
		if err != nil {
			return amounts, addresses, fmt.Errorf("token %d: %s", i, err)
		}
		amounts[i] = token.Amount
		addresses[i] = addr
	}
	return amounts, addresses, nil
}

func parseWithdrawTokens(tokens []lockdv1.TokenAmount) ([]uint64, []common.Address, error) {
	amounts := make([]uint64, 0, len(tokens))
	addresses := make([]common.Address, 0, len(tokens))
	for i, token := range tokens {
		addr, err := parseTokenAddress(token.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("token %d: %s", i, err)
		}
		amounts = append(amounts, token.Amount)
		addresses = append(addresses, addr)
	}
	return amounts, addresses, nil
}

type record domain.DepositRecord

func (r record) toProto() *lockdv1.Record {
	tokens := make([]lockdv1.TokenAmount, 0, domain.TokenSlots)
	for i, amount := range r.TokenAmounts {
		tokens = append(tokens, lockdv1.TokenAmount{
			Address: domain.NewAsset(r.TokenAddresses[i]).String(),
			Amount:  amount,
		})
	}
	return &lockdv1.Record{
		Id:              r.Id,
		Depositor:       r.Depositor.Hex(),
		Index:           r.Index,
		NativeAmount:    r.NativeAmount,
		Tokens:          tokens,
		DurationSeconds: r.Duration,
		CreatedAt:       r.CreatedAt,
		UnlockTime:      r.UnlockTime,
		Released:        r.Status == domain.RecordStatusReleased,
		ReleasedAt:      r.ReleasedAt,
	}
}

type recordList []domain.DepositRecord

func (l recordList) toProto() []*lockdv1.Record {
	list := make([]*lockdv1.Record, 0, len(l))
	for _, r := range l {
		list = append(list, record(r).toProto())
	}
	return list
}

type legList []domain.Leg

func (l legList) toProto() []lockdv1.AssetAmount {
	list := make([]lockdv1.AssetAmount, 0, len(l))
	for _, leg := range l {
		list = append(list, lockdv1.AssetAmount{
			Asset:  leg.Asset.String(),
			Amount: leg.Amount,
		})
	}
	return list
}

type feePools map[domain.Asset]uint64

// toProto lists the pools with the native one first and tokens sorted by
// address.
func (p feePools) toProto() []lockdv1.AssetAmount {
	assets := make([]domain.Asset, 0, len(p))
	for asset := range p {
		assets = append(assets, asset)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		if assets[i].IsNative() != assets[j].IsNative() {
			return assets[i].IsNative()
		}
		return assets[i].Hex() < assets[j].Hex()
	})

	list := make([]lockdv1.AssetAmount, 0, len(assets))
	for _, asset := range assets {
		list = append(list, lockdv1.AssetAmount{
			Asset:  asset.String(),
			Amount: p[asset],
		})
	}
	return list
}

type eventList []domain.Event

func (l eventList) toProto() []*lockdv1.Event {
	list := make([]*lockdv1.Event, 0, len(l))
	for _, event := range l {
		data, err := json.Marshal(event)
		if err != nil {
			log.WithError(err).Warnf("failed to serialize %s event", event.GetType())
			continue
		}
		var header domain.LedgerEvent
		// nolint
		json.Unmarshal(data, &header)

		list = append(list, &lockdv1.Event{
			Id:        header.Id,
			Type:      event.GetType().String(),
			Timestamp: header.Timestamp,
			Data:      data,
		})
	}
	return list
}
