package application

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	"github.com/lockbox-labs/lockd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	directionIn  = "in"
	directionOut = "out"
)

type transfer struct {
	asset     domain.Asset
	holder    common.Address
	amount    uint64
	direction string
}

// transferBatch keeps track of the transfers applied within one operation so
// that they can be reverted if a later step fails.
type transferBatch struct {
	assets  ports.AssetService
	applied []transfer
}

func newTransferBatch(assets ports.AssetService) *transferBatch {
	return &transferBatch{assets: assets}
}

func (b *transferBatch) transferIn(
	ctx context.Context, asset domain.Asset, from common.Address, amount uint64,
) error {
	return b.apply(ctx, transfer{asset, from, amount, directionIn})
}

func (b *transferBatch) transferOut(
	ctx context.Context, asset domain.Asset, to common.Address, amount uint64,
) error {
	return b.apply(ctx, transfer{asset, to, amount, directionOut})
}

func (b *transferBatch) apply(ctx context.Context, t transfer) error {
	if t.amount == 0 {
		return nil
	}

	handle := b.assets.Asset(t.asset)
	var err error
	if t.direction == directionIn {
		err = handle.TransferIn(ctx, t.holder, t.amount)
	} else {
		err = handle.TransferOut(ctx, t.holder, t.amount)
	}
	if err != nil {
		return errors.TRANSFER_FAILED.Wrap(err).WithMetadata(errors.TransferMetadata{
			Asset:     t.asset.String(),
			Direction: t.direction,
			Holder:    t.holder.Hex(),
			Amount:    t.amount,
		})
	}

	b.applied = append(b.applied, t)
	return nil
}

// rollback reverts the applied transfers, most recent first.
func (b *transferBatch) rollback(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(b.applied) - 1; i >= 0; i-- {
		t := b.applied[i]
		handle := b.assets.Asset(t.asset)

		var err error
		if t.direction == directionIn {
			err = handle.TransferOut(ctx, t.holder, t.amount)
		} else {
			err = handle.TransferIn(ctx, t.holder, t.amount)
		}
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"asset":     t.asset.String(),
				"holder":    t.holder.Hex(),
				"amount":    t.amount,
				"direction": t.direction,
			}).Error("failed to revert transfer")
		}
	}
	b.applied = nil
}

func legsToMap(legs []domain.Leg) map[string]uint64 {
	m := make(map[string]uint64, len(legs))
	for _, leg := range legs {
		m[leg.Asset.String()] += leg.Amount
	}
	return m
}
