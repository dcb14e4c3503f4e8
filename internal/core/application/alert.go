package application

import (
	"context"
	"time"

	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

func (s *service) sendWithdrawalAlert(ledger *domain.Ledger, legs []domain.Leg, timestamp int64) {
	s.publishAlert(ports.FeesWithdrawn, newFeesWithdrawnAlert(ledger, legs, timestamp))
}

func (s *service) publishAlert(topic ports.Topic, message any) {
	if s.alerts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.alerts.Publish(ctx, topic, message); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("failed to publish alert")
	}
}

// newFeesWithdrawnAlert reports the withdrawn amounts together with what is
// left in the pools of the same assets.
func newFeesWithdrawnAlert(
	ledger *domain.Ledger, legs []domain.Leg, timestamp int64,
) ports.FeesWithdrawnAlert {
	remaining := make(map[string]uint64, len(legs))
	for _, leg := range legs {
		remaining[leg.Asset.String()] = ledger.FeePool(leg.Asset)
	}
	return ports.FeesWithdrawnAlert{
		Owner:     ledger.Owner.Hex(),
		Amounts:   legsToMap(legs),
		Remaining: remaining,
		Timestamp: timestamp,
	}
}
