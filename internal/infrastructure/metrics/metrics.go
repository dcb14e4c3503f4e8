package metrics

import (
	"context"
	"time"

	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const namespace = "lockd"

// LedgerMetrics follows the ledger topic of the event bus and keeps the
// prometheus collectors up to date.
type LedgerMetrics struct {
	repoManager ports.RepoManager

	deposits       prometheus.Counter
	unlocks        prometheus.Counter
	withdrawals    prometheus.Counter
	matured        prometheus.Counter
	lockedRecords  prometheus.Gauge
	depositedTotal *prometheus.CounterVec
	paidOutTotal   *prometheus.CounterVec
	feePools       *prometheus.GaugeVec
}

func NewLedgerMetrics(
	registry prometheus.Registerer, repoManager ports.RepoManager,
) *LedgerMetrics {
	m := &LedgerMetrics{
		repoManager: repoManager,
		deposits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deposits_total",
			Help: "Deposits locked in the ledger",
		}),
		unlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unlocks_total",
			Help: "Deposits released to their depositor",
		}),
		withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "withdrawals_total",
			Help: "Fee withdrawals by the owner",
		}),
		matured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "matured_total",
			Help: "Deposits that reached their unlock time while still locked",
		}),
		lockedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "locked_records",
			Help: "Records locked since the process started, net of releases",
		}),
		depositedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deposited_amount_total",
			Help: "Gross amount deposited per asset",
		}, []string{"asset"}),
		paidOutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "paid_out_amount_total",
			Help: "Amount paid back to depositors per asset",
		}, []string{"asset"}),
		feePools: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fee_pool",
			Help: "Fees accrued to the owner and not yet withdrawn, per asset",
		}, []string{"asset"}),
	}

	registry.MustRegister(
		m.deposits, m.unlocks, m.withdrawals, m.matured, m.lockedRecords,
		m.depositedTotal, m.paidOutTotal, m.feePools,
	)
	return m
}

// Start subscribes to the ledger topic and seeds the fee pool gauges.
func (m *LedgerMetrics) Start() {
	m.repoManager.Events().RegisterEventsHandler(domain.LedgerTopic, m.HandleEvents)
	m.refreshFeePools()
}

func (m *LedgerMetrics) HandleEvents(events []domain.Event) {
	refresh := false
	for _, event := range events {
		switch e := event.(type) {
		case domain.Deposited:
			m.deposits.Inc()
			m.lockedRecords.Inc()
			for _, leg := range e.Amounts {
				m.depositedTotal.WithLabelValues(leg.Asset.String()).Add(float64(leg.Amount))
			}
			refresh = true
		case domain.Unlocked:
			m.unlocks.Inc()
			m.lockedRecords.Dec()
			for _, leg := range e.Payouts {
				m.paidOutTotal.WithLabelValues(leg.Asset.String()).Add(float64(leg.Amount))
			}
		case domain.Withdrawn:
			m.withdrawals.Inc()
			refresh = true
		case domain.Matured:
			m.matured.Inc()
		}
	}
	if refresh {
		m.refreshFeePools()
	}
}

func (m *LedgerMetrics) refreshFeePools() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ledger, err := m.repoManager.Ledger().Get(ctx)
	if err != nil {
		log.WithError(err).Warn("metrics: failed to get ledger")
		return
	}
	if ledger == nil {
		return
	}
	for asset, amount := range ledger.FeePools {
		m.feePools.WithLabelValues(asset.String()).Set(float64(amount))
	}
}
