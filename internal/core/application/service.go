package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	"github.com/lockbox-labs/lockd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type service struct {
	// services
	repoManager ports.RepoManager
	assets      ports.AssetService
	alerts      ports.Alerts
	maturity    *maturityNotifier
	clock       ports.Clock

	// mutating operations are serialized, queries share the read lock
	lock    sync.RWMutex
	lastNow int64
}

// NewService wires the ledger service. scheduler and alerts are optional,
// clock defaults to the system clock.
func NewService(
	repoManager ports.RepoManager,
	assets ports.AssetService,
	scheduler ports.SchedulerService,
	alerts ports.Alerts,
	clock ports.Clock,
) (Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if assets == nil {
		return nil, fmt.Errorf("missing asset service")
	}
	if clock == nil {
		clock = systemClock{}
	}

	ledger, err := repoManager.Ledger().Get(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger from db: %w", err)
	}

	svc := &service{
		repoManager: repoManager,
		assets:      assets,
		alerts:      alerts,
		clock:       clock,
	}
	if ledger != nil {
		svc.lastNow = ledger.UpdatedAt
	}
	if scheduler != nil {
		svc.maturity = newMaturityNotifier(repoManager, scheduler, clock)
	}

	return svc, nil
}

func (s *service) Start() error {
	if s.maturity != nil {
		log.Debug("starting maturity notifier...")
		if err := s.maturity.start(); err != nil {
			return err
		}
	}
	log.Debug("started app service")
	return nil
}

func (s *service) Stop() {
	if s.maturity != nil {
		s.maturity.stop()
		log.Debug("stopped maturity notifier")
	}
	s.assets.Close()
	log.Debug("closed connection to bank")
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *service) Initialize(ctx context.Context, owner common.Address, feePercent uint32) error {
	if owner == (common.Address{}) {
		return errors.INVALID_ARGUMENT.New("missing owner address")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	existing, err := s.repoManager.Ledger().Get(ctx)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to get ledger: %w", err))
	}
	if existing != nil {
		if existing.Owner != owner || existing.FeePercent != feePercent {
			log.WithFields(log.Fields{
				"owner":               existing.Owner.Hex(),
				"fee_percent":         existing.FeePercent,
				"request_owner":       owner.Hex(),
				"request_fee_percent": feePercent,
			}).Warn("ledger already initialized, keeping stored configuration")
		}
		return nil
	}

	ledger, err := domain.NewLedger(owner, feePercent, s.now())
	if err != nil {
		return err
	}
	if err := s.repoManager.Ledger().Apply(ctx, *ledger); err != nil {
		return errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to store ledger: %w", err))
	}

	log.WithFields(log.Fields{
		"owner":       owner.Hex(),
		"fee_percent": feePercent,
	}).Info("initialized ledger")
	return nil
}

func (s *service) Lock(ctx context.Context, req LockRequest) (uint64, error) {
	deposit := domain.Deposit{
		Depositor:      req.Depositor,
		NativeValue:    req.NativeValue,
		TokenAmounts:   req.TokenAmounts,
		TokenAddresses: req.TokenAddresses,
		Duration:       req.Duration,
	}
	if err := deposit.Validate(); err != nil {
		return 0, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	ledger, err := s.getLedger(ctx)
	if err != nil {
		return 0, err
	}

	if deposit.NativeValue > 0 {
		balance, err := s.assets.Asset(domain.NativeAsset).BalanceOf(ctx, req.Depositor)
		if err != nil {
			return 0, errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to get native balance of depositor: %w", err),
			)
		}
		if balance < deposit.NativeValue {
			return 0, errors.INSUFFICIENT_FUNDS.New(
				"not enough native balance, %d < %d", balance, deposit.NativeValue,
			).WithMetadata(errors.AmountMetadata{
				Asset:     domain.NativeAsset.String(),
				Requested: deposit.NativeValue,
				Available: balance,
			})
		}
	}

	index, err := s.repoManager.Ledger().CountRecords(ctx, req.Depositor)
	if err != nil {
		return 0, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to count records of depositor: %w", err),
		)
	}

	now := s.now()
	staged := ledger.Clone()
	record, err := staged.AddDeposit(deposit, index, now)
	if err != nil {
		return 0, err
	}

	transfers := newTransferBatch(s.assets)
	for _, leg := range deposit.Legs() {
		if err := transfers.transferIn(ctx, leg.Asset, req.Depositor, leg.Amount); err != nil {
			transfers.rollback(ctx)
			return 0, err
		}
	}

	if err := s.repoManager.Ledger().Apply(ctx, *staged, *record); err != nil {
		transfers.rollback(ctx)
		return 0, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to store deposit: %w", err))
	}

	log.WithFields(log.Fields{
		"record_id":   record.Id,
		"depositor":   record.Depositor.Hex(),
		"unlock_time": record.UnlockTime,
	}).Info("deposit locked")

	s.saveEvents(ctx, domain.NewDeposited(*record))
	if s.maturity != nil {
		s.maturity.schedule(*record)
	}

	return record.Id, nil
}

func (s *service) Unlock(ctx context.Context, req UnlockRequest) (*UnlockResult, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ledger, err := s.getLedger(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.getRecord(ctx, req.Caller, req.Index)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := record.Release(now); err != nil {
		return nil, err
	}

	payouts := record.Payouts(ledger.FeePercent)
	transfers := newTransferBatch(s.assets)
	for _, leg := range payouts {
		if err := transfers.transferOut(ctx, leg.Asset, record.Depositor, leg.Amount); err != nil {
			transfers.rollback(ctx)
			return nil, err
		}
	}

	staged := ledger.Clone()
	staged.UpdatedAt = now
	if err := s.repoManager.Ledger().Apply(ctx, *staged, *record); err != nil {
		transfers.rollback(ctx)
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to store release: %w", err))
	}

	log.WithFields(log.Fields{
		"record_id": record.Id,
		"depositor": record.Depositor.Hex(),
	}).Info("deposit unlocked")

	s.saveEvents(ctx, domain.NewUnlocked(*record, payouts))
	if s.maturity != nil {
		s.maturity.cancel(record.Id)
	}

	return &UnlockResult{RecordId: record.Id, Payouts: payouts}, nil
}

func (s *service) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ledger, err := s.getLedger(ctx)
	if err != nil {
		return nil, err
	}

	custody := s.assets.Custody()
	checkLiquidity := func(leg domain.Leg) error {
		balance, err := s.assets.Asset(leg.Asset).BalanceOf(ctx, custody)
		if err != nil {
			return errors.INTERNAL_ERROR.Wrap(
				fmt.Errorf("failed to get custody balance of %s: %w", leg.Asset, err),
			)
		}
		if leg.Amount > balance {
			return errors.INSUFFICIENT_LIQUIDITY.New(
				"custody holds %d of %s, requested %d", balance, leg.Asset, leg.Amount,
			).WithMetadata(errors.AmountMetadata{
				Asset:     leg.Asset.String(),
				Requested: leg.Amount,
				Available: balance,
			})
		}
		return nil
	}

	legs, err := ledger.PlanWithdrawal(domain.Withdrawal{
		Caller:         req.Caller,
		NativeAmount:   req.NativeAmount,
		TokenAmounts:   req.TokenAmounts,
		TokenAddresses: req.TokenAddresses,
	}, checkLiquidity)
	if err != nil {
		return nil, err
	}

	now := s.now()
	staged := ledger.Clone()
	if err := staged.DebitFees(legs, now); err != nil {
		return nil, err
	}

	transfers := newTransferBatch(s.assets)
	for _, leg := range legs {
		if err := transfers.transferOut(ctx, leg.Asset, staged.Owner, leg.Amount); err != nil {
			transfers.rollback(ctx)
			return nil, err
		}
	}

	if err := s.repoManager.Ledger().Apply(ctx, *staged); err != nil {
		transfers.rollback(ctx)
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to store withdrawal: %w", err))
	}

	log.WithField("amounts", legsToMap(legs)).Info("fees withdrawn")

	s.saveEvents(ctx, domain.NewWithdrawn(staged.Owner, legs, now))
	go s.sendWithdrawalAlert(staged, legs, now)

	return &WithdrawResult{Amounts: legs}, nil
}

func (s *service) GetInfo(ctx context.Context) (*LedgerInfo, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	ledger, err := s.getLedger(ctx)
	if err != nil {
		return nil, err
	}

	return &LedgerInfo{
		Owner:        ledger.Owner,
		FeePercent:   ledger.FeePercent,
		TotalRecords: ledger.TotalRecords,
		Custody:      s.assets.Custody(),
		FeePools:     ledger.Clone().FeePools,
		CreatedAt:    ledger.CreatedAt,
	}, nil
}

func (s *service) FeePercent(ctx context.Context) (uint32, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	ledger, err := s.getLedger(ctx)
	if err != nil {
		return 0, err
	}
	return ledger.FeePercent, nil
}

func (s *service) TotalRecordsCreated(ctx context.Context) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	ledger, err := s.getLedger(ctx)
	if err != nil {
		return 0, err
	}
	return ledger.TotalRecords, nil
}

func (s *service) GetRecord(
	ctx context.Context, depositor common.Address, index uint64,
) (*domain.DepositRecord, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.getRecord(ctx, depositor, index)
}

func (s *service) ListRecords(
	ctx context.Context, depositor common.Address,
) ([]domain.DepositRecord, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	records, err := s.repoManager.Ledger().GetRecordsByDepositor(ctx, depositor)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to list records: %w", err))
	}
	return records, nil
}

func (s *service) GetFeePool(ctx context.Context, asset domain.Asset) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	ledger, err := s.getLedger(ctx)
	if err != nil {
		return 0, err
	}
	return ledger.FeePool(asset), nil
}

func (s *service) GetRecordHistory(ctx context.Context, recordId uint64) ([]domain.Event, error) {
	events, err := s.repoManager.Events().History(ctx, recordId)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(
			fmt.Errorf("failed to get history of record %d: %w", recordId, err),
		)
	}
	return events, nil
}

func (s *service) getLedger(ctx context.Context) (*domain.Ledger, error) {
	ledger, err := s.repoManager.Ledger().Get(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to get ledger: %w", err))
	}
	if ledger == nil {
		return nil, errors.INTERNAL_ERROR.New("ledger not initialized")
	}
	return ledger, nil
}

func (s *service) getRecord(
	ctx context.Context, depositor common.Address, index uint64,
) (*domain.DepositRecord, error) {
	record, err := s.repoManager.Ledger().GetRecord(ctx, depositor, index)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(fmt.Errorf("failed to get record: %w", err))
	}
	if record == nil {
		return nil, errors.NO_SUCH_RECORD.New(
			"%s has no record at index %d", depositor.Hex(), index,
		).WithMetadata(errors.RecordMetadata{Depositor: depositor.Hex(), Index: index})
	}
	return record, nil
}

// now returns the current unix time, never lower than the one seen by the
// previous operation. Must be called with the write lock held.
func (s *service) now() int64 {
	now := s.clock.Now().Unix()
	if now < s.lastNow {
		now = s.lastNow
	}
	s.lastNow = now
	return now
}

func (s *service) saveEvents(ctx context.Context, events ...domain.Event) {
	if len(events) <= 0 {
		return
	}
	if err := s.repoManager.Events().Save(ctx, events...); err != nil {
		log.WithError(err).Warn("failed to publish events")
	}
}
