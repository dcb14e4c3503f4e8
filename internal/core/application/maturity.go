package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// maturityNotifier is an unexported service running while the main
// application service is started. It publishes a Matured event for every
// locked record once its unlock time is reached.
// When a deposit is locked the main service schedules its notification, and
// on start-up the notifications of all still locked records are restored.
type maturityNotifier struct {
	repoManager ports.RepoManager
	scheduler   ports.SchedulerService
	clock       ports.Clock

	// cache of scheduled tasks, avoid notifying the same record multiple times
	locker         *sync.Mutex
	scheduledTasks map[uint64]struct{}
}

func newMaturityNotifier(
	repoManager ports.RepoManager, scheduler ports.SchedulerService, clock ports.Clock,
) *maturityNotifier {
	return &maturityNotifier{
		repoManager, scheduler, clock, &sync.Mutex{}, make(map[uint64]struct{}),
	}
}

func (m *maturityNotifier) start() error {
	m.scheduler.Start()

	records, err := m.repoManager.Ledger().GetLockedRecords(context.Background())
	if err != nil {
		return err
	}

	if len(records) > 0 {
		log.Infof("maturity notifier: restoring %d locked records", len(records))
	}
	for _, record := range records {
		m.schedule(record)
	}
	return nil
}

func (m *maturityNotifier) stop() {
	m.scheduler.Stop()
}

func (m *maturityNotifier) schedule(record domain.DepositRecord) {
	m.locker.Lock()
	if _, scheduled := m.scheduledTasks[record.Id]; scheduled {
		m.locker.Unlock()
		return
	}
	m.scheduledTasks[record.Id] = struct{}{}
	m.locker.Unlock()

	log.Debugf("scheduling maturity of record %d at %d", record.Id, record.UnlockTime)

	if err := m.scheduler.ScheduleTaskOnce(maturityTag(record.Id), record.UnlockTime, func() {
		// check if the task is still scheduled before executing it
		m.locker.Lock()
		if _, scheduled := m.scheduledTasks[record.Id]; !scheduled {
			m.locker.Unlock()
			log.Debugf("maturity notifier: record %d already released", record.Id)
			return
		}
		delete(m.scheduledTasks, record.Id)
		m.locker.Unlock()

		m.notify(record)
	}); err != nil {
		m.locker.Lock()
		delete(m.scheduledTasks, record.Id)
		m.locker.Unlock()
		log.WithError(err).Warnf("failed to schedule maturity of record %d", record.Id)
	}
}

// cancel drops the pending notification of a record, if any.
func (m *maturityNotifier) cancel(recordId uint64) {
	m.locker.Lock()
	_, scheduled := m.scheduledTasks[recordId]
	delete(m.scheduledTasks, recordId)
	m.locker.Unlock()

	if !scheduled {
		return
	}
	if err := m.scheduler.CancelTask(maturityTag(recordId)); err != nil {
		log.WithError(err).Warnf("failed to cancel maturity of record %d", recordId)
	}
}

func (m *maturityNotifier) notify(record domain.DepositRecord) {
	ctx := context.Background()

	current, err := m.repoManager.Ledger().GetRecord(ctx, record.Depositor, record.Index)
	if err != nil {
		log.WithError(err).Warnf("maturity notifier: failed to get record %d", record.Id)
		return
	}
	if current == nil || current.IsReleased() {
		return
	}

	event := domain.NewMatured(*current, m.clock.Now().Unix())
	if err := m.repoManager.Events().Save(ctx, event); err != nil {
		log.WithError(err).Warnf("maturity notifier: failed to publish record %d", record.Id)
		return
	}
	log.WithField("record_id", record.Id).Debug("record matured")
}

func maturityTag(recordId uint64) string {
	return fmt.Sprintf("maturity-%d", recordId)
}
