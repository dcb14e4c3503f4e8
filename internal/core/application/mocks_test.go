package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/lockbox-labs/lockd/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type mockRepoManager struct {
	ledger *mockLedgerRepository
	events *mockEventRepository
}

func newMockRepoManager() *mockRepoManager {
	return &mockRepoManager{
		ledger: &mockLedgerRepository{},
		events: &mockEventRepository{},
	}
}

func (m *mockRepoManager) Events() domain.EventRepository  { return m.events }
func (m *mockRepoManager) Ledger() domain.LedgerRepository { return m.ledger }
func (m *mockRepoManager) Close()                          {}

type mockLedgerRepository struct {
	mu       sync.Mutex
	ledger   *domain.Ledger
	records  []domain.DepositRecord
	applyErr error
}

func (m *mockLedgerRepository) Get(_ context.Context) (*domain.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledger == nil {
		return nil, nil
	}
	return m.ledger.Clone(), nil
}

func (m *mockLedgerRepository) Apply(
	_ context.Context, ledger domain.Ledger, records ...domain.DepositRecord,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}

	m.ledger = ledger.Clone()
	for _, record := range records {
		found := false
		for i, r := range m.records {
			if r.Id == record.Id {
				m.records[i] = record
				found = true
				break
			}
		}
		if !found {
			m.records = append(m.records, record)
		}
	}
	return nil
}

func (m *mockLedgerRepository) GetRecord(
	_ context.Context, depositor common.Address, index uint64,
) (*domain.DepositRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Depositor == depositor && r.Index == index {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockLedgerRepository) GetRecordsByDepositor(
	_ context.Context, depositor common.Address,
) ([]domain.DepositRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]domain.DepositRecord, 0)
	for _, r := range m.records {
		if r.Depositor == depositor {
			records = append(records, r)
		}
	}
	return records, nil
}

func (m *mockLedgerRepository) CountRecords(
	ctx context.Context, depositor common.Address,
) (uint64, error) {
	records, err := m.GetRecordsByDepositor(ctx, depositor)
	return uint64(len(records)), err
}

func (m *mockLedgerRepository) GetLockedRecords(_ context.Context) ([]domain.DepositRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]domain.DepositRecord, 0)
	for _, r := range m.records {
		if !r.IsReleased() {
			records = append(records, r)
		}
	}
	return records, nil
}

func (m *mockLedgerRepository) Close() {}

type mockEventRepository struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockEventRepository) Save(_ context.Context, events ...domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *mockEventRepository) History(_ context.Context, recordId uint64) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := make([]domain.Event, 0)
	for _, event := range m.events {
		switch e := event.(type) {
		case domain.Deposited:
			if e.RecordId == recordId {
				history = append(history, e)
			}
		case domain.Unlocked:
			if e.RecordId == recordId {
				history = append(history, e)
			}
		case domain.Matured:
			if e.RecordId == recordId {
				history = append(history, e)
			}
		}
	}
	return history, nil
}

func (m *mockEventRepository) RegisterEventsHandler(string, func([]domain.Event)) {}
func (m *mockEventRepository) ClearRegisteredHandlers(...string)                  {}
func (m *mockEventRepository) Close()                                             {}

func (m *mockEventRepository) ofType(typ domain.EventType) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]domain.Event, 0)
	for _, event := range m.events {
		if event.GetType() == typ {
			events = append(events, event)
		}
	}
	return events
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(unix int64) *fakeClock {
	return &fakeClock{now: time.Unix(unix, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(unix, 0)
}

type scheduledTask struct {
	tag  string
	at   int64
	task func()
}

type mockScheduler struct {
	mu        sync.Mutex
	started   bool
	tasks     []scheduledTask
	cancelled []string
}

func (m *mockScheduler) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
}

func (m *mockScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
}

func (m *mockScheduler) ScheduleTaskOnce(tag string, at int64, task func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, scheduledTask{tag, at, task})
	return nil
}

func (m *mockScheduler) CancelTask(tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, tag)
	pending := make([]scheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.tag != tag {
			pending = append(pending, t)
		}
	}
	m.tasks = pending
	return nil
}

// runDue executes and drops the tasks scheduled at or before the given time.
func (m *mockScheduler) runDue(now int64) int {
	m.mu.Lock()
	due := make([]func(), 0)
	pending := make([]scheduledTask, 0)
	for _, t := range m.tasks {
		if t.at <= now {
			due = append(due, t.task)
			continue
		}
		pending = append(pending, t)
	}
	m.tasks = pending
	m.mu.Unlock()

	for _, task := range due {
		task()
	}
	return len(due)
}

func (m *mockScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// mockedAssetService routes the handles of the given assets to testify mocks
// and every other asset to the wrapped service.
type mockedAssetService struct {
	ports.AssetService
	mocked map[domain.Asset]*mockedAsset
}

func (m *mockedAssetService) Asset(asset domain.Asset) ports.Asset {
	if handle, ok := m.mocked[asset]; ok {
		return handle
	}
	return m.AssetService.Asset(asset)
}

type mockedAsset struct {
	mock.Mock
}

func (m *mockedAsset) TransferIn(ctx context.Context, from common.Address, amount uint64) error {
	args := m.Called(ctx, from, amount)
	return args.Error(0)
}

func (m *mockedAsset) TransferOut(ctx context.Context, to common.Address, amount uint64) error {
	args := m.Called(ctx, to, amount)
	return args.Error(0)
}

func (m *mockedAsset) BalanceOf(ctx context.Context, holder common.Address) (uint64, error) {
	args := m.Called(ctx, holder)
	return args.Get(0).(uint64), args.Error(1)
}

type mockAlerts struct {
	mock.Mock
}

func (m *mockAlerts) Publish(ctx context.Context, topic ports.Topic, message any) error {
	args := m.Called(ctx, topic, message)
	return args.Error(0)
}

var errStorage = fmt.Errorf("storage unavailable")
