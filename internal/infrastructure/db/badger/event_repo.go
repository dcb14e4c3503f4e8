package badgerdb

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/lockbox-labs/lockd/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const eventStoreDir = "events"

type eventDTO struct {
	Seq      uint64 `badgerhold:"key"`
	Id       string
	Topic    string
	RecordId uint64
	Payload  []byte
}

type subscriber struct {
	topic   string
	handler func(events []domain.Event)
}

type eventRepository struct {
	store *badgerhold.Store

	subscribers    map[string][]subscriber // topic -> subscribers
	subscriberLock *sync.Mutex
}

func NewEventRepository(config ...interface{}) (domain.EventRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, eventStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %s", err)
	}

	return &eventRepository{
		store:          store,
		subscribers:    make(map[string][]subscriber),
		subscriberLock: &sync.Mutex{},
	}, nil
}

func (r *eventRepository) Save(_ context.Context, events ...domain.Event) error {
	byTopic := make(map[string][]domain.Event)
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event: %w", err)
		}
		dto := &eventDTO{
			Id:       eventId(event),
			Topic:    event.GetTopic(),
			RecordId: recordIdOf(event),
			Payload:  payload,
		}
		if err := r.store.Insert(badgerhold.NextSequence(), dto); err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}
		byTopic[event.GetTopic()] = append(byTopic[event.GetTopic()], event)
	}

	for topic, topicEvents := range byTopic {
		r.dispatch(topic, topicEvents)
	}
	return nil
}

func (r *eventRepository) History(_ context.Context, recordId uint64) ([]domain.Event, error) {
	var dtos []eventDTO
	query := badgerhold.Where("RecordId").Eq(recordId).SortBy("Seq")
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, fmt.Errorf("failed to find events of record %d: %w", recordId, err)
	}

	events := make([]domain.Event, 0, len(dtos))
	for _, dto := range dtos {
		event, err := domain.UnmarshalEvent(dto.Payload)
		if err != nil {
			log.WithError(err).Warnf("failed to deserialize event: %s", string(dto.Payload))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *eventRepository) RegisterEventsHandler(
	topic string, handler func(events []domain.Event),
) {
	r.subscriberLock.Lock()
	defer r.subscriberLock.Unlock()

	r.subscribers[topic] = append(r.subscribers[topic], subscriber{
		topic:   topic,
		handler: handler,
	})
}

func (r *eventRepository) ClearRegisteredHandlers(topics ...string) {
	r.subscriberLock.Lock()
	defer r.subscriberLock.Unlock()

	if len(topics) == 0 {
		r.subscribers = make(map[string][]subscriber)
		return
	}

	for _, topic := range topics {
		delete(r.subscribers, topic)
	}
}

func (r *eventRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *eventRepository) dispatch(topic string, events []domain.Event) {
	r.subscriberLock.Lock()
	defer r.subscriberLock.Unlock()

	for _, subscriber := range r.subscribers[topic] {
		go subscriber.handler(events)
	}
}

func eventId(event domain.Event) string {
	switch e := event.(type) {
	case domain.Deposited:
		return e.Id
	case domain.Unlocked:
		return e.Id
	case domain.Withdrawn:
		return e.Id
	case domain.Matured:
		return e.Id
	}
	return ""
}

// recordIdOf returns 0 for events not bound to a record.
func recordIdOf(event domain.Event) uint64 {
	switch e := event.(type) {
	case domain.Deposited:
		return e.RecordId
	case domain.Unlocked:
		return e.RecordId
	case domain.Matured:
		return e.RecordId
	}
	return 0
}
