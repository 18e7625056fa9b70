package outbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/repository"
	"github.com/segmentio/kafka-go"
)

// MockRepository implements Repository for testing
type MockRepository struct {
	mu sync.Mutex

	Events     []*repository.OutboxEvent
	FetchErr   error
	MarkErr    error
	PurgeErr   error
	PurgeCount int64

	MaxAttemptsSeen int
	ProcessedIDs    []int
	Failures        map[int]int
	PurgedBefore    []time.Time
}

func (m *MockRepository) GetUnprocessedEvents(_ context.Context, limit, maxAttempts int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MaxAttemptsSeen = maxAttempts
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	var out []*repository.OutboxEvent
	for _, e := range m.Events {
		if e.ProcessedAt == nil && e.Attempts < maxAttempts && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return m.MarkErr
	}
	now := time.Now()
	for _, e := range m.Events {
		if e.ID == id {
			e.ProcessedAt = &now
		}
	}
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockRepository) MarkEventFailed(_ context.Context, id int, cause error) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Failures == nil {
		m.Failures = make(map[int]int)
	}
	for _, e := range m.Events {
		if e.ID == id {
			e.Attempts++
			e.LastError = cause.Error()
			m.Failures[id] = e.Attempts
			return e.Attempts, nil
		}
	}
	return 0, errors.New("no such event")
}

func (m *MockRepository) PurgeProcessed(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PurgedBefore = append(m.PurgedBefore, before)
	return m.PurgeCount, m.PurgeErr
}

func (m *MockRepository) processed() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.ProcessedIDs...)
}

// MockNotifier fails the events listed in FailIDs, or every event when Err is set.
type MockNotifier struct {
	mu        sync.Mutex
	Err       error
	FailIDs   map[int]bool
	Delivered []int
	Calls     int
}

func (n *MockNotifier) Notify(_ context.Context, event *repository.OutboxEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls++
	if n.Err != nil || n.FailIDs[event.ID] {
		return errors.Join(errors.New("sink rejected event"), n.Err)
	}
	n.Delivered = append(n.Delivered, event.ID)
	return nil
}

func (n *MockNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Calls
}

// MockWriter records the messages a KafkaNotifier writes.
type MockWriter struct {
	Messages []kafka.Message
	Err      error
	Closed   bool
}

func (w *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.Err != nil {
		return w.Err
	}
	w.Messages = append(w.Messages, msgs...)
	return nil
}

func (w *MockWriter) Close() error {
	w.Closed = true
	return nil
}

// MockOrderNotifier stands in for the notifyOrder mutation.
type MockOrderNotifier struct {
	Status   string
	Err      error
	OrderIDs []int64
}

func (m *MockOrderNotifier) NotifyOrder(_ context.Context, orderID int64) (string, error) {
	m.OrderIDs = append(m.OrderIDs, orderID)
	return m.Status, m.Err
}

func orderEvent(id int, orderID int64) *repository.OutboxEvent {
	e := OrderPlaced{OrderID: orderID, UserID: 7, Status: "Pending", PlacedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	payload, _ := e.Marshal()
	return &repository.OutboxEvent{
		ID:          id,
		EventID:     "evt-" + e.AggregateID(),
		AggregateID: e.AggregateID(),
		EventType:   repository.EventOrderPlaced,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
}
