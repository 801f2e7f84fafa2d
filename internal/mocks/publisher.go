package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/talkinator/internal/domain"
)

// MockCallEventPublisher records published call events
type MockCallEventPublisher struct {
	PublishFunc func(ctx context.Context, event domain.CallEvent) error

	mu     sync.Mutex
	events []domain.CallEvent
}

func (m *MockCallEventPublisher) Publish(ctx context.Context, event domain.CallEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	return nil
}

func (m *MockCallEventPublisher) Events() []domain.CallEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CallEvent(nil), m.events...)
}

// Stages returns the stage of every call.stage event, in order
func (m *MockCallEventPublisher) Stages() []domain.CallStage {
	var out []domain.CallStage
	for _, ev := range m.Events() {
		if ev.Type == domain.CallEventStage {
			out = append(out, ev.Stage)
		}
	}
	return out
}

// MockCallHistory is a mock implementation of CallHistory interface
type MockCallHistory struct {
	SaveFunc func(ctx context.Context, record domain.CallRecord) error

	mu      sync.Mutex
	records map[string]domain.CallRecord
}

func NewMockCallHistory() *MockCallHistory {
	return &MockCallHistory{records: make(map[string]domain.CallRecord)}
}

func (m *MockCallHistory) Save(ctx context.Context, record domain.CallRecord) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, record); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.records[record.CallID] = record
	m.mu.Unlock()
	return nil
}

func (m *MockCallHistory) Get(ctx context.Context, callID string) (*domain.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[callID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}
