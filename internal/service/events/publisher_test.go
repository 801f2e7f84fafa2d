package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/mocks"
)

type fakeHub struct {
	mu       sync.Mutex
	messages [][]byte
}

func (h *fakeHub) Broadcast(message []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, message)
	return true
}

func event(callID string, typ domain.CallEventType, stage domain.CallStage, at time.Time) domain.CallEvent {
	return domain.CallEvent{
		ID:        callID + "-" + string(typ),
		CallID:    callID,
		Type:      typ,
		Stage:     stage,
		Timestamp: at,
	}
}

func TestPublisher_FansOut(t *testing.T) {
	q := mocks.NewMockMessageQueue()
	hub := &fakeHub{}
	p := NewPublisher(q, hub, zap.NewNop())

	ev := event("call-1", domain.CallEventStage, domain.StageQuestioning, time.Now())
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	published := q.Published("talkinator.calls.call.stage")
	if len(published) != 1 {
		t.Fatalf("expected 1 broker message, got %d", len(published))
	}
	var decoded domain.CallEvent
	if err := json.Unmarshal(published[0], &decoded); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if decoded.CallID != "call-1" || decoded.Stage != domain.StageQuestioning {
		t.Errorf("unexpected payload %+v", decoded)
	}
	if len(hub.messages) != 1 {
		t.Errorf("expected 1 hub message, got %d", len(hub.messages))
	}
}

func TestPublisher_TracksLiveCalls(t *testing.T) {
	p := NewPublisher(nil, nil, zap.NewNop())
	ctx := context.Background()
	base := time.Now()

	p.Publish(ctx, event("b", domain.CallEventStarted, domain.StageConnecting, base.Add(time.Second)))
	p.Publish(ctx, event("a", domain.CallEventStarted, domain.StageConnecting, base))
	p.Publish(ctx, event("a", domain.CallEventStage, domain.StageGreeting, base.Add(2*time.Second)))

	live := p.Live()
	if len(live) != 2 {
		t.Fatalf("expected 2 live calls, got %d", len(live))
	}
	if live[0].CallID != "b" || live[1].CallID != "a" || live[1].Stage != domain.StageGreeting {
		t.Errorf("unexpected live calls %+v", live)
	}

	p.Publish(ctx, event("b", domain.CallEventFinished, domain.StageHungUp, base.Add(3*time.Second)))
	live = p.Live()
	if len(live) != 1 || live[0].CallID != "a" {
		t.Errorf("finished call must leave the registry, got %+v", live)
	}
}

func TestPublisher_BrokerFailure(t *testing.T) {
	q := mocks.NewMockMessageQueue()
	q.PublishFunc = func(subject string, data []byte) error {
		return errors.New("broker down")
	}
	hub := &fakeHub{}
	p := NewPublisher(q, hub, zap.NewNop())

	err := p.Publish(context.Background(), event("c", domain.CallEventStarted, domain.StageConnecting, time.Now()))
	if err == nil {
		t.Fatal("expected broker error")
	}
	if len(hub.messages) != 1 {
		t.Error("dashboards must still get the event")
	}
	if len(p.Live()) != 1 {
		t.Error("live registry must still be updated")
	}
}
