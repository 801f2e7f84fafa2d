package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/adapter/queue"
	"github.com/seu-repo/talkinator/internal/domain"
)

// SubjectPrefix namespaces call events on the broker
const SubjectPrefix = "talkinator.calls."

// Broadcaster pushes raw messages to live subscribers such as dashboards
type Broadcaster interface {
	Broadcast(message []byte) bool
}

// Publisher fans call events out to the broker and the websocket hub and
// remembers the latest event of every call still in progress.
type Publisher struct {
	queue queue.MessageQueue
	hub   Broadcaster
	log   *zap.Logger

	mu   sync.RWMutex
	live map[string]domain.CallEvent
}

func NewPublisher(q queue.MessageQueue, hub Broadcaster, log *zap.Logger) *Publisher {
	if q == nil {
		q = queue.NewNoopQueue()
	}
	return &Publisher{
		queue: q,
		hub:   hub,
		log:   log,
		live:  make(map[string]domain.CallEvent),
	}
}

func Subject(typ domain.CallEventType) string {
	return SubjectPrefix + string(typ)
}

func (p *Publisher) Publish(ctx context.Context, event domain.CallEvent) error {
	p.track(event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal call event: %w", err)
	}

	if p.hub != nil {
		p.hub.Broadcast(data)
	}

	if err := p.queue.Publish(Subject(event.Type), data); err != nil {
		p.log.Warn("Failed to publish call event",
			zap.String("call_id", event.CallID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return fmt.Errorf("publish call event: %w", err)
	}
	return nil
}

func (p *Publisher) track(event domain.CallEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Type {
	case domain.CallEventFinished:
		delete(p.live, event.CallID)
	default:
		p.live[event.CallID] = event
	}
}

// Live returns the latest event of each call in progress, oldest call first
func (p *Publisher) Live() []domain.CallEvent {
	p.mu.RLock()
	out := make([]domain.CallEvent, 0, len(p.live))
	for _, ev := range p.live {
		out = append(out, ev)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].CallID < out[j].CallID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
