package ports

import (
	"context"
	"time"

	"github.com/seu-repo/talkinator/internal/domain"
)

// CommandExecutor runs dialplan applications on a call
type CommandExecutor interface {
	Execute(ctx context.Context, app, arg string) error
}

// CallTransport is the telephony control channel of one call
type CallTransport interface {
	CommandExecutor

	// Connect returns the channel data of the call
	Connect(ctx context.Context) (map[string]string, error)
	MyEvents(ctx context.Context) error
	Answer(ctx context.Context) error
	Hangup(ctx context.Context) error

	Events() <-chan domain.ChannelEvent
	Done() <-chan struct{}
	Close() error
}

// CallEventPublisher fans out call lifecycle events
type CallEventPublisher interface {
	Publish(ctx context.Context, event domain.CallEvent) error
}

// CallHistory persists call summaries
type CallHistory interface {
	Save(ctx context.Context, record domain.CallRecord) error
	Get(ctx context.Context, callID string) (*domain.CallRecord, error)
}

// Randomizer is the source of pseudo-random choices of a call
type Randomizer interface {
	IntN(n int) int
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
