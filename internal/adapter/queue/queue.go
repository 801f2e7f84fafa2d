package queue

import (
	"fmt"

	"go.uber.org/zap"
)

// Supported drivers for call event fan-out.
const (
	DriverNATS     = "nats"
	DriverRabbitMQ = "rabbitmq"
	DriverNone     = "none"
)

// MessageQueue publishes call events to an external broker
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// Open connects to the broker selected by driver. An empty driver or an
// empty url yields a queue that drops everything.
func Open(driver, url string, log *zap.Logger) (MessageQueue, error) {
	if url == "" || driver == "" || driver == DriverNone {
		log.Info("Event broker disabled, call events stay local")
		return NewNoopQueue(), nil
	}

	switch driver {
	case DriverNATS:
		return NewNATSQueue(url, log)
	case DriverRabbitMQ:
		return NewRabbitMQQueue(url, log)
	default:
		return nil, fmt.Errorf("unknown event driver %q", driver)
	}
}

// NoopQueue accepts publishes and never delivers
type NoopQueue struct{}

func NewNoopQueue() *NoopQueue { return &NoopQueue{} }

func (NoopQueue) Publish(string, []byte) error { return nil }
func (NoopQueue) Subscribe(string, func(data []byte) error) error { return nil }
func (NoopQueue) Close() error { return nil }
