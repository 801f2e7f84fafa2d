package eventsocket

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
)

const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
)

// Conn is the outbound event socket of one call. The switch connects to us,
// we issue commands and receive the events of that channel only.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	log  *zap.Logger

	cmdMu   sync.Mutex
	orphans int // commands written whose caller gave up before the reply
	replies chan *message
	events  chan domain.ChannelEvent

	done      chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
}

// NewConn wraps an accepted socket and starts reading from it
func NewConn(conn net.Conn, log *zap.Logger) *Conn {
	c := &Conn{
		conn:    conn,
		r:       bufio.NewReader(conn),
		log:     log.With(zap.String("remote", conn.RemoteAddr().String())),
		replies: make(chan *message, 1),
		events:  make(chan domain.ChannelEvent, eventBuffer),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		msg, err := readMessage(c.r)
		if err != nil {
			select {
			case <-c.closing:
			default:
				c.log.Debug("Event socket read ended", zap.Error(err))
			}
			return
		}

		switch msg.contentType() {
		case contentCommandReply, contentAPIResponse:
			select {
			case c.replies <- msg:
			case <-c.closing:
				return
			}
		case contentEventPlain:
			ev, err := parseEvent(msg.body)
			if err != nil {
				c.log.Warn("Dropping malformed event", zap.Error(err))
				continue
			}
			select {
			case c.events <- ev:
			case <-c.closing:
				return
			}
		case contentDisconnectNotice:
			c.log.Debug("Disconnect notice received")
			return
		default:
			c.log.Debug("Ignoring message", zap.String("content_type", msg.contentType()))
		}
	}
}

// send writes a command and waits for its reply. The switch answers
// commands in order, so replies owed to abandoned commands are skipped.
func (c *Conn) send(ctx context.Context, frame []byte) (*message, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	select {
	case <-c.done:
		return nil, domain.ErrTransportLost
	default:
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportLost, err)
	}

	for {
		select {
		case reply := <-c.replies:
			if c.orphans > 0 {
				c.orphans--
				c.log.Debug("Discarding late reply", zap.String("reply", reply.headers["Reply-Text"]))
				continue
			}
			if err := reply.replyError(); err != nil {
				return nil, err
			}
			return reply, nil
		case <-c.done:
			return nil, domain.ErrTransportLost
		case <-ctx.Done():
			c.orphans++
			return nil, ctx.Err()
		}
	}
}

// Connect returns the channel data of the call
func (c *Conn) Connect(ctx context.Context) (map[string]string, error) {
	reply, err := c.send(ctx, formatCommand("connect"))
	if err != nil {
		return nil, err
	}
	return decodeHeaders(reply.headers), nil
}

// MyEvents subscribes to the events of this channel
func (c *Conn) MyEvents(ctx context.Context) error {
	_, err := c.send(ctx, formatCommand("myevents"))
	return err
}

func (c *Conn) Answer(ctx context.Context) error {
	return c.Execute(ctx, "answer", "")
}

func (c *Conn) Hangup(ctx context.Context) error {
	_, err := c.send(ctx, formatCommand("sendmsg",
		"call-command", "hangup",
		"hangup-cause", "NORMAL_CLEARING",
	))
	return err
}

// Execute runs a dialplan application. Completion is reported later by a
// CHANNEL_EXECUTE_COMPLETE event.
func (c *Conn) Execute(ctx context.Context, app, arg string) error {
	headers := []string{
		"call-command", "execute",
		"execute-app-name", app,
	}
	if arg != "" {
		headers = append(headers, "execute-app-arg", arg)
	}
	_, err := c.send(ctx, formatCommand("sendmsg", headers...))
	return err
}

func (c *Conn) Events() <-chan domain.ChannelEvent {
	return c.events
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		err = c.conn.Close()
	})
	return err
}
