package eventsocket

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/ports"
)

// fakeSwitch is the FreeSWITCH side of an outbound socket
type fakeSwitch struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newPipe(t *testing.T) (*Conn, *fakeSwitch) {
	t.Helper()
	ours, theirs := net.Pipe()
	c := NewConn(ours, zap.NewNop())
	t.Cleanup(func() {
		c.Close()
		theirs.Close()
	})
	return c, &fakeSwitch{t: t, conn: theirs, r: bufio.NewReader(theirs)}
}

// readFrame returns the lines of the next command frame
func (s *fakeSwitch) readFrame() []string {
	s.t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var lines []string
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			s.t.Fatalf("read command: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func (s *fakeSwitch) write(text string) {
	s.t.Helper()
	s.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := s.conn.Write([]byte(text)); err != nil {
		s.t.Fatalf("write: %v", err)
	}
}

func (s *fakeSwitch) ok() {
	s.write("Content-Type: command/reply\nReply-Text: +OK\n\n")
}

func TestConn_Connect(t *testing.T) {
	c, sw := newPipe(t)

	type result struct {
		info map[string]string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := c.Connect(context.Background())
		done <- result{info, err}
	}()

	if frame := sw.readFrame(); len(frame) != 1 || frame[0] != "connect" {
		t.Fatalf("unexpected frame %v", frame)
	}
	sw.write("Content-Type: command/reply\nReply-Text: +OK\nUnique-ID: 5f1c\nCaller-Caller-ID-Number: 1000\nChannel-Name: sofia%2Finternal%2F1000\n\n")

	r := <-done
	if r.err != nil {
		t.Fatalf("Connect failed: %v", r.err)
	}
	if r.info["Unique-ID"] != "5f1c" || r.info["Channel-Name"] != "sofia/internal/1000" {
		t.Errorf("unexpected channel data %v", r.info)
	}
}

func TestConn_ExecuteAndEvents(t *testing.T) {
	c, sw := newPipe(t)

	done := make(chan error, 1)
	go func() { done <- c.Execute(context.Background(), "speak", "tts_commandline|Susan|Hello") }()

	want := []string{
		"sendmsg",
		"call-command: execute",
		"execute-app-name: speak",
		"execute-app-arg: tts_commandline|Susan|Hello",
	}
	frame := sw.readFrame()
	if strings.Join(frame, "|") != strings.Join(want, "|") {
		t.Errorf("unexpected frame %v", frame)
	}
	sw.ok()
	if err := <-done; err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	sw.write(eventFrame("Event-Name: CHANNEL_EXECUTE_COMPLETE\nvariable_current_application: speak\n\n"))

	select {
	case ev := <-c.Events():
		if ev.Name != domain.EventChannelExecuteComplete || ev.Application() != "speak" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestConn_Hangup(t *testing.T) {
	c, sw := newPipe(t)

	done := make(chan error, 1)
	go func() { done <- c.Hangup(context.Background()) }()

	frame := sw.readFrame()
	if len(frame) != 3 || frame[1] != "call-command: hangup" || frame[2] != "hangup-cause: NORMAL_CLEARING" {
		t.Errorf("unexpected frame %v", frame)
	}
	sw.ok()
	if err := <-done; err != nil {
		t.Fatalf("Hangup failed: %v", err)
	}
}

func TestConn_ErrorReply(t *testing.T) {
	c, sw := newPipe(t)

	done := make(chan error, 1)
	go func() { done <- c.Execute(context.Background(), "bogus", "") }()

	frame := sw.readFrame()
	for _, line := range frame {
		if strings.HasPrefix(line, "execute-app-arg") {
			t.Errorf("empty argument must not be sent, got %v", frame)
		}
	}
	sw.write("Content-Type: command/reply\nReply-Text: -ERR invalid application\n\n")

	err := <-done
	if err == nil || !strings.Contains(err.Error(), "invalid application") {
		t.Errorf("expected command error, got %v", err)
	}
}

func TestConn_DisconnectNotice(t *testing.T) {
	c, sw := newPipe(t)

	sw.write("Content-Type: text/disconnect-notice\nContent-Length: 0\n\n")

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after disconnect notice")
	}
	if _, ok := <-c.Events(); ok {
		t.Error("events channel must be closed")
	}
	if err := c.MyEvents(context.Background()); !errors.Is(err, domain.ErrTransportLost) {
		t.Errorf("expected ErrTransportLost, got %v", err)
	}
}

func TestConn_ContextCancelled(t *testing.T) {
	c, sw := newPipe(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.MyEvents(ctx) }()

	sw.readFrame()
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestConn_LateReplyNotReused(t *testing.T) {
	c, sw := newPipe(t)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- c.MyEvents(ctx) }()

	sw.readFrame()
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	second := make(chan error, 1)
	go func() { second <- c.Execute(context.Background(), "speak", "tts_commandline|Susan|hi") }()

	sw.readFrame()
	sw.write("Content-Type: command/reply\nReply-Text: -ERR late\n\n")
	sw.ok()

	select {
	case err := <-second:
		if err != nil {
			t.Errorf("expected the command's own reply, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command never completed")
	}
}

type recordingHandler struct {
	mu    sync.Mutex
	calls []map[string]string
}

func (h *recordingHandler) Handle(ctx context.Context, transport ports.CallTransport) error {
	info, err := transport.Connect(ctx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.calls = append(h.calls, info)
	h.mu.Unlock()
	return nil
}

func TestServer_ServesCalls(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	handler := &recordingHandler{}
	srv := NewServer(ln.Addr().String(), handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	for i := 0; i < 2; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		sw := &fakeSwitch{t: t, conn: conn, r: bufio.NewReader(conn)}
		sw.readFrame()
		sw.write("Content-Type: command/reply\nReply-Text: +OK\nUnique-ID: call-" + string(rune('a'+i)) + "\n\n")

		// the server closes the socket once the handler returns
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := sw.r.ReadByte(); err == nil {
			t.Error("expected the server to close the connection")
		}
		conn.Close()
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.calls) != 2 || handler.calls[1]["Unique-ID"] != "call-b" {
		t.Errorf("unexpected calls %v", handler.calls)
	}
}
