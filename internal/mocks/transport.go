package mocks

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"sync"

	"github.com/seu-repo/talkinator/internal/domain"
)

// Command is one dialplan application executed on a mock call
type Command struct {
	App string
	Arg string
}

func (c Command) String() string {
	return strings.TrimSpace(c.App + " " + c.Arg)
}

// MockCallTransport plays the switch side of a call. Speak and
// wait_for_silence complete immediately; every time detection starts or
// resumes, the next scripted utterance of the current grammar is recognized.
type MockCallTransport struct {
	ChannelData map[string]string

	// Utterances maps a grammar to the replies the caller gives, in order.
	// An exhausted script recognizes nothing, so the wait times out.
	Utterances map[string][]string
	Confidence int

	ConnectFunc func(ctx context.Context) (map[string]string, error)
	ExecuteFunc func(ctx context.Context, app, arg string) error
	HangupFunc  func(ctx context.Context) error

	mu       sync.Mutex
	commands []Command
	grammar  string
	hangups  int
	closes   int

	events    chan domain.ChannelEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewMockCallTransport(utterances map[string][]string) *MockCallTransport {
	if utterances == nil {
		utterances = make(map[string][]string)
	}
	return &MockCallTransport{
		ChannelData: map[string]string{
			"Unique-ID":               "call-1",
			"Caller-Caller-ID-Number": "1000",
		},
		Utterances: utterances,
		Confidence: 90,
		events:     make(chan domain.ChannelEvent, 256),
		done:       make(chan struct{}),
	}
}

func (m *MockCallTransport) Connect(ctx context.Context) (map[string]string, error) {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	return m.ChannelData, nil
}

func (m *MockCallTransport) MyEvents(ctx context.Context) error {
	return nil
}

func (m *MockCallTransport) Answer(ctx context.Context) error {
	m.record("answer", "")
	return nil
}

func (m *MockCallTransport) Hangup(ctx context.Context) error {
	m.mu.Lock()
	m.hangups++
	m.mu.Unlock()
	if m.HangupFunc != nil {
		return m.HangupFunc(ctx)
	}
	return nil
}

func (m *MockCallTransport) Execute(ctx context.Context, app, arg string) error {
	m.record(app, arg)
	if m.ExecuteFunc != nil {
		if err := m.ExecuteFunc(ctx, app, arg); err != nil {
			return err
		}
	}

	switch app {
	case "speak", "wait_for_silence":
		m.push(domain.ChannelEvent{
			Name: domain.EventChannelExecuteComplete,
			Headers: map[string]string{
				"Event-Name":                   domain.EventChannelExecuteComplete,
				"variable_current_application": app,
			},
		})
	case "detect_speech":
		m.detect(arg)
	}
	return nil
}

func (m *MockCallTransport) detect(arg string) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "pause", "nogrammar", "stop":
		return
	case "grammar":
		if len(fields) > 1 {
			m.mu.Lock()
			m.grammar = fields[1]
			m.mu.Unlock()
		}
		return
	case "resume":
	default:
		// engine start: <engine> <grammar> <path>
		if len(fields) > 1 {
			m.mu.Lock()
			m.grammar = fields[1]
			m.mu.Unlock()
		}
	}
	m.utter()
}

func (m *MockCallTransport) utter() {
	m.mu.Lock()
	grammar := m.grammar
	script := m.Utterances[grammar]
	if len(script) == 0 {
		m.mu.Unlock()
		return
	}
	text := script[0]
	m.Utterances[grammar] = script[1:]
	confidence := m.Confidence
	m.mu.Unlock()

	m.push(SpeechEvent(grammar, text, confidence))
}

// SpeechEvent builds a DETECTED_SPEECH event as the switch reports it
func SpeechEvent(grammar, text string, confidence int) domain.ChannelEvent {
	var input bytes.Buffer
	xml.EscapeText(&input, []byte(text))

	body := fmt.Sprintf(
		`<?xml version="1.0"?><result grammar="%s"><interpretation grammar="%s" confidence="%d"><input mode="speech">%s</input></interpretation></result>`,
		grammar, grammar, confidence, input.String(),
	)
	return domain.ChannelEvent{
		Name: domain.EventDetectedSpeech,
		Headers: map[string]string{
			"Event-Name":  domain.EventDetectedSpeech,
			"Speech-Type": "detected-speech",
		},
		Body: body,
	}
}

func (m *MockCallTransport) push(ev domain.ChannelEvent) {
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

func (m *MockCallTransport) record(app, arg string) {
	m.mu.Lock()
	m.commands = append(m.commands, Command{App: app, Arg: arg})
	m.mu.Unlock()
}

func (m *MockCallTransport) Events() <-chan domain.ChannelEvent {
	return m.events
}

func (m *MockCallTransport) Done() <-chan struct{} {
	return m.done
}

// Drop simulates the switch closing the connection
func (m *MockCallTransport) Drop() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *MockCallTransport) Close() error {
	m.mu.Lock()
	m.closes++
	m.mu.Unlock()
	m.Drop()
	return nil
}

// Commands returns the applications executed so far
func (m *MockCallTransport) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.commands...)
}

// Spoken returns the text of every speak command
func (m *MockCallTransport) Spoken() []string {
	var out []string
	for _, c := range m.Commands() {
		if c.App != "speak" {
			continue
		}
		parts := strings.SplitN(c.Arg, "|", 3)
		out = append(out, parts[len(parts)-1])
	}
	return out
}

func (m *MockCallTransport) HangupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hangups
}

func (m *MockCallTransport) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
