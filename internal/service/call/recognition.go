package call

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/observability/telemetry"
	"github.com/seu-repo/talkinator/internal/ports"
)

// Reserved channels, independent of any grammar
const (
	ChannelPlayback = "_speak"
	ChannelSilence  = "_wfs"
)

const DefaultMinConfidence = 50

// RecognitionConfig describes the speech recognizer of a call
type RecognitionConfig struct {
	// Engine is the detect_speech module, e.g. pocketsphinx
	Engine string

	// Grammars maps grammar names to the grammar file loaded for them
	Grammars map[string]string

	// MinConfidence is the lowest confidence delivered as text. Results
	// under it are delivered as "". Zero accepts every result.
	MinConfidence int
}

// RecognitionQueue keeps one unbounded FIFO per grammar of a call plus the
// reserved playback and silence channels. At most one grammar is active at
// a time.
type RecognitionQueue struct {
	exec ports.CommandExecutor
	cfg  RecognitionConfig
	log  *zap.Logger

	mu     sync.Mutex
	active string
	queues map[string]*fifo

	closed    chan struct{}
	closeOnce sync.Once
}

func NewRecognitionQueue(exec ports.CommandExecutor, cfg RecognitionConfig, log *zap.Logger) *RecognitionQueue {
	if cfg.Engine == "" {
		cfg.Engine = "pocketsphinx"
	}

	queues := make(map[string]*fifo, len(cfg.Grammars)+2)
	queues[ChannelPlayback] = newFifo()
	queues[ChannelSilence] = newFifo()
	for name := range cfg.Grammars {
		queues[name] = newFifo()
	}

	return &RecognitionQueue{
		exec:   exec,
		cfg:    cfg,
		log:    log,
		queues: queues,
		closed: make(chan struct{}),
	}
}

// Active returns the grammar currently loaded, if any
func (q *RecognitionQueue) Active() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Activate starts recognition with the given grammar. Switching grammars
// unloads the previous one before loading the next, then resumes detection.
func (q *RecognitionQueue) Activate(ctx context.Context, grammar string) error {
	path, ok := q.cfg.Grammars[grammar]
	if !ok {
		return fmt.Errorf("unknown grammar %q", grammar)
	}

	current := q.Active()
	if current == "" {
		if err := q.exec.Execute(ctx, "detect_speech", fmt.Sprintf("%s %s %s", q.cfg.Engine, grammar, path)); err != nil {
			return fmt.Errorf("start detection: %w", err)
		}
	} else {
		if current != grammar {
			if err := q.exec.Execute(ctx, "detect_speech", "nogrammar "+current); err != nil {
				return fmt.Errorf("unload grammar %s: %w", current, err)
			}
			if err := q.exec.Execute(ctx, "detect_speech", fmt.Sprintf("grammar %s %s", grammar, path)); err != nil {
				return fmt.Errorf("load grammar %s: %w", grammar, err)
			}
		}
		if err := q.exec.Execute(ctx, "detect_speech", "resume"); err != nil {
			return fmt.Errorf("resume detection: %w", err)
		}
	}

	q.mu.Lock()
	q.active = grammar
	q.mu.Unlock()
	return nil
}

// Pause stops detection without unloading the active grammar
func (q *RecognitionQueue) Pause(ctx context.Context) error {
	return q.exec.Execute(ctx, "detect_speech", "pause")
}

// Await blocks until the channel has an entry. Grammar channels yield the
// recognized text, or "" when confidence was under the threshold.
func (q *RecognitionQueue) Await(ctx context.Context, channel string) (string, error) {
	f, ok := q.queues[channel]
	if !ok {
		return "", fmt.Errorf("unknown recognition channel %q", channel)
	}

	for {
		select {
		case <-q.closed:
			return "", domain.ErrTransportLost
		default:
		}
		if text, ok := f.pop(); ok {
			return text, nil
		}

		select {
		case <-f.ready:
		case <-q.closed:
			return "", domain.ErrTransportLost
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Flush drops whatever is pending on a channel
func (q *RecognitionQueue) Flush(channel string) int {
	f, ok := q.queues[channel]
	if !ok {
		return 0
	}
	return f.drain()
}

// Deliver enqueues an entry without blocking the event reader. Entries
// delivered after Close are discarded.
func (q *RecognitionQueue) Deliver(channel, text string) {
	f, ok := q.queues[channel]
	if !ok {
		q.log.Warn("Dropping event for unknown channel", zap.String("channel", channel))
		return
	}

	select {
	case <-q.closed:
		return
	default:
	}
	f.push(text)
}

// HandleEvent routes a switch event to the matching channel
func (q *RecognitionQueue) HandleEvent(ev domain.ChannelEvent) {
	switch ev.Name {
	case domain.EventChannelExecuteComplete:
		switch ev.Application() {
		case "speak":
			q.Deliver(ChannelPlayback, ev.Header("Application-Response"))
		case "wait_for_silence":
			q.Deliver(ChannelSilence, ev.Header("Application-Response"))
		}
	case domain.EventDetectedSpeech:
		if ev.Header("Speech-Type") != "detected-speech" {
			return
		}
		grammar, text, confidence, err := parseSpeechResult(ev.Body)
		if err != nil {
			q.log.Warn("Unparseable speech result", zap.Error(err))
			return
		}
		q.Recognized(grammar, text, confidence)
	}
}

// Recognized applies the confidence threshold and enqueues the result
func (q *RecognitionQueue) Recognized(grammar, text string, confidence float64) {
	accepted := confidence >= float64(q.cfg.MinConfidence)
	telemetry.RecognitionsTotal.WithLabelValues(grammar, strconv.FormatBool(accepted)).Inc()

	q.log.Debug("Speech detected",
		zap.String("grammar", grammar),
		zap.String("text", text),
		zap.Float64("confidence", confidence),
	)

	if !accepted {
		text = ""
	}
	q.Deliver(grammar, text)
}

// Close discards pending entries and wakes up waiters
func (q *RecognitionQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
		for name := range q.queues {
			q.Flush(name)
		}
	})
}

// fifo is a growable queue with a wakeup signal for a single reader
type fifo struct {
	mu    sync.Mutex
	items []string
	ready chan struct{}
}

func newFifo() *fifo {
	return &fifo{ready: make(chan struct{}, 1)}
}

func (f *fifo) push(text string) {
	f.mu.Lock()
	f.items = append(f.items, text)
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

func (f *fifo) pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) == 0 {
		return "", false
	}
	text := f.items[0]
	f.items = f.items[1:]
	if len(f.items) == 0 {
		f.items = nil
	}
	return text, true
}

func (f *fifo) drain() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.items)
	f.items = nil
	return n
}

type speechResult struct {
	XMLName         xml.Name `xml:"result"`
	Grammar         string   `xml:"grammar,attr"`
	Interpretations []struct {
		Grammar    string `xml:"grammar,attr"`
		Confidence string `xml:"confidence,attr"`
		Input      string `xml:"input"`
	} `xml:"interpretation"`
}

func parseSpeechResult(body string) (grammar, text string, confidence float64, err error) {
	var res speechResult
	if err := xml.Unmarshal([]byte(body), &res); err != nil {
		return "", "", 0, err
	}
	if len(res.Interpretations) == 0 {
		return "", "", 0, fmt.Errorf("speech result without interpretation")
	}

	in := res.Interpretations[0]
	grammar = res.Grammar
	if grammar == "" {
		grammar = in.Grammar
	}
	confidence, err = strconv.ParseFloat(strings.TrimSpace(in.Confidence), 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("bad confidence %q: %w", in.Confidence, err)
	}
	return grammar, strings.TrimSpace(in.Input), confidence, nil
}
