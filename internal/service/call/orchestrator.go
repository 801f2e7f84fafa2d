package call

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/observability/telemetry"
	"github.com/seu-repo/talkinator/internal/ports"
)

const maxAttempts = 3

// Prompts spoken to the caller
const (
	promptCapacity      = "...sorry, but I'm talking to a lot of people already. Please call me later."
	promptIntro         = "\\item=Throat Hello!! My name is Akinator. Think about a real or fictional character, and I'll try to guess who it is..."
	promptGender        = "By the way, are you male or female??"
	promptGenderRetry   = "I didn't get that. Boy or girl??"
	promptName          = "And what is your name?"
	promptStart         = "Ok! Please tell me more about this character..."
	promptNotUnderstood = "I didn't get that."
	answerSuffix        = " \\item=Laugh"
)

var fillers = []string{
	"Ok",
	"Ok, wait...",
	"Ok!!",
	"\\item=Swallow",
	"\\item=Mmm",
	"\\item=Oh",
}

// Placeholder identities handed to the guessing session
var placeholderNames = map[domain.Gender]string{
	domain.GenderMale:   "John",
	domain.GenderFemale: "Mary",
}

// Hangup reasons recorded with the call
const (
	reasonCompleted       = "completed"
	reasonRejected        = "rejected"
	reasonGenderExhausted = "gender_retries_exhausted"
	reasonAnswerExhausted = "answer_retries_exhausted"
	reasonSessionFailed   = "session_failed"
	reasonTransportLost   = "transport_lost"
	reasonError           = "error"
)

// Config holds the per-call settings of the orchestrator
type Config struct {
	Voice    string
	Language string

	// Recognition.MinConfidence of 0 accepts every result. A negative
	// value selects DefaultMinConfidence.
	Recognition RecognitionConfig

	// NameGrammar, when set, is used to transcribe the caller's name.
	// Without it, which is the default deployment, the caller's reply is
	// only waited out and the gender placeholder ("John" or "Mary") is
	// sent to the guessing service as the name.
	NameGrammar string

	SilenceParams      string
	PromptTimeout      time.Duration
	RecognitionTimeout time.Duration
	RecordTimeout      time.Duration
}

func (c *Config) setDefaults() {
	if c.Voice == "" {
		c.Voice = "Susan"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.SilenceParams == "" {
		c.SilenceParams = "200 15 10 5000"
	}
	if c.PromptTimeout <= 0 {
		c.PromptTimeout = 60 * time.Second
	}
	if c.RecognitionTimeout <= 0 {
		c.RecognitionTimeout = 20 * time.Second
	}
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = 5 * time.Second
	}
	if c.Recognition.MinConfidence < 0 {
		c.Recognition.MinConfidence = DefaultMinConfidence
	}
	if c.Recognition.Grammars == nil {
		c.Recognition.Grammars = map[string]string{
			GrammarGender: "akinator_gender",
			GrammarYesNo:  "akinator_yesno",
		}
	}
}

// Orchestrator drives telephone calls through the guessing game
type Orchestrator struct {
	admission *AdmissionController
	sessions  ports.SessionFactory
	publisher ports.CallEventPublisher
	history   ports.CallHistory
	cfg       Config
	log       *zap.Logger

	newRand func() ports.Randomizer
	now     func() time.Time
}

func NewOrchestrator(
	admission *AdmissionController,
	sessions ports.SessionFactory,
	publisher ports.CallEventPublisher,
	history ports.CallHistory,
	cfg Config,
	log *zap.Logger,
) *Orchestrator {
	cfg.setDefaults()
	return &Orchestrator{
		admission: admission,
		sessions:  sessions,
		publisher: publisher,
		history:   history,
		cfg:       cfg,
		log:       log,
		newRand: func() ports.Randomizer {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		now: time.Now,
	}
}

// Handle runs one call until it is hung up or the transport goes away
func (o *Orchestrator) Handle(ctx context.Context, transport ports.CallTransport) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	leg := &callLeg{
		o:         o,
		transport: transport,
		call: &domain.Call{
			ID:        uuid.NewString(),
			Stage:     domain.StageConnecting,
			StartedAt: o.now(),
		},
		rnd: o.newRand(),
		log: o.log,
	}
	leg.recognizer = NewRecognitionQueue(transport, o.cfg.Recognition, o.log)

	go leg.pump(ctx, cancel)

	err := leg.run(ctx)
	lost := leg.isLost()
	cancel()
	leg.release()
	leg.recognizer.Close()
	if closeErr := transport.Close(); closeErr != nil {
		o.log.Debug("Transport close failed", zap.Error(closeErr))
	}

	return leg.finish(err, lost)
}

// callLeg is the state of a single call
type callLeg struct {
	o          *Orchestrator
	transport  ports.CallTransport
	recognizer *RecognitionQueue
	call       *domain.Call
	rnd        ports.Randomizer
	log        *zap.Logger

	mu       sync.Mutex
	lost     bool
	admitted bool
	released bool
}

// pump feeds switch events to the recognition queue until the transport closes
func (l *callLeg) pump(ctx context.Context, cancel context.CancelFunc) {
	events := l.transport.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				l.transportLost(cancel)
				return
			}
			l.recognizer.HandleEvent(ev)
		case <-l.transport.Done():
			l.transportLost(cancel)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *callLeg) transportLost(cancel context.CancelFunc) {
	l.mu.Lock()
	l.lost = true
	l.mu.Unlock()

	l.release()
	l.recognizer.Close()
	cancel()
}

func (l *callLeg) isLost() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lost
}

func (l *callLeg) admit() bool {
	if !l.o.admission.TryAdmit() {
		return false
	}
	l.mu.Lock()
	l.admitted = true
	l.mu.Unlock()
	return true
}

// release frees the admission slot, at most once per call
func (l *callLeg) release() {
	l.mu.Lock()
	if !l.admitted || l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	l.mu.Unlock()

	l.o.admission.Release()
}

func (l *callLeg) run(ctx context.Context) error {
	info, err := l.transport.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if id := info["Unique-ID"]; id != "" {
		l.call.ID = id
	}
	l.call.CallerNumber = info["Caller-Caller-ID-Number"]
	l.log = l.log.With(zap.String("call_id", l.call.ID))
	l.publish(ctx, domain.CallEventStarted, "")

	if err := l.transport.MyEvents(ctx); err != nil {
		return fmt.Errorf("subscribe events: %w", err)
	}

	l.setStage(ctx, domain.StageGreeting)
	if err := l.transport.Answer(ctx); err != nil {
		return fmt.Errorf("answer: %w", err)
	}

	l.setStage(ctx, domain.StageAdmissionCheck)
	if !l.admit() {
		l.setStage(ctx, domain.StageRejected)
		l.publish(ctx, domain.CallEventRejected, promptCapacity)
		if err := l.say(ctx, promptCapacity); err != nil {
			return err
		}
		return l.hangup(ctx, reasonRejected)
	}

	l.setStage(ctx, domain.StageGenderQuestion)
	if err := l.say(ctx, promptIntro); err != nil {
		return err
	}
	gender, ok, err := l.askGender(ctx)
	if err != nil {
		return err
	}
	if !ok {
		l.log.Info("Gender not recognized, giving up")
		return l.conclude(ctx, reasonGenderExhausted)
	}
	l.call.Gender = gender
	l.call.Name = placeholderNames[gender]

	l.setStage(ctx, domain.StageNameQuestion)
	if err := l.askName(ctx); err != nil {
		return err
	}
	if err := l.say(ctx, promptStart); err != nil {
		return err
	}

	l.setStage(ctx, domain.StageQuestioning)
	reason, err := l.play(ctx)
	if err != nil {
		return err
	}
	return l.conclude(ctx, reason)
}

func (l *callLeg) askGender(ctx context.Context) (domain.Gender, bool, error) {
	prompt := promptGender
	for attempt := 0; attempt < maxAttempts; attempt++ {
		l.call.RetryCount = attempt
		text, err := l.ask(ctx, prompt, GrammarGender)
		if err != nil {
			return "", false, err
		}
		if gender, ok := GenderOf(text); ok {
			return gender, true, nil
		}
		l.log.Debug("Inconclusive gender answer", zap.String("text", text), zap.Int("attempt", attempt+1))
		prompt = promptGenderRetry
	}
	return "", false, nil
}

func (l *callLeg) askName(ctx context.Context) error {
	if l.o.cfg.NameGrammar == "" {
		return l.sayAndWait(ctx, promptName)
	}

	text, err := l.ask(ctx, promptName, l.o.cfg.NameGrammar)
	if err != nil {
		return err
	}
	if text != "" {
		l.call.Name = text
	}
	return nil
}

// play runs the question loop and returns the hangup reason
func (l *callLeg) play(ctx context.Context) (string, error) {
	session := l.o.sessions()
	profile := domain.Profile{
		Name:     l.call.Name,
		Age:      22 + l.rnd.IntN(16),
		Gender:   l.call.Gender,
		Language: l.o.cfg.Language,
	}

	outcome, err := l.remote(ctx, func(ctx context.Context) (domain.Outcome, error) {
		return session.Start(ctx, profile)
	})

	for n := 0; ; n++ {
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			l.log.Warn("Guessing session failed", zap.Error(err))
			return reasonSessionFailed, nil
		}

		switch outcome.Kind {
		case domain.OutcomeAnswer:
			l.setResult(outcome)
			return reasonCompleted, l.say(ctx, outcome.Text+answerSuffix)
		case domain.OutcomeError:
			l.setResult(outcome)
			return reasonCompleted, l.say(ctx, outcome.Text)
		}

		l.call.Questions++
		code, attempt, ok, err := l.askAnswer(ctx, outcome.Text)
		if err != nil {
			return "", err
		}
		if !ok {
			l.log.Info("Answer not recognized, giving up", zap.Int("question", n+1))
			return reasonAnswerExhausted, nil
		}

		if (n+attempt)%(3+l.rnd.IntN(4)) == 0 {
			if err := l.say(ctx, fillers[l.rnd.IntN(len(fillers))]); err != nil {
				return "", err
			}
		}

		outcome, err = l.remote(ctx, func(ctx context.Context) (domain.Outcome, error) {
			return session.Step(ctx, code)
		})
	}
}

// askAnswer asks a question until the reply maps to an answer code.
// attempt is the zero-based index of the attempt that succeeded.
func (l *callLeg) askAnswer(ctx context.Context, question string) (domain.AnswerCode, int, bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		l.call.RetryCount = attempt
		text, err := l.ask(ctx, question, GrammarYesNo)
		if err != nil {
			return 0, 0, false, err
		}
		if code, ok := AnswerOf(text); ok {
			return code, attempt, true, nil
		}
		if attempt < maxAttempts-1 {
			if err := l.say(ctx, promptNotUnderstood); err != nil {
				return 0, 0, false, err
			}
		}
	}
	return 0, 0, false, nil
}

// remote runs a session call detached from the call context. If the call
// goes away first the result is abandoned.
func (l *callLeg) remote(ctx context.Context, fn func(context.Context) (domain.Outcome, error)) (domain.Outcome, error) {
	type result struct {
		outcome domain.Outcome
		err     error
	}

	ch := make(chan result, 1)
	go func() {
		outcome, err := fn(context.WithoutCancel(ctx))
		ch <- result{outcome, err}
	}()

	select {
	case r := <-ch:
		return r.outcome, r.err
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	}
}

// say speaks a prompt and waits until playback is complete
func (l *callLeg) say(ctx context.Context, text string) error {
	if err := l.transport.Execute(ctx, "speak", fmt.Sprintf("tts_commandline|%s|%s", l.o.cfg.Voice, text)); err != nil {
		return fmt.Errorf("speak: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.o.cfg.PromptTimeout)
	defer cancel()
	if _, err := l.recognizer.Await(waitCtx, ChannelPlayback); err != nil {
		return fmt.Errorf("wait for playback: %w", err)
	}
	return nil
}

// sayAndWait speaks a prompt and then waits for the caller to be silent
func (l *callLeg) sayAndWait(ctx context.Context, text string) error {
	if err := l.say(ctx, text); err != nil {
		return err
	}
	if err := l.transport.Execute(ctx, "wait_for_silence", l.o.cfg.SilenceParams); err != nil {
		return fmt.Errorf("wait_for_silence: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.o.cfg.PromptTimeout)
	defer cancel()
	if _, err := l.recognizer.Await(waitCtx, ChannelSilence); err != nil {
		return fmt.Errorf("wait for silence: %w", err)
	}
	return nil
}

// ask speaks a prompt and returns what was recognized with the grammar.
// A recognition timeout counts as an empty utterance.
func (l *callLeg) ask(ctx context.Context, text, grammar string) (string, error) {
	if err := l.say(ctx, text); err != nil {
		return "", err
	}

	if n := l.recognizer.Flush(grammar); n > 0 {
		l.log.Debug("Dropped stale recognition results", zap.String("grammar", grammar), zap.Int("count", n))
	}
	if err := l.recognizer.Activate(ctx, grammar); err != nil {
		return "", err
	}
	l.call.ActiveGrammar = grammar

	waitCtx, cancel := context.WithTimeout(ctx, l.o.cfg.RecognitionTimeout)
	utterance, err := l.recognizer.Await(waitCtx, grammar)
	cancel()
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", err
		}
		l.log.Debug("Recognition timed out", zap.String("grammar", grammar))
		utterance = ""
	}

	if err := l.recognizer.Pause(ctx); err != nil {
		return "", fmt.Errorf("pause detection: %w", err)
	}
	return utterance, nil
}

// conclude frees the slot and ends the call
func (l *callLeg) conclude(ctx context.Context, reason string) error {
	l.setStage(ctx, domain.StageConcluding)
	l.release()
	return l.hangup(ctx, reason)
}

func (l *callLeg) hangup(ctx context.Context, reason string) error {
	l.call.HangupReason = reason
	if err := l.transport.Hangup(ctx); err != nil {
		return fmt.Errorf("hangup: %w", err)
	}
	l.setStage(ctx, domain.StageHungUp)
	return nil
}

func (l *callLeg) setResult(outcome domain.Outcome) {
	l.call.Result = &outcome
}

func (l *callLeg) setStage(ctx context.Context, stage domain.CallStage) {
	l.call.Stage = stage
	telemetry.CallStageTransitions.WithLabelValues(string(stage)).Inc()
	l.log.Debug("Call stage", zap.String("stage", string(stage)))
	l.publish(ctx, domain.CallEventStage, "")
}

func (l *callLeg) publish(ctx context.Context, typ domain.CallEventType, text string) {
	if l.o.publisher == nil {
		return
	}
	err := l.o.publisher.Publish(context.WithoutCancel(ctx), domain.CallEvent{
		ID:        uuid.NewString(),
		CallID:    l.call.ID,
		Type:      typ,
		Stage:     l.call.Stage,
		Text:      text,
		Timestamp: l.o.now(),
	})
	if err != nil {
		l.log.Debug("Call event not published", zap.String("type", string(typ)), zap.Error(err))
	}
}

// finish records the call and maps the run error to what Handle returns
func (l *callLeg) finish(runErr error, lost bool) error {
	ctx := context.Background()

	if l.call.HangupReason == "" {
		switch {
		case lost:
			l.call.HangupReason = reasonTransportLost
		case runErr != nil:
			l.call.HangupReason = reasonError
		}
	}

	result := "none"
	if l.call.Result != nil {
		result = l.call.Result.Kind.String()
	}
	telemetry.CallsTotal.WithLabelValues(string(l.call.Stage), result).Inc()

	if l.o.history != nil {
		recordCtx, cancel := context.WithTimeout(ctx, l.o.cfg.RecordTimeout)
		if err := l.o.history.Save(recordCtx, l.call.Record(l.o.now())); err != nil {
			l.log.Warn("Failed to record call", zap.Error(err))
		}
		cancel()
	}
	l.publish(ctx, domain.CallEventFinished, l.call.HangupReason)

	l.log.Info("Call finished",
		zap.String("stage", string(l.call.Stage)),
		zap.String("reason", l.call.HangupReason),
		zap.Int("questions", l.call.Questions),
	)

	if lost {
		if runErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransportLost, runErr)
		}
		return nil
	}
	return runErr
}
