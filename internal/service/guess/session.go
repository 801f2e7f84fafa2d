package guess

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/ports"
)

const defaultLanguage = "en"

// Session drives one run of the remote guessing protocol. Each call to
// Start or Step yields exactly one Outcome; once an Answer or Error has been
// produced (or the player gave up) the session is Done for good.
//
// A Session has a single consumer and must not be stepped concurrently.
type Session struct {
	remote ports.GuessingService
	log    *zap.Logger

	mu        sync.Mutex
	state     domain.SessionState
	profile   domain.Profile
	partyID   string
	signature string
	step      int
	pending   domain.AnswerCode
}

func NewSession(remote ports.GuessingService, log *zap.Logger) *Session {
	return &Session{
		remote: remote,
		log:    log,
		state:  domain.SessionNotStarted,
	}
}

// Start opens the session for the given player and returns the first outcome
func (s *Session) Start(ctx context.Context, profile domain.Profile) (domain.Outcome, error) {
	if profile.Language == "" {
		profile.Language = defaultLanguage
	}

	s.mu.Lock()
	if s.state != domain.SessionNotStarted {
		s.mu.Unlock()
		return domain.Outcome{}, domain.ErrSessionStarted
	}
	s.state = domain.SessionActive
	s.profile = profile
	s.mu.Unlock()

	body, err := s.remote.NewSession(ctx, domain.NewSessionRequest{
		Language: profile.Language,
		Name:     profile.Name,
		Age:      profile.Age,
		Gender:   profile.Gender,
	})
	if err != nil {
		s.finish()
		return domain.Outcome{}, fmt.Errorf("start session: %w", err)
	}

	c, err := Classify(body, true)
	if err != nil {
		s.finish()
		s.log.Warn("Unparseable session init response", zap.Error(err))
		return domain.Outcome{}, err
	}

	s.mu.Lock()
	s.partyID, s.signature = c.PartyID, c.Signature
	s.mu.Unlock()

	s.log.Debug("Guessing session started",
		zap.String("party", c.PartyID),
		zap.String("outcome", c.Outcome.Kind.String()),
	)

	if c.Outcome.Terminal() {
		s.finish()
	}
	return c.Outcome, nil
}

// Step submits an answer to the last question and returns the next outcome
func (s *Session) Step(ctx context.Context, code domain.AnswerCode) (domain.Outcome, error) {
	if !code.Valid() {
		return domain.Outcome{}, fmt.Errorf("invalid answer code %d", code)
	}

	s.mu.Lock()
	switch s.state {
	case domain.SessionNotStarted:
		s.mu.Unlock()
		return domain.Outcome{}, domain.ErrSessionNotStarted
	case domain.SessionDone:
		s.mu.Unlock()
		return domain.Outcome{}, domain.ErrSessionClosed
	}
	req := domain.StepRequest{
		Language:  s.profile.Language,
		PartyID:   s.partyID,
		Signature: s.signature,
		Step:      s.step,
		Answer:    code,
	}
	s.step++
	s.mu.Unlock()

	body, err := s.remote.Answer(ctx, req)
	if err != nil {
		s.finish()
		return domain.Outcome{}, fmt.Errorf("step %d: %w", req.Step, err)
	}

	c, err := Classify(body, false)
	if err != nil {
		s.finish()
		s.log.Warn("Unparseable step response", zap.Int("step", req.Step), zap.Error(err))
		return domain.Outcome{}, err
	}

	if c.Outcome.Terminal() {
		s.finish()
	}
	return c.Outcome, nil
}

// SubmitRawAnswer records a console token as the pending answer. Unknown
// tokens mean the player gives up: the session ends and false is returned.
func (s *Session) SubmitRawAnswer(token string) (domain.AnswerCode, bool) {
	code, ok := ParseAnswerToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = code
	if !ok {
		s.state = domain.SessionDone
	}
	return code, ok
}

// Advance steps the session with the pending answer
func (s *Session) Advance(ctx context.Context) (domain.Outcome, error) {
	s.mu.Lock()
	code := s.pending
	s.mu.Unlock()
	return s.Step(ctx, code)
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Done() bool {
	return s.State() == domain.SessionDone
}

// StepCount is the number of answers submitted so far
func (s *Session) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) finish() {
	s.mu.Lock()
	s.state = domain.SessionDone
	s.mu.Unlock()
}
