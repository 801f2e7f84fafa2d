package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/talkinator/internal/domain"
)

// MockGuessingService is a mock implementation of GuessingService interface
type MockGuessingService struct {
	NewSessionFunc func(ctx context.Context, req domain.NewSessionRequest) ([]byte, error)
	AnswerFunc     func(ctx context.Context, req domain.StepRequest) ([]byte, error)

	mu    sync.Mutex
	Steps []domain.StepRequest
}

func (m *MockGuessingService) NewSession(ctx context.Context, req domain.NewSessionRequest) ([]byte, error) {
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockGuessingService) Answer(ctx context.Context, req domain.StepRequest) ([]byte, error) {
	m.mu.Lock()
	m.Steps = append(m.Steps, req)
	m.mu.Unlock()
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, req)
	}
	return nil, nil
}

// MockGuessingSession is a mock implementation of GuessingSession interface.
// Without StepFunc it walks through Outcomes one per call.
type MockGuessingSession struct {
	StartFunc func(ctx context.Context, profile domain.Profile) (domain.Outcome, error)
	StepFunc  func(ctx context.Context, code domain.AnswerCode) (domain.Outcome, error)

	Outcomes []domain.Outcome

	mu      sync.Mutex
	Profile domain.Profile
	Codes   []domain.AnswerCode
	state   domain.SessionState
}

func (m *MockGuessingSession) Start(ctx context.Context, profile domain.Profile) (domain.Outcome, error) {
	m.mu.Lock()
	m.Profile = profile
	m.state = domain.SessionActive
	m.mu.Unlock()

	if m.StartFunc != nil {
		return m.StartFunc(ctx, profile)
	}
	return m.next()
}

func (m *MockGuessingSession) Step(ctx context.Context, code domain.AnswerCode) (domain.Outcome, error) {
	m.mu.Lock()
	m.Codes = append(m.Codes, code)
	m.mu.Unlock()

	if m.StepFunc != nil {
		return m.StepFunc(ctx, code)
	}
	return m.next()
}

func (m *MockGuessingSession) next() (domain.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Outcomes) == 0 {
		m.state = domain.SessionDone
		return domain.Outcome{}, domain.ErrSessionClosed
	}
	out := m.Outcomes[0]
	m.Outcomes = m.Outcomes[1:]
	if out.Terminal() {
		m.state = domain.SessionDone
	}
	return out, nil
}

func (m *MockGuessingSession) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AnswerCodes returns the codes submitted so far
func (m *MockGuessingSession) AnswerCodes() []domain.AnswerCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AnswerCode(nil), m.Codes...)
}
